package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/app"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
)

type verifyFlags struct {
	AccountID string
	OwnerID   string
}

func newLedgerCmd(e *env) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger consistency checks",
	}
	ledgerCmd.AddCommand(newVerifyCmd(e))
	return ledgerCmd
}

func newVerifyCmd(e *env) *cobra.Command {
	flags := &verifyFlags{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare account balances with their latest ledger entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (flags.AccountID == "") == (flags.OwnerID == "") {
				return fmt.Errorf("exactly one of --account or --owner is required")
			}

			pool, err := e.openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			history := app.NewHistoryService(store.NewPostgresRepository(pool), nil)

			var reports []app.BalanceReport
			if flags.AccountID != "" {
				id, err := uuid.Parse(flags.AccountID)
				if err != nil {
					return fmt.Errorf("invalid --account: %w", err)
				}
				report, err := history.VerifyAccount(cmd.Context(), id)
				if err != nil {
					return err
				}
				reports = append(reports, *report)
			} else {
				id, err := uuid.Parse(flags.OwnerID)
				if err != nil {
					return fmt.Errorf("invalid --owner: %w", err)
				}
				if reports, err = history.VerifyOwnerAccounts(cmd.Context(), id); err != nil {
					return err
				}
			}

			if drifted := printReports(cmd.OutOrStdout(), reports); drifted > 0 {
				return fmt.Errorf("%d account(s) drifted from the ledger", drifted)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.AccountID, "account", "", "account id to verify")
	cmd.Flags().StringVar(&flags.OwnerID, "owner", "", "verify every account of this owner id")
	return cmd
}

// printReports writes one row per account and returns the number of drifted accounts.
func printReports(out io.Writer, reports []app.BalanceReport) int {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tVERSION\tBALANCE\tLEDGER\tDRIFT\tSTATUS")
	drifted := 0
	for _, r := range reports {
		ledger := "-"
		if r.SnapshotBalance != nil {
			ledger = domain.FormatMinorUnits(*r.SnapshotBalance)
		}
		status := "ok"
		if !r.Consistent() {
			status = "DRIFT"
			drifted++
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			r.AccountID, r.Version, domain.FormatMinorUnits(r.Balance), ledger, domain.FormatMinorUnits(r.Drift), status)
	}
	tw.Flush()
	return drifted
}
