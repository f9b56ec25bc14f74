package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/app"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
)

type runDueFlags struct {
	AsOf  string
	Limit int
}

func newBillPayCmd(e *env) *cobra.Command {
	billPayCmd := &cobra.Command{
		Use:   "billpay",
		Short: "Bill payment maintenance",
	}
	billPayCmd.AddCommand(newRunDueCmd(e))
	return billPayCmd
}

func newRunDueCmd(e *env) *cobra.Command {
	flags := &runDueFlags{}

	cmd := &cobra.Command{
		Use:   "run-due",
		Short: "Execute due bill payments in this process",
		Long: `Execute every scheduled bill payment dated on or before --as-of (default
today), plus processing payments abandoned for longer than the stale window.
Each payment settles at most once per scheduled date.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf := time.Now().UTC()
			if flags.AsOf != "" {
				parsed, err := time.Parse("2006-01-02", flags.AsOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
				asOf = parsed
			}
			if e.cfg.BillPaymentClearingAccountID == "" {
				return fmt.Errorf("BILL_PAYMENT_CLEARING_ACCOUNT_ID is not set")
			}
			clearing, err := uuid.Parse(e.cfg.BillPaymentClearingAccountID)
			if err != nil {
				return fmt.Errorf("invalid BILL_PAYMENT_CLEARING_ACCOUNT_ID: %w", err)
			}

			pool, err := e.openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			repo := store.NewPostgresRepository(pool)

			transfers := app.NewTransferService(repo, nil, app.TransferOptions{
				Mode:               e.cfg.ConsistencyMode,
				MaxConflictRetries: e.cfg.TransferMaxConflictRetries,
				RetryBaseDelay:     e.cfg.TransferRetryBaseDelay(),
				Logger:             e.logger,
			})
			billPayments := app.NewBillPaymentService(repo, transfers, nil, app.BillPaymentOptions{
				ClearingAccountID: clearing,
				StaleAfter:        e.cfg.BillPaymentStaleAfter(),
				Logger:            e.logger,
			})

			limit := flags.Limit
			if limit <= 0 {
				limit = e.cfg.BillPaymentBatchSize
			}
			settled, err := billPayments.ExecuteDue(cmd.Context(), asOf, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d bill payment(s) settled as of %s\n", settled, asOf.Format("2006-01-02"))
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.AsOf, "as-of", "", "settle payments dated on or before this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&flags.Limit, "limit", 0, "maximum number of payments to execute (default BILL_PAYMENT_BATCH_SIZE)")
	return cmd
}
