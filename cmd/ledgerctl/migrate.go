package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
)

func newMigrateCmd(e *env) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert the embedded database schema",
	}
	migrateCmd.AddCommand(newMigrateDirectionCmd(e, "up", "Apply all pending migrations", true))
	migrateCmd.AddCommand(newMigrateDirectionCmd(e, "down", "Revert all migrations", false))
	return migrateCmd
}

func newMigrateDirectionCmd(e *env, use, short string, up bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := e.openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := store.Migrate(pool, up); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations %s complete\n", use)
			return nil
		},
	}
}
