// Command ledgerctl runs operator tasks against the ledger database: schema
// migrations, an on-demand bill payment run and balance verification.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/config"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/logger"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
)

// env is the shared state of every subcommand.
type env struct {
	cfg    config.Config
	logger zerolog.Logger
}

// openPool connects to the configured database.
func (e *env) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if e.cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	return store.NewPool(ctx, e.cfg.DatabaseURL, 4, 1)
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var configDir string

	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operator tooling for the ledger service",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.LoadConfig(configDir)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			e.cfg = cfg
			e.logger = logger.New(cfg.LogLevel, "console")
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding the optional .env file")

	rootCmd.AddCommand(newMigrateCmd(e))
	rootCmd.AddCommand(newBillPayCmd(e))
	rootCmd.AddCommand(newLedgerCmd(e))
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
