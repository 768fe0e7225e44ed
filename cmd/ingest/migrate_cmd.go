package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabingest/internal/store"
)

func newMigrateCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			if cfg.Store.Backend != "postgres" {
				return errors.New("migrate requires STORE_BACKEND=postgres")
			}

			pool, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := store.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			version, err := store.MigrationVersion(cmd.Context(), pool)
			if err != nil {
				return err
			}
			slog.Info("migrations applied", "version", version)
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}
