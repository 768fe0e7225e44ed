package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	EnvFile string
	Store   string
	Actor   string
}

func newRootCmd() *cobra.Command {
	var opts globalOptions

	cmd := &cobra.Command{
		Use:           "ingest",
		Short:         "Ingest tabular files of unknown layout into canonical records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "store backend override: postgres or memory")
	cmd.PersistentFlags().StringVar(&opts.Actor, "actor", "", "who is running the import, recorded on the session")

	cmd.AddCommand(newRunCmd(&opts))
	cmd.AddCommand(newPreviewCmd(&opts))
	cmd.AddCommand(newStagedCmd(&opts))
	cmd.AddCommand(newMigrateCmd(&opts))
	cmd.AddCommand(newAliasesCmd(&opts))
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Debug("command failed", "error", err)
		fmt.Fprintln(os.Stderr, err.Error())
		stop()
		os.Exit(1)
	}
}
