package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabingest/internal/core"
)

type stagedOptions struct {
	Kind    string
	Session string
	Limit   int
}

func newStagedCmd(global *globalOptions) *cobra.Command {
	var opts stagedOptions

	cmd := &cobra.Command{
		Use:   "staged",
		Short: "List staged rows awaiting reconciliation as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := core.StagedFilter{SessionID: opts.Session, Limit: opts.Limit}
			if opts.Kind != "" {
				filter.Kind = core.EntityKind(opts.Kind)
			}

			a, err := newApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer a.close()

			rows, err := a.service.ListStaged(cmd.Context(), filter)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range rows {
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only rows of this kind (including unknown)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "only rows of this import session")
	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "maximum rows; 0 for all")
	return cmd
}
