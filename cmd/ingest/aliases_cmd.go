package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabingest/internal/core"
)

func newAliasesCmd(_ *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aliases",
		Short: "Inspect alias tables",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [file]",
		Short: "Validate an alias table file, or the built-in table when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			table, err := loadAliases(path)
			if err != nil {
				return err
			}
			known := make(map[string]bool)
			for _, f := range core.Vocabulary() {
				known[f] = true
			}
			var unknown []string
			for _, f := range table.Fields() {
				if !known[f] {
					unknown = append(unknown, f)
				}
			}
			if len(unknown) > 0 {
				return fmt.Errorf("alias table refers to unknown fields: %s", strings.Join(unknown, ", "))
			}

			aliases, keywords := table.Size()
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d aliases, %d keywords over %d fields\n",
				aliases, keywords, len(core.Vocabulary()))
			return nil
		},
	})
	return cmd
}
