package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabingest/internal/core"
)

func newPreviewCmd(global *globalOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "preview <file|dir>...",
		Short: "Show detected headers, column mappings and kinds without writing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(args)
			if err != nil {
				return err
			}
			return preview(cmd, global, req, opts.JSON)
		},
	}
	opts.bind(cmd)
	return cmd
}

// preview runs the analysis against an in-memory store so nothing is
// written, whatever backend is configured.
func preview(cmd *cobra.Command, global *globalOptions, req core.ImportRequest, asJSON bool) error {
	dry := *global
	dry.Store = "memory"

	a, err := newApp(cmd.Context(), &dry)
	if err != nil {
		return err
	}
	defer a.close()

	resp, err := a.service.Preview(cmd.Context(), req)
	w := cmd.OutOrStdout()
	if resp != nil {
		if asJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if perr := enc.Encode(resp); perr != nil {
				return perr
			}
		} else {
			printPreview(cmd, resp)
		}
	}
	if err != nil {
		return fmt.Errorf("preview failed: %s", core.FormatUserError(err))
	}
	return nil
}

func printPreview(cmd *cobra.Command, resp *core.PreviewResponse) {
	w := cmd.OutOrStdout()
	for _, t := range resp.Tables {
		fmt.Fprintf(w, "%s\n", strings.Join(t.Sources, ", "))
		fmt.Fprintf(w, "  kind: %s  rows: %d  staged: %d\n", t.Kind, t.Rows, t.StagedRows)
		for _, c := range t.Columns {
			field := c.Field
			if field == "" {
				field = "-"
			}
			fmt.Fprintf(w, "    %-30s -> %-20s (%s)\n", c.Label, field, c.Tier)
		}
	}
	printList(w, "file errors", resp.FileErrors)
	printList(w, "warnings", resp.Warnings)
	fmt.Fprintf(w, "analyzed in %dms\n", resp.ProcessingTimeMs)
}
