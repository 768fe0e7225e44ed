package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabingest/internal/core"
)

type importOptions struct {
	Target      string
	Maps        []string
	MultiBlock  bool
	DryRun      bool
	SourceLabel string
	JSON        bool
}

func (o *importOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Target, "target", "", "entity kind to load into; auto-detected when empty")
	cmd.Flags().StringArrayVar(&o.Maps, "map", nil, "column override as label=field (repeatable)")
	cmd.Flags().BoolVar(&o.MultiBlock, "multi-block", false, "split sheets holding several stacked tables")
	cmd.Flags().StringVar(&o.SourceLabel, "source-label", "", "label recorded on the session instead of the file names")
	cmd.Flags().BoolVar(&o.JSON, "json", false, "print the full result as JSON")
}

// request builds the import request from flags and file arguments.
func (o *importOptions) request(paths []string) (core.ImportRequest, error) {
	req := core.ImportRequest{MultiBlock: o.MultiBlock, SourceLabel: o.SourceLabel}

	if strings.TrimSpace(o.Target) != "" {
		kind, err := core.ParseEntityKind(strings.TrimSpace(o.Target))
		if err != nil {
			return req, err
		}
		req.Target = kind
	}

	overrides, err := parseOverrides(o.Maps)
	if err != nil {
		return req, err
	}
	req.Overrides = overrides

	files, err := readInputs(paths)
	if err != nil {
		return req, err
	}
	req.Files = files
	return req, nil
}

func newRunCmd(global *globalOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "run <file|dir>...",
		Short: "Import files and persist canonical records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(args)
			if err != nil {
				return err
			}
			if opts.DryRun {
				return preview(cmd, global, req, opts.JSON)
			}

			a, err := newApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := core.ContextWithActor(cmd.Context(), actor(global))

			session, err := a.service.Import(ctx, req)
			if session != nil {
				if perr := printSession(cmd.OutOrStdout(), session, opts.JSON); perr != nil {
					return perr
				}
			}
			if err != nil {
				return fmt.Errorf("import failed: %s", core.FormatUserError(err))
			}
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "analyze and preview without writing anything")
	return cmd
}

// parseOverrides turns label=field pairs into an override map. The last
// "=" separates the field, so labels may contain "=".
func parseOverrides(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		i := strings.LastIndex(p, "=")
		if i <= 0 || i == len(p)-1 {
			return nil, fmt.Errorf("invalid --map %q: want label=field", p)
		}
		out[strings.TrimSpace(p[:i])] = strings.TrimSpace(p[i+1:])
	}
	return out, nil
}

// readInputs loads every named file. Directories contribute their regular
// files, sorted by name.
func readInputs(paths []string) ([]core.ImportFile, error) {
	var files []core.ImportFile
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, err
			}
			files = append(files, core.ImportFile{Name: filepath.Base(p), Data: data})
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, e := range entries {
			if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(p, e.Name()))
			if err != nil {
				return nil, err
			}
			files = append(files, core.ImportFile{Name: e.Name(), Data: data})
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no input files")
	}
	return files, nil
}

func actor(global *globalOptions) string {
	if global.Actor != "" {
		return global.Actor
	}
	return os.Getenv("USER")
}

func printSession(w io.Writer, s *core.ImportSession, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(w, "session %s: %s\n", s.ID, s.Summary())
	if s.Duplicates > 0 {
		fmt.Fprintf(w, "  %d duplicate rows merged\n", s.Duplicates)
	}
	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		c := s.ByKind[core.EntityKind(k)]
		fmt.Fprintf(w, "  %-18s total=%d inserted=%d updated=%d staged=%d errored=%d duplicates=%d\n",
			k, c.Total, c.Inserted, c.Updated, c.Staged, c.Errored, c.Duplicates)
	}
	printList(w, "file errors", s.FileErrors)
	printList(w, "warnings", s.Warnings)
	printList(w, "errors", s.Errors)
	printList(w, "staged", s.StagedRows)
	return nil
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}
