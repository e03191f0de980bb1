package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"qcportal/internal/app"
	"qcportal/internal/importer"
	"qcportal/internal/model"
)

func newImportCmd(open opener) *cobra.Command {
	var (
		kindName string
		mappings []string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a CSV or Excel file",
		Long: "Reads FILE, maps its columns and inserts every row. Without --map the\n" +
			"suggested header mapping is used. Rows that fail are reported and skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(kindName)
			if err != nil {
				return err
			}
			m, err := parseMappings(mappings)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, open, func(a *app.App) error {
				return runImport(cmd, a, data, filepath.Base(args[0]), kind, m, dryRun)
			})
		},
	}

	cmd.Flags().StringVarP(&kindName, "kind", "k", "", "record kind: first_piece or nonconformity")
	cmd.Flags().StringArrayVarP(&mappings, "map", "m", nil, `column mapping "Header=target" (repeatable; target "-" skips)`)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the mapping and preview without inserting")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func parseMappings(pairs []string) (importer.Mapping, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	m := importer.Mapping{}
	for _, p := range pairs {
		src, dst, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(src) == "" {
			return nil, fmt.Errorf("invalid --map %q, want Header=target", p)
		}
		m[strings.TrimSpace(src)] = strings.TrimSpace(dst)
	}
	return m, nil
}

func runImport(cmd *cobra.Command, a *app.App, data []byte, filename string, kind model.Kind, m importer.Mapping, dryRun bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	sess, err := a.Imports.Load(ctx, data, filename, kind)
	if err != nil {
		return err
	}
	defer a.Imports.Close(ctx, sess.ID)

	sess, err = a.Imports.Map(ctx, sess.ID, kind, m)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %d rows\n", filename, sess.Preview.TotalRows)
	sources := make([]string, 0, len(sess.Mapping))
	for src := range sess.Mapping {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		fmt.Fprintf(out, "  %-24s -> %s\n", src, sess.Mapping[src])
	}
	if dryRun {
		return nil
	}

	sess, err = a.Imports.Commit(ctx, sess.ID)
	if err != nil {
		return err
	}
	res := sess.Result
	fmt.Fprintf(out, "imported %d, skipped %d\n", res.Imported, res.Skipped)
	for _, re := range res.Errors {
		fmt.Fprintf(out, "  row %d: %s\n", re.Row, re.Message)
	}
	return nil
}
