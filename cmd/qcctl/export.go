package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"qcportal/internal/app"
	"qcportal/internal/model"
	"qcportal/internal/service"
)

func newExportCmd(open opener) *cobra.Command {
	var (
		kindName string
		output   string
		from, to string
		f        service.SearchFilter
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export matching records as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(kindName)
			if err != nil {
				return err
			}
			if f.From, err = optionalDate(from); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if f.To, err = optionalDate(to); err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			return withApp(cmd, open, func(a *app.App) error {
				var w io.Writer = cmd.OutOrStdout()
				if output != "" && output != "-" {
					file, err := os.Create(output)
					if err != nil {
						return err
					}
					defer file.Close()
					w = file
				}
				n, err := a.Search.Export(cmd.Context(), kind, f, w)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d records\n", n)
				return nil
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&kindName, "kind", "k", "", "record kind: first_piece or nonconformity")
	fl.StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	fl.StringVar(&f.ModelNo, "model", "", "exact model number")
	fl.StringVar(&f.Version, "version", "", "version substring")
	fl.StringVar(&f.SerialNo, "serial", "", "serial number substring")
	fl.StringVar(&f.MO, "mo", "", "manufacturing order substring")
	fl.StringVarP(&f.Text, "query", "q", "", "free text")
	fl.StringVar(&f.Customer, "customer", "", "exact customer")
	fl.StringVar(&from, "from", "", "event date lower bound")
	fl.StringVar(&to, "to", "", "event date upper bound")
	fl.BoolVar(&f.IncludeUndated, "include-undated", false, "keep undated records when a range is set")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := model.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
