package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"qcportal/internal/app"
	"qcportal/internal/service"
)

func newModelsCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Model registry maintenance",
	}
	cmd.AddCommand(newModelsListCmd(open))
	cmd.AddCommand(newModelsRenameCmd(open))
	cmd.AddCommand(newModelsDeleteCmd(open))
	return cmd
}

func newModelsListCmd(open opener) *cobra.Command {
	var text, folder string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(a *app.App) error {
				items, err := a.Models.List(cmd.Context(), text, folder)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "MODEL\tROOT\tNAME\tCUSTOMER\tFOLDER")
				for _, m := range items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ModelNo, m.Root, m.DisplayName, m.CustomerSupplier, m.Folder)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&text, "query", "q", "", "filter text")
	cmd.Flags().StringVar(&folder, "folder", "", "folder tag")
	return cmd
}

func newModelsRenameCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Rename a model and move its records and images",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(a *app.App) error {
				res, err := a.Models.Rename(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "renamed %s -> %s: %d records, %d images\n", args[0], res.Model.ModelNo, res.RecordsMoved, res.ImagesMoved)
				if res.BlobWarning != "" {
					fmt.Fprintf(out, "warning: %s\n", res.BlobWarning)
				}
				return nil
			})
		},
	}
}

func newModelsDeleteCmd(open opener) *cobra.Command {
	var opts service.DeleteModelOptions
	cmd := &cobra.Command{
		Use:   "delete MODEL",
		Short: "Delete a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(a *app.App) error {
				res, err := a.Models.Delete(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "deleted %s (%d records)\n", args[0], res.RecordsDeleted)
				if res.BlobWarning != "" {
					fmt.Fprintf(out, "warning: %s\n", res.BlobWarning)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&opts.CascadeRecords, "cascade-records", false, "also delete the model's records")
	cmd.Flags().BoolVar(&opts.CascadeBlobs, "cascade-blobs", false, "also delete the model's images")
	return cmd
}
