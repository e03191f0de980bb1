package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"qcportal/internal/app"
	"qcportal/internal/config"
	"qcportal/internal/logger"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// opener builds the application for one command invocation.
type opener func(ctx context.Context) (*app.App, error)

func openFromEnv(ctx context.Context) (*app.App, error) {
	cfg := config.Load()
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	logger.SetGlobal(log)
	return app.New(ctx, cfg, log, nil)
}

func newRootCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "qcctl",
		Short:         "QC portal operator tool",
		Long:          "Imports, exports and model maintenance for the QC portal store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newImportCmd(open))
	cmd.AddCommand(newExportCmd(open))
	cmd.AddCommand(newModelsCmd(open))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "qcctl %s (commit: %s)\n", Version, Commit)
		},
	}
}

// withApp opens the application, runs fn and closes it.
func withApp(cmd *cobra.Command, open opener, fn func(a *app.App) error) error {
	a, err := open(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func execute(cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd(openFromEnv)))
}
