package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qcportal/internal/config"
	"qcportal/internal/database"
	"qcportal/internal/database/migration"
	"qcportal/internal/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer db.Close()
			if err := migration.EnsureMigrated(cmd.Context(), db, log, cfg.Database.Host); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
