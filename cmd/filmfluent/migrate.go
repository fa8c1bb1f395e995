package main

import (
	"github.com/spf13/cobra"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/database"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}

			db, err := database.New(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			logger.WithField("database", cfg.Database.DBName).Info("Schema is up to date")
			return nil
		},
	}
}
