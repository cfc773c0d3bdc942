package main

import (
	"github.com/spf13/cobra"

	"taskmate/pkg/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply embedded database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		defer log.Sync()
		if err != nil {
			return err
		}

		pool, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			return err
		}
		defer pool.Close()

		return db.Migrate(cmd.Context(), pool, log)
	},
}
