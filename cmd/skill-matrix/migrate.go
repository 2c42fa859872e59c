package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/STS-Engineer/Skill-Matrix/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logr, err := bootstrap()
		if err != nil {
			return err
		}
		defer logr.Sync() //nolint:errcheck

		db, err := database.NewPostgres(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := database.Migrate(db)
		if err != nil {
			return err
		}
		logr.Info("migrations applied",
			zap.Uint("version", result.Version),
			zap.Bool("changed", result.Changed),
			zap.Bool("dirty", result.Dirty),
		)
		return nil
	},
}
