package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/geocoder89/eventparser/internal/config"
	"github.com/geocoder89/eventparser/internal/db"
	"github.com/geocoder89/eventparser/internal/observability"
)

var migrateDownSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := postgresConfig()
		if err != nil {
			return err
		}
		log := observability.NewLogger(cfg.Env)

		if err := db.MigrateUp(cfg.DBURL); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the given number of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := postgresConfig()
		if err != nil {
			return err
		}
		log := observability.NewLogger(cfg.Env)

		if err := db.MigrateDown(cfg.DBURL, migrateDownSteps); err != nil {
			return err
		}
		log.Info("migrations rolled back", "steps", migrateDownSteps)
		return nil
	},
}

func postgresConfig() (config.Config, error) {
	cfg := config.Load()
	if cfg.Storage != config.StoragePostgres {
		return cfg, errors.New("this command needs STORAGE=postgres")
	}
	return cfg, nil
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}
