package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/geocoder89/eventparser/internal/config"
	"github.com/geocoder89/eventparser/internal/db"
	"github.com/geocoder89/eventparser/internal/observability"
	"github.com/geocoder89/eventparser/internal/repo/postgres"
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the admin account from ADMIN_USERNAME and ADMIN_PASSWORD",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := postgresConfig()
		if err != nil {
			return err
		}
		if cfg.AdminPassword == "" {
			return errors.New("ADMIN_PASSWORD is not set")
		}
		log := observability.NewLogger(cfg.Env)

		ctx, cancel := config.WithTimeout(15 * time.Second)
		defer cancel()

		pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return err
		}
		defer pool.Close()

		return db.EnsureAdminUser(ctx, postgres.NewUsersRepo(pool, nil), log, cfg.AdminUsername, cfg.AdminPassword)
	},
}
