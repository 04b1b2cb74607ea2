package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mailroom/migrations"
	"github.com/dmitrymomot/mailroom/pkg/db"
	"github.com/dmitrymomot/mailroom/pkg/job"
	"github.com/dmitrymomot/mailroom/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the outbox, suppression and job queue schema",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	log, err := logger.Open(cfg.Log, nil)
	if err != nil {
		return err
	}
	log = log.With("component", "migrate")

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.FS, cfg.Database.MigrationsTable, log); err != nil {
		return err
	}
	if err := job.Migrate(ctx, pool, log); err != nil {
		return err
	}

	log.Info("migrations completed")
	return nil
}
