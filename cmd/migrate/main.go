package main

import (
	"context"
	"flag"
	"os"

	"github.com/Ben-Nachmanson/Fill-Flow/pkg/config"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/logger"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/migrationpg"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/postgresql"
)

func main() {
	var (
		direction    = flag.String("direction", "up", "migration direction: up or down")
		steps        = flag.Int("steps", 0, "number of migrations to run (0 = all, down requires > 0)")
		migrationDir = flag.String("dir", "migrations", "directory containing migration files")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.Level(cfg.App.LogLevel)))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	client, err := postgresql.NewClient(ctx, cfg.DB)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "connect_postgres"})
		os.Exit(1)
	}
	defer client.Close()

	runner := migrationpg.NewRunner(client, log, migrationpg.Config{
		MigrationDir: *migrationDir,
	})

	if err := runner.EnsureMigrationTable(ctx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "ensure_migration_table"})
		os.Exit(1)
	}

	switch *direction {
	case "up":
		err = runner.MigrateUp(ctx, *steps)
	case "down":
		err = runner.MigrateDown(ctx, *steps)
	default:
		log.Warn("unknown direction, expected up or down", logger.Field{Key: "direction", Value: *direction})
		os.Exit(2)
	}
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "migrate_" + *direction})
		os.Exit(1)
	}

	log.Info("migrations completed", logger.Field{Key: "direction", Value: *direction})
}
