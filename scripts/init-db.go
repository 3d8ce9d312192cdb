package main

import (
	"context"
	"flag"
	"os"

	"order_manager/internal/config"
	"order_manager/internal/database"
	"order_manager/internal/migrations"
	"order_manager/pkg/logging"
)

func main() {
	reset := flag.Bool("reset", false, "drop and recreate all tables before seeding")
	flag.Parse()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	log.Info("initializing database")
	db, err := database.Initialize(cfg.DatabaseURL, cfg.DBLogSQL, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if *reset {
		if err := migrations.Reset(db, log); err != nil {
			log.Error("failed to reset database", "error", err)
			os.Exit(1)
		}
	}

	if err := migrations.Seed(context.Background(), db, log); err != nil {
		log.Error("failed to seed database", "error", err)
		os.Exit(1)
	}
	log.Info("database initialization completed")
}
