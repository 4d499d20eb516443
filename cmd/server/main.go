// Package main implements the entry point for the WordTrail API server,
// which tracks users' vocabulary learning progress and schedules spaced
// repetition reviews.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/wordtrail/wordtrail-api/internal/config"
	"github.com/wordtrail/wordtrail-api/internal/platform/logger"
)

func main() {
	ctx := context.Background()

	cfg, appLogger, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	db, err := openDatabase(ctx, cfg.Database, appLogger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	app, err := newApplication(cfg, appLogger, db)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and sets up structured logging.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, err
	}

	appLogger.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("cache_backend", cfg.Cache.Backend))

	return cfg, appLogger, nil
}
