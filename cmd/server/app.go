package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/wordtrail/wordtrail-api/internal/cache"
	"github.com/wordtrail/wordtrail-api/internal/config"
	"github.com/wordtrail/wordtrail-api/internal/domain/srs"
	"github.com/wordtrail/wordtrail-api/internal/platform/clock"
	"github.com/wordtrail/wordtrail-api/internal/platform/postgres"
	"github.com/wordtrail/wordtrail-api/internal/service/session"
	"github.com/wordtrail/wordtrail-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	progressStore store.ProgressStore
	sessionStore  store.SessionStore
	catalog       store.VocabularyCatalog

	// Cache backend, closed on shutdown when redis-backed
	redisCache *cache.Redis

	// Service interfaces
	srsService     srs.Service
	sessionService session.Service
}

// newApplication creates a new application instance with all dependencies
// initialized. The store stack is composed inside-out: postgres, then the
// retry decorator, then the read-through cache, so every consumer sees the
// same write-safety and read-your-writes guarantees.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	clk := clock.New()

	// Base stores
	baseProgress := postgres.NewPostgresProgressStore(db, logger)
	baseProgress.SetChunking(cfg.Session.FlushChunkSize, cfg.Session.FlushParallelism)
	app.sessionStore = postgres.NewPostgresSessionStore(db, logger)
	app.catalog = postgres.NewPostgresCatalog(db, logger)

	// Retry decorator
	retrying := store.NewRetryingProgressStore(baseProgress, store.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseBackoff: cfg.Retry.BaseBackoff,
	}, logger)

	// Read-through cache
	cacheBackend, err := buildCacheBackend(app, cfg.Cache, clk)
	if err != nil {
		return nil, err
	}
	app.progressStore = cache.NewCachedProgressStore(retrying, cacheBackend, cfg.Cache.TTL, logger)

	// Scheduler
	app.srsService = srs.NewServiceWithParams(srs.NewParams(srs.ParamsConfig{
		MinEaseFactor:          cfg.SRS.MinEaseFactor,
		MaxEaseFactor:          cfg.SRS.MaxEaseFactor,
		EaseIncrement:          cfg.SRS.EaseIncrement,
		EaseDecrement:          cfg.SRS.EaseDecrement,
		NewAdvanceStreak:       cfg.SRS.NewAdvanceStreak,
		LearningAdvanceStreak:  cfg.SRS.LearningAdvanceStreak,
		ReviewingAdvanceStreak: cfg.SRS.ReviewingAdvanceStreak,
	}))

	// Session coordinator
	app.sessionService = session.NewCoordinator(
		app.progressStore,
		app.sessionStore,
		app.catalog,
		app.srsService,
		clk,
		logger,
	)

	logger.Info("application initialized")
	return app, nil
}

// buildCacheBackend selects the configured cache implementation.
func buildCacheBackend(app *application, cfg config.CacheConfig, clk clock.Clock) (cache.Cache, error) {
	switch cfg.Backend {
	case "redis":
		app.redisCache = cache.NewRedis(cfg.RedisAddr)
		return app.redisCache, nil
	case "memory":
		return cache.NewMemory(clk), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.redisCache != nil {
		if err := app.redisCache.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
