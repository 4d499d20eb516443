package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache"    validate:"required"`
	Retry    RetryConfig    `mapstructure:"retry"    validate:"required"`
	Session  SessionConfig  `mapstructure:"session"  validate:"required"`
	SRS      SRSConfig      `mapstructure:"srs"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// CacheConfig selects and tunes the read-through progress cache.
type CacheConfig struct {
	// Backend is the cache implementation: an in-process map or redis.
	Backend string `mapstructure:"backend" validate:"required,oneof=memory redis"`

	// TTL bounds how long a populated entry may be served before the next
	// read goes back to the store.
	TTL time.Duration `mapstructure:"ttl" validate:"required,gt=0"`

	// RedisAddr is the redis host:port; required when Backend is redis.
	RedisAddr string `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
}

// RetryConfig parameterizes the persistence retry policy.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"required,gte=1,lte=10"`
	BaseBackoff time.Duration `mapstructure:"base_backoff" validate:"required,gt=0"`
}

// SessionConfig tunes the session coordinator.
type SessionConfig struct {
	// FlushChunkSize is how many progress writes go into one bulk chunk at
	// session close.
	FlushChunkSize int `mapstructure:"flush_chunk_size" validate:"required,gte=1"`

	// FlushParallelism bounds how many chunks flush concurrently.
	FlushParallelism int `mapstructure:"flush_parallelism" validate:"required,gte=1"`
}

// SRSConfig overrides scheduling parameters. Zero values keep the algorithm
// defaults, so the whole group is optional.
type SRSConfig struct {
	MinEaseFactor          float64 `mapstructure:"min_ease_factor"          validate:"gte=0"`
	MaxEaseFactor          float64 `mapstructure:"max_ease_factor"          validate:"gte=0"`
	EaseIncrement          float64 `mapstructure:"ease_increment"           validate:"gte=0"`
	EaseDecrement          float64 `mapstructure:"ease_decrement"           validate:"gte=0"`
	NewAdvanceStreak       int     `mapstructure:"new_advance_streak"       validate:"gte=0"`
	LearningAdvanceStreak  int     `mapstructure:"learning_advance_streak"  validate:"gte=0"`
	ReviewingAdvanceStreak int     `mapstructure:"reviewing_advance_streak" validate:"gte=0"`
}
