package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional config
// file. Environment variables (prefix WORDTRAIL_, nested keys joined with _)
// take precedence over file values, which take precedence over defaults.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file in the working directory
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars and defaults apply
	}

	v.SetEnvPrefix("WORDTRAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers the baseline configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Keys without a baseline value still need registering, or Unmarshal
	// will not see their env-only values.
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.redis_addr", "")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_backoff", 50*time.Millisecond)

	v.SetDefault("session.flush_chunk_size", 25)
	v.SetDefault("session.flush_parallelism", 4)

	// Zero keeps the scheduler's built-in defaults
	v.SetDefault("srs.min_ease_factor", 0.0)
	v.SetDefault("srs.max_ease_factor", 0.0)
	v.SetDefault("srs.ease_increment", 0.0)
	v.SetDefault("srs.ease_decrement", 0.0)
	v.SetDefault("srs.new_advance_streak", 0)
	v.SetDefault("srs.learning_advance_streak", 0)
	v.SetDefault("srs.reviewing_advance_streak", 0)
}
