package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wordtrail/wordtrail-api/internal/domain"
)

// Redis is a Cache backed by a redis server. Entries are stored as JSON with
// a server-side TTL, so expiry needs no janitor and invalidation is a DEL.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a redis-backed cache for the given address.
func NewRedis(addr string) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// NewRedisWithClient wraps an existing client, mainly for tests.
func NewRedisWithClient(client *redis.Client) *Redis {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &Redis{client: client}
}

// Ensure Redis implements the Cache interface
var _ Cache = (*Redis)(nil)

// Get implements Cache.Get.
func (r *Redis) Get(ctx context.Context, key string) (*domain.LearningProgress, bool, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var value domain.LearningProgress
	if err := json.Unmarshal(payload, &value); err != nil {
		// A corrupt entry behaves like a miss; the next Set repairs it
		return nil, false, nil
	}
	return &value, true, nil
}

// Set implements Cache.Set.
func (r *Redis) Set(
	ctx context.Context,
	key string,
	value *domain.LearningProgress,
	ttl time.Duration,
) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis set marshal: %w", err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements Cache.Delete.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
