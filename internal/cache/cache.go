// Package cache provides a read-through cache in front of the progress store.
// Population is lazy with a bounded TTL; writes invalidate (never update)
// the affected entries before the write is acknowledged, so a get that
// follows a successful put always observes the new value.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/wordtrail/wordtrail-api/internal/domain"
	"github.com/wordtrail/wordtrail-api/internal/store"
)

// Cache is the backend contract for progress entries. Implementations must be
// safe for concurrent use.
type Cache interface {
	// Get returns the cached entry and whether it was present and fresh.
	Get(ctx context.Context, key string) (*domain.LearningProgress, bool, error)

	// Set stores an entry with the given time-to-live.
	Set(ctx context.Context, key string, value *domain.LearningProgress, ttl time.Duration) error

	// Delete removes entries. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// progressKeyFor builds the cache key for a (user, item) pair.
func progressKeyFor(userID, itemID uuid.UUID) string {
	return fmt.Sprintf("progress:%s:%s", userID, itemID)
}

// CachedProgressStore decorates a ProgressStore with a read-through cache.
// Cache failures degrade to direct store access; the cache can disappear
// without affecting correctness, only latency.
type CachedProgressStore struct {
	inner  store.ProgressStore
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedProgressStore wraps the given store with the given cache backend.
// If logger is nil, a default logger will be used.
func NewCachedProgressStore(
	inner store.ProgressStore,
	cache Cache,
	ttl time.Duration,
	logger *slog.Logger,
) *CachedProgressStore {
	if inner == nil {
		panic("inner store cannot be nil")
	}
	if cache == nil {
		panic("cache cannot be nil")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CachedProgressStore{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "cached_progress_store")),
	}
}

// Ensure CachedProgressStore implements the store.ProgressStore interface
var _ store.ProgressStore = (*CachedProgressStore)(nil)

// Get implements store.ProgressStore.Get with read-through population.
func (s *CachedProgressStore) Get(
	ctx context.Context,
	userID, itemID uuid.UUID,
) (*domain.LearningProgress, error) {
	key := progressKeyFor(userID, itemID)

	cached, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed, falling through to store",
			slog.String("key", key),
			slog.String("error", err.Error()))
	} else if hit {
		return cached, nil
	}

	progress, err := s.inner.Get(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if setErr := s.cache.Set(ctx, key, progress, s.ttl); setErr != nil {
		s.logger.Warn("cache populate failed",
			slog.String("key", key),
			slog.String("error", setErr.Error()))
	}
	return progress, nil
}

// Put implements store.ProgressStore.Put. The cache entry is invalidated
// after the store accepts the write and before success is returned, which
// guarantees read-your-writes for the next Get. If invalidation fails the
// write is not acknowledged; replaying it is an idempotent no-op, so the
// caller can safely retry.
func (s *CachedProgressStore) Put(ctx context.Context, progress *domain.LearningProgress) error {
	if err := s.inner.Put(ctx, progress); err != nil {
		return err
	}
	return s.invalidate(ctx, progressKeyFor(progress.UserID, progress.ItemID))
}

// BulkPut implements store.ProgressStore.BulkPut, invalidating the entries of
// every acknowledged item before returning.
func (s *CachedProgressStore) BulkPut(
	ctx context.Context,
	progress []*domain.LearningProgress,
) ([]store.BulkResult, error) {
	results, err := s.inner.BulkPut(ctx, progress)
	if err != nil {
		return results, err
	}

	var keys []string
	for _, res := range results {
		if res.Err == nil {
			keys = append(keys, progressKeyFor(res.UserID, res.ItemID))
		}
	}
	if len(keys) > 0 {
		if invErr := s.invalidate(ctx, keys...); invErr != nil {
			// The writes landed but cannot be acknowledged with a possibly
			// stale cache; report them as not-yet-saved so callers retry.
			for i := range results {
				if results[i].Err == nil {
					results[i].Err = invErr
				}
			}
		}
	}
	return results, nil
}

// ListDue implements store.ProgressStore.ListDue. List reads bypass the
// cache; only point lookups are cached.
func (s *CachedProgressStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.LearningProgress, error) {
	return s.inner.ListDue(ctx, userID, now, limit)
}

// ListByUser implements store.ProgressStore.ListByUser, bypassing the cache.
func (s *CachedProgressStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.LearningProgress, error) {
	return s.inner.ListByUser(ctx, userID)
}

// DeleteForUser implements store.ProgressStore.DeleteForUser. The user's
// cached entries are enumerated before the delete so they can be invalidated
// afterwards.
func (s *CachedProgressStore) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	records, err := s.inner.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.inner.DeleteForUser(ctx, userID); err != nil {
		return err
	}

	keys := make([]string, 0, len(records))
	for _, record := range records {
		keys = append(keys, progressKeyFor(record.UserID, record.ItemID))
	}
	if len(keys) > 0 {
		return s.invalidate(ctx, keys...)
	}
	return nil
}

// invalidate drops entries. A failed invalidation is classified transient:
// the underlying write may have landed, but success cannot be returned while
// a stale entry could still be served.
func (s *CachedProgressStore) invalidate(ctx context.Context, keys ...string) error {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidation failed",
			slog.Int("keys", len(keys)),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: cache invalidation: %v", store.ErrTransient, err)
	}
	return nil
}
