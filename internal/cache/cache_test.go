package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wordtrail/wordtrail-api/internal/cache"
	"github.com/wordtrail/wordtrail-api/internal/domain"
	"github.com/wordtrail/wordtrail-api/internal/platform/clock"
	"github.com/wordtrail/wordtrail-api/internal/platform/memory"
	"github.com/wordtrail/wordtrail-api/internal/store"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// flakyCache wraps a Cache and fails selected operations on demand.
type flakyCache struct {
	cache.Cache
	failGet    bool
	failDelete bool
}

func (f *flakyCache) Get(ctx context.Context, key string) (*domain.LearningProgress, bool, error) {
	if f.failGet {
		return nil, false, errors.New("cache backend down")
	}
	return f.Cache.Get(ctx, key)
}

func (f *flakyCache) Delete(ctx context.Context, keys ...string) error {
	if f.failDelete {
		return errors.New("cache backend down")
	}
	return f.Cache.Delete(ctx, keys...)
}

// harness builds a cached store over the in-memory implementations.
func harness(t *testing.T, ttl time.Duration) (*cache.CachedProgressStore, *memory.ProgressStore, *clock.Mock, *cache.Memory) {
	t.Helper()

	clk := clock.NewMock(baseTime)
	inner := memory.NewProgressStore()
	backend := cache.NewMemory(clk)
	cached := cache.NewCachedProgressStore(inner, backend, ttl, nil)
	return cached, inner, clk, backend
}

func seed(t *testing.T, s store.ProgressStore, userID, itemID uuid.UUID) *domain.LearningProgress {
	t.Helper()

	progress, err := domain.NewLearningProgress(userID, itemID, baseTime)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), progress))

	stored, err := s.Get(context.Background(), userID, itemID)
	require.NoError(t, err)
	return stored
}

func TestCachedProgressStore_ReadThrough(t *testing.T) {
	t.Parallel()

	cached, inner, _, backend := harness(t, 5*time.Minute)
	ctx := context.Background()
	userID, itemID := uuid.New(), uuid.New()
	seed(t, inner, userID, itemID)

	// First read populates the cache
	first, err := cached.Get(ctx, userID, itemID)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Len())

	// Second read is served from the cache: an injected store failure is
	// never observed
	inner.FailNext(errors.New("must not be called"))
	second, err := cached.Get(ctx, userID, itemID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCachedProgressStore_TTLExpiry(t *testing.T) {
	t.Parallel()

	cached, inner, clk, _ := harness(t, time.Minute)
	ctx := context.Background()
	userID, itemID := uuid.New(), uuid.New()
	seed(t, inner, userID, itemID)

	_, err := cached.Get(ctx, userID, itemID)
	require.NoError(t, err)

	// Past the TTL the next read must go back to the store
	clk.Advance(2 * time.Minute)
	inner.FailNext(store.ErrTransient)
	_, err = cached.Get(ctx, userID, itemID)
	assert.ErrorIs(t, err, store.ErrTransient)
}

func TestCachedProgressStore_ReadYourWrites(t *testing.T) {
	t.Parallel()

	cached, inner, _, _ := harness(t, 5*time.Minute)
	ctx := context.Background()
	userID, itemID := uuid.New(), uuid.New()
	stored := seed(t, inner, userID, itemID)

	// Populate the cache with the initial state
	_, err := cached.Get(ctx, userID, itemID)
	require.NoError(t, err)

	// Write through the cached store
	updated := stored.Clone()
	updated.ReviewCount = 1
	updated.Streak = 1
	updated.MasteryLevel = domain.MasteryLevelLearning
	updated.EaseFactor = 1.4
	updated.LastReviewedAt = baseTime.Add(time.Hour)
	updated.NextReviewAt = baseTime.Add(34 * time.Hour)
	require.NoError(t, cached.Put(ctx, updated))

	// The very next read observes the new state, not the cached old one
	after, err := cached.Get(ctx, userID, itemID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.ReviewCount)
	assert.Equal(t, domain.MasteryLevelLearning, after.MasteryLevel)
}

func TestCachedProgressStore_CacheFailureFallsThrough(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock(baseTime)
	inner := memory.NewProgressStore()
	flaky := &flakyCache{Cache: cache.NewMemory(clk), failGet: true}
	cached := cache.NewCachedProgressStore(inner, flaky, time.Minute, nil)

	ctx := context.Background()
	userID, itemID := uuid.New(), uuid.New()
	seed(t, inner, userID, itemID)

	// A broken cache degrades to direct store reads
	progress, err := cached.Get(ctx, userID, itemID)
	require.NoError(t, err)
	assert.Equal(t, itemID, progress.ItemID)
}

func TestCachedProgressStore_FailedInvalidationBlocksAck(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock(baseTime)
	inner := memory.NewProgressStore()
	flaky := &flakyCache{Cache: cache.NewMemory(clk)}
	cached := cache.NewCachedProgressStore(inner, flaky, time.Minute, nil)

	ctx := context.Background()
	userID, itemID := uuid.New(), uuid.New()
	stored := seed(t, inner, userID, itemID)

	flaky.failDelete = true

	updated := stored.Clone()
	updated.ReviewCount = 1
	updated.LastReviewedAt = baseTime.Add(time.Hour)
	updated.NextReviewAt = baseTime.Add(2 * time.Hour)
	updated.Streak = 1
	updated.MasteryLevel = domain.MasteryLevelLearning

	// The write is not acknowledged while a stale entry could be served;
	// the error is transient so the caller retries, and the retry is an
	// idempotent replay at the store.
	err := cached.Put(ctx, updated)
	assert.ErrorIs(t, err, store.ErrTransient)

	flaky.failDelete = false
	assert.NoError(t, cached.Put(ctx, updated))
}

func TestCachedProgressStore_BulkPutInvalidatesAcknowledgedItems(t *testing.T) {
	t.Parallel()

	cached, inner, _, backend := harness(t, 5*time.Minute)
	ctx := context.Background()
	userID := uuid.New()
	itemA, itemB := uuid.New(), uuid.New()
	storedA := seed(t, inner, userID, itemA)
	storedB := seed(t, inner, userID, itemB)

	// Warm the cache for both items
	_, err := cached.Get(ctx, userID, itemA)
	require.NoError(t, err)
	_, err = cached.Get(ctx, userID, itemB)
	require.NoError(t, err)
	require.Equal(t, 2, backend.Len())

	next := func(p *domain.LearningProgress) *domain.LearningProgress {
		out := p.Clone()
		out.ReviewCount++
		out.Streak++
		out.MasteryLevel = domain.MasteryLevelLearning
		out.LastReviewedAt = baseTime.Add(time.Hour)
		out.NextReviewAt = baseTime.Add(40 * time.Hour)
		return out
	}

	results, err := cached.BulkPut(ctx, []*domain.LearningProgress{next(storedA), next(storedB)})
	require.NoError(t, err)
	for _, res := range results {
		assert.NoError(t, res.Err)
	}

	afterA, err := cached.Get(ctx, userID, itemA)
	require.NoError(t, err)
	assert.Equal(t, storedA.ReviewCount+1, afterA.ReviewCount)

	afterB, err := cached.Get(ctx, userID, itemB)
	require.NoError(t, err)
	assert.Equal(t, storedB.ReviewCount+1, afterB.ReviewCount)
}

func TestMemoryCache_ExpiresLazily(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock(baseTime)
	backend := cache.NewMemory(clk)
	ctx := context.Background()

	progress, err := domain.NewLearningProgress(uuid.New(), uuid.New(), baseTime)
	require.NoError(t, err)

	require.NoError(t, backend.Set(ctx, "k", progress, time.Minute))

	_, hit, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)

	clk.Advance(time.Minute)
	_, hit, err = backend.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit, "an entry at its expiry is no longer served")
	assert.Equal(t, 0, backend.Len())
}
