package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wordtrail/wordtrail-api/internal/domain"
	"github.com/wordtrail/wordtrail-api/internal/platform/memory"
	"github.com/wordtrail/wordtrail-api/internal/store"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// fastPolicy keeps test backoffs in the microsecond range.
func fastPolicy() store.RetryPolicy {
	return store.RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Microsecond}
}

func transientErr() error {
	return fmt.Errorf("%w: connection reset", store.ErrTransient)
}

func newRecord(t *testing.T, userID uuid.UUID) *domain.LearningProgress {
	t.Helper()
	progress, err := domain.NewLearningProgress(userID, uuid.New(), baseTime)
	require.NoError(t, err)
	return progress
}

func TestRetryingProgressStore_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	inner := memory.NewProgressStore()
	retrying := store.NewRetryingProgressStore(inner, fastPolicy(), nil)
	ctx := context.Background()

	userID := uuid.New()
	progress := newRecord(t, userID)

	// Two transient failures, then the third attempt lands
	inner.FailNext(transientErr(), transientErr())

	require.NoError(t, retrying.Put(ctx, progress))

	stored, err := retrying.Get(ctx, userID, progress.ItemID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
}

func TestRetryingProgressStore_ExhaustionBecomesUnavailable(t *testing.T) {
	t.Parallel()

	inner := memory.NewProgressStore()
	retrying := store.NewRetryingProgressStore(inner, fastPolicy(), nil)

	inner.FailNext(transientErr(), transientErr(), transientErr())

	err := retrying.Put(context.Background(), newRecord(t, uuid.New()))
	assert.ErrorIs(t, err, store.ErrPersistenceUnavailable)
}

func TestRetryingProgressStore_NonTransientPassesThrough(t *testing.T) {
	t.Parallel()

	inner := memory.NewProgressStore()
	retrying := store.NewRetryingProgressStore(inner, fastPolicy(), nil)
	ctx := context.Background()

	t.Run("not found is not retried", func(t *testing.T) {
		t.Parallel()
		_, err := retrying.Get(ctx, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, store.ErrProgressNotFound)
	})

	t.Run("conflict is not retried", func(t *testing.T) {
		t.Parallel()

		progress := newRecord(t, uuid.New())
		require.NoError(t, retrying.Put(ctx, progress))

		stale := progress.Clone() // Version still zero after the insert
		stale.ReviewCount = 1
		stale.LastReviewedAt = baseTime
		stale.NextReviewAt = baseTime.Add(time.Hour)
		assert.ErrorIs(t, retrying.Put(ctx, stale), store.ErrConflict)
	})

	t.Run("invalid state is not retried", func(t *testing.T) {
		t.Parallel()

		bad := newRecord(t, uuid.New())
		bad.MasteryLevel = domain.MasteryLevelMastered
		assert.ErrorIs(t, retrying.Put(ctx, bad), store.ErrInvalidState)
	})
}

func TestRetryingProgressStore_BulkPutRetriesOnlyTransientSubset(t *testing.T) {
	t.Parallel()

	inner := memory.NewProgressStore()
	retrying := store.NewRetryingProgressStore(inner, fastPolicy(), nil)
	ctx := context.Background()

	userID := uuid.New()
	good := newRecord(t, userID)
	bad := newRecord(t, userID)
	bad.MasteryLevel = domain.MasteryLevelMastered // Permanently invalid

	// The whole first batch attempt fails transiently, the second succeeds
	inner.FailNext(transientErr())

	results, err := retrying.BulkPut(ctx, []*domain.LearningProgress{good, bad})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, store.ErrInvalidState,
		"permanent failures are final after the first report")

	stored, err := inner.Get(ctx, userID, good.ItemID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
}

func TestRetryingProgressStore_BulkPutReportsExhaustedItems(t *testing.T) {
	t.Parallel()

	inner := memory.NewProgressStore()
	retrying := store.NewRetryingProgressStore(inner, fastPolicy(), nil)

	userID := uuid.New()
	progress := newRecord(t, userID)

	// Every attempt fails before any item is applied
	inner.FailNext(transientErr(), transientErr(), transientErr())

	results, err := retrying.BulkPut(context.Background(), []*domain.LearningProgress{progress})
	require.NoError(t, err, "exhaustion reports per item, not as a batch error")
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, store.ErrPersistenceUnavailable)
	assert.Equal(t, progress.ItemID, results[0].ItemID)
}
