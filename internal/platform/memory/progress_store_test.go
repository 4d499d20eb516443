package memory_test

import (
	"context"
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

// seedProgress inserts a first-review record and returns the stored state.
func seedProgress(
	t *testing.T,
	s *memory.ProgressStore,
	userID, itemID uuid.UUID,
) *domain.LearningProgress {
	t.Helper()
	ctx := context.Background()

	progress, err := domain.NewLearningProgress(userID, itemID, baseTime)
	require.NoError(t, err)
	progress.MasteryLevel = domain.MasteryLevelLearning
	progress.ReviewCount = 1
	progress.Streak = 1
	progress.EaseFactor = 1.4
	progress.LastReviewedAt = baseTime
	progress.NextReviewAt = baseTime.Add(24 * time.Hour)

	require.NoError(t, s.Put(ctx, progress))

	stored, err := s.Get(ctx, userID, itemID)
	require.NoError(t, err)
	return stored
}

func TestProgressStorePut_InsertAndGet(t *testing.T) {
	t.Parallel()

	s := memory.NewProgressStore()
	userID, itemID := uuid.New(), uuid.New()

	stored := seedProgress(t, s, userID, itemID)

	assert.Equal(t, int64(1), stored.Version, "store assigns version on insert")
	assert.Equal(t, domain.MasteryLevelLearning, stored.MasteryLevel)
	assert.Equal(t, 1, stored.ReviewCount)
}

func TestProgressStoreGet_NotFound(t *testing.T) {
	t.Parallel()

	s := memory.NewProgressStore()
	_, err := s.Get(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrProgressNotFound)
	assert.True(t, store.IsNotFoundError(err))
}

func TestProgressStorePut_InsertRequiresVersionZero(t *testing.T) {
	t.Parallel()

	s := memory.NewProgressStore()
	progress, err := domain.NewLearningProgress(uuid.New(), uuid.New(), baseTime)
	require.NoError(t, err)
	progress.Version = 3

	err = s.Put(context.Background(), progress)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestProgressStorePut_VersionConflict(t *testing.T) {
	t.Parallel()

	s := memory.NewProgressStore()
	userID, itemID := uuid.New(), uuid.New()
	stored := seedProgress(t, s, userID, itemID)

	// A different second event written with a stale version
	stale := stored.Clone()
	stale.Version = 0
	stale.ReviewCount = 2
	stale.Streak = 2
	stale.LastReviewedAt = baseTime.Add(time.Hour)
	stale.NextReviewAt = baseTime.Add(48 * time.Hour)

	err := s.Put(context.Background(), stale)
	require.ErrorIs(t, err, store.ErrConflict)

	var conflict *store.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(1), conflict.CurrentVersion)
}

func TestProgressStorePut_ReplayIsIdempotent(t *testing.T) {
	t.Parallel()

	s := memory.NewProgressStore()
	ctx := context.Background()
	userID, itemID := uuid.New(), uuid.New()
	stored := seedProgress(t, s, userID, itemID)

	// Same event applied again: same review count, same review timestamp,
	// stale version. Must be accepted as a no-op.
	replay := stored.Clone()
	replay.Version = 0
	require.NoError(t, s.Put(ctx, replay))

	after, err := s.Get(ctx, userID, itemID)
	require.NoError(t, err)
	assert.Equal(t, stored.Version, after.Version, "replay must not bump the version")
	assert.Equal(t, stored.ReviewCount, after.ReviewCount)
}

func TestProgressStorePut_LowerReviewCountIsReplay(t *testing.T) {
	t.Parallel()

	s := memory.NewProgressStore()
	ctx := context.Background()
	userID, itemID := uuid.New(), uuid.New()
	stored := seedProgress(t, s, userID, itemID)

	// An older write arriving late: strictly lower review count
	old := stored.Clone()
	old.Version = 0
	old.ReviewCount = 0
	old.MasteryLevel = domain.MasteryLevelNew
	old.LastReviewedAt = time.Time{}
	old.NextReviewAt = baseTime

	require.NoError(t, s.Put(ctx, old))

	after, err := s.Get(ctx, userID, itemID)
	require.NoError(t, err)
	assert.Equal(t, stored.ReviewCount, after.ReviewCount, "late replay must not roll state back")
}

func TestProgressStorePut_RejectsSkippedLevels(t *testing.T) {
	t.Parallel()

	s := memory.NewProgressStore()
	userID, itemID := uuid.New(), uuid.New()
	stored := seedProgress(t, s, userID, itemID)

	// Learning -> Mastered skips Reviewing
	jump := stored.Clone()
	jump.MasteryLevel = domain.MasteryLevelMastered
	jump.ReviewCount = 2
	jump.LastReviewedAt = baseTime.Add(time.Hour)
	jump.NextReviewAt = baseTime.Add(200 * time.Hour)

	err := s.Put(context.Background(), jump)
	assert.ErrorIs(t, err, store.ErrInvalidState)
}

func TestProgressStorePut_RejectsSkippedLevelOnInsert(t *testing.T) {
	t.Parallel()

	s := memory.NewProgressStore()
	progress, err := domain.NewLearningProgress(uuid.New(), uuid.New(), baseTime)
	require.NoError(t, err)
	progress.MasteryLevel = domain.MasteryLevelReviewing

	err = s.Put(context.Background(), progress)
	assert.ErrorIs(t, err, store.ErrInvalidState)
}

func TestProgressStoreBulkPut_PerItemReporting(t *testing.T) {
	t.Parallel()

	s := memory.NewProgressStore()
	ctx := context.Background()
	userID := uuid.New()

	good1, err := domain.NewLearningProgress(userID, uuid.New(), baseTime)
	require.NoError(t, err)
	good2, err := domain.NewLearningProgress(userID, uuid.New(), baseTime)
	require.NoError(t, err)

	bad, err := domain.NewLearningProgress(userID, uuid.New(), baseTime)
	require.NoError(t, err)
	bad.MasteryLevel = domain.MasteryLevelMastered // Skips the ladder on insert

	results, err := s.BulkPut(ctx, []*domain.LearningProgress{good1, bad, good2})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, store.ErrInvalidState)
	assert.NoError(t, results[2].Err)

	// The failed middle item must not block its neighbors
	_, err = s.Get(ctx, userID, good1.ItemID)
	assert.NoError(t, err)
	_, err = s.Get(ctx, userID, good2.ItemID)
	assert.NoError(t, err)
	_, err = s.Get(ctx, userID, bad.ItemID)
	assert.ErrorIs(t, err, store.ErrProgressNotFound)
}

func TestProgressStoreListDue(t *testing.T) {
	t.Parallel()

	s := memory.NewProgressStore()
	ctx := context.Background()
	userID := uuid.New()
	now := baseTime.Add(48 * time.Hour)

	mkRecord := func(due time.Time) uuid.UUID {
		itemID := uuid.New()
		progress, err := domain.NewLearningProgress(userID, itemID, baseTime)
		require.NoError(t, err)
		progress.NextReviewAt = due
		require.NoError(t, s.Put(ctx, progress))
		return itemID
	}

	first := mkRecord(baseTime)                 // Most overdue
	second := mkRecord(baseTime.Add(time.Hour)) // Overdue
	mkRecord(now.Add(time.Hour))                // Not due yet

	due, err := s.ListDue(ctx, userID, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, first, due[0].ItemID, "soonest due first")
	assert.Equal(t, second, due[1].ItemID)

	limited, err := s.ListDue(ctx, userID, now, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first, limited[0].ItemID)
}

func TestProgressStoreDeleteForUser(t *testing.T) {
	t.Parallel()

	s := memory.NewProgressStore()
	ctx := context.Background()
	userID, otherID := uuid.New(), uuid.New()

	seedProgress(t, s, userID, uuid.New())
	keptItem := uuid.New()
	seedProgress(t, s, otherID, keptItem)

	require.NoError(t, s.DeleteForUser(ctx, userID))

	mine, err := s.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, err := s.ListByUser(ctx, otherID)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
	assert.Equal(t, keptItem, theirs[0].ItemID)
}
