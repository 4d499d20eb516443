package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wordtrail/wordtrail-api/internal/domain"
)

// BulkResult reports the outcome of one item within a BulkPut. Err is nil
// when the write was applied (or recognized as an idempotent replay).
type BulkResult struct {
	UserID uuid.UUID
	ItemID uuid.UUID
	Err    error
}

// ProgressStore defines the interface for learning-progress persistence.
type ProgressStore interface {
	// Get retrieves the progress record for a (user, item) pair.
	// Returns ErrProgressNotFound if no record exists; callers treat that as
	// an implicit New-state default, not a failure.
	Get(ctx context.Context, userID, itemID uuid.UUID) (*domain.LearningProgress, error)

	// Put creates or updates a progress record using optimistic versioning.
	// The record's Version field must equal the stored version (zero for a
	// new record); on mismatch Put returns a ConflictError carrying the
	// current version. Replaying a write whose (user, item, review_count)
	// key was already applied is a no-op success, so duplicate application
	// of the same answer event is harmless. A write whose mastery level
	// crosses more levels than the review events it adds returns
	// ErrInvalidState and is never retried.
	Put(ctx context.Context, progress *domain.LearningProgress) error

	// BulkPut applies many progress writes with per-item reporting: every
	// input yields exactly one BulkResult, and a failed item never blocks
	// the others. The returned slice preserves input order. The returned
	// error is non-nil only when the batch as a whole could not be
	// attempted.
	BulkPut(ctx context.Context, progress []*domain.LearningProgress) ([]BulkResult, error)

	// ListDue returns up to limit progress records for the user whose next
	// review time is not after now, ordered by NextReviewAt ascending.
	ListDue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*domain.LearningProgress, error)

	// ListByUser returns all progress records for the user. Used by the
	// analytics aggregator to build snapshots.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.LearningProgress, error)

	// DeleteForUser removes every progress record belonging to the user.
	// Backs the user-level progress reset.
	DeleteForUser(ctx context.Context, userID uuid.UUID) error
}
