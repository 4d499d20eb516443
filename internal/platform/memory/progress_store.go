// Package memory provides in-process implementations of the store contracts.
// They back the test suites and the local development mode; semantics match
// the postgres implementations, including optimistic versioning, idempotent
// replay detection, and invalid-transition rejection.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wordtrail/wordtrail-api/internal/domain"
	"github.com/wordtrail/wordtrail-api/internal/store"
)

// progressKey identifies one progress record.
type progressKey struct {
	userID uuid.UUID
	itemID uuid.UUID
}

// ProgressStore is an in-memory implementation of store.ProgressStore.
// Safe for concurrent use.
type ProgressStore struct {
	mu      sync.Mutex
	records map[progressKey]*domain.LearningProgress

	// failNext holds injected errors consumed one per operation, in order.
	// Tests use this to simulate transient backend failures.
	failNext []error
}

// NewProgressStore creates an empty in-memory progress store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		records: make(map[progressKey]*domain.LearningProgress),
	}
}

// Ensure ProgressStore implements the store.ProgressStore interface
var _ store.ProgressStore = (*ProgressStore)(nil)

// FailNext queues errors to be returned by the next operations, one error per
// operation, before any state is touched.
func (s *ProgressStore) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = append(s.failNext, errs...)
}

// popFailure consumes one injected error if any is queued.
// Callers must hold s.mu.
func (s *ProgressStore) popFailure() error {
	if len(s.failNext) == 0 {
		return nil
	}
	err := s.failNext[0]
	s.failNext = s.failNext[1:]
	return err
}

// Get implements store.ProgressStore.Get.
func (s *ProgressStore) Get(
	ctx context.Context,
	userID, itemID uuid.UUID,
) (*domain.LearningProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return nil, err
	}

	record, ok := s.records[progressKey{userID, itemID}]
	if !ok {
		return nil, store.ErrProgressNotFound
	}
	return record.Clone(), nil
}

// Put implements store.ProgressStore.Put.
func (s *ProgressStore) Put(ctx context.Context, progress *domain.LearningProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return err
	}

	return s.putLocked(progress)
}

// putLocked applies one write. Callers must hold s.mu.
func (s *ProgressStore) putLocked(progress *domain.LearningProgress) error {
	if progress == nil {
		return fmt.Errorf("%w: nil progress", store.ErrInvalidState)
	}
	if err := progress.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidState, err)
	}

	key := progressKey{progress.UserID, progress.ItemID}
	existing, ok := s.records[key]

	if !ok {
		if progress.Version != 0 {
			return store.NewConflictError(0)
		}
		if !domain.ValidMasteryProgression(
			domain.MasteryLevelNew, progress.MasteryLevel, 0, progress.ReviewCount) {
			return fmt.Errorf("%w: first write cannot reach %s with %d reviews",
				store.ErrInvalidState, progress.MasteryLevel, progress.ReviewCount)
		}
		stored := progress.Clone()
		stored.Version = 1
		s.records[key] = stored
		return nil
	}

	switch {
	case progress.Version == existing.Version:
		// Optimistic update against current state, checked below
	case progress.ReviewCount < existing.ReviewCount,
		progress.ReviewCount == existing.ReviewCount &&
			progress.LastReviewedAt.Equal(existing.LastReviewedAt):
		// Replay of an already-applied event: idempotent no-op
		return nil
	default:
		return store.NewConflictError(existing.Version)
	}

	if progress.ReviewCount < existing.ReviewCount {
		return fmt.Errorf("%w: review count cannot decrease", store.ErrInvalidState)
	}
	if !domain.ValidMasteryProgression(
		existing.MasteryLevel, progress.MasteryLevel,
		existing.ReviewCount, progress.ReviewCount) {
		return fmt.Errorf("%w: mastery cannot move from %s to %s in %d reviews",
			store.ErrInvalidState, existing.MasteryLevel, progress.MasteryLevel,
			progress.ReviewCount-existing.ReviewCount)
	}

	stored := progress.Clone()
	stored.Version = existing.Version + 1
	s.records[key] = stored
	return nil
}

// BulkPut implements store.ProgressStore.BulkPut. Each item is applied and
// reported independently; the whole batch shares one lock acquisition.
func (s *ProgressStore) BulkPut(
	ctx context.Context,
	progress []*domain.LearningProgress,
) ([]store.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return nil, err
	}

	results := make([]store.BulkResult, len(progress))
	for i, p := range progress {
		res := store.BulkResult{}
		if p != nil {
			res.UserID = p.UserID
			res.ItemID = p.ItemID
		}
		if err := ctx.Err(); err != nil {
			res.Err = fmt.Errorf("%w: %v", store.ErrTransient, err)
		} else {
			res.Err = s.putLocked(p)
		}
		results[i] = res
	}
	return results, nil
}

// ListDue implements store.ProgressStore.ListDue.
func (s *ProgressStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.LearningProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return nil, err
	}

	var due []*domain.LearningProgress
	for key, record := range s.records {
		if key.userID != userID {
			continue
		}
		if record.NextReviewAt.After(now) {
			continue
		}
		due = append(due, record.Clone())
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].NextReviewAt.Before(due[j].NextReviewAt)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// ListByUser implements store.ProgressStore.ListByUser.
func (s *ProgressStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.LearningProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return nil, err
	}

	var records []*domain.LearningProgress
	for key, record := range s.records {
		if key.userID == userID {
			records = append(records, record.Clone())
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ItemID.String() < records[j].ItemID.String()
	})
	return records, nil
}

// DeleteForUser implements store.ProgressStore.DeleteForUser.
func (s *ProgressStore) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return err
	}

	for key := range s.records {
		if key.userID == userID {
			delete(s.records, key)
		}
	}
	return nil
}
