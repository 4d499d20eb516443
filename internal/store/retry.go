package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/wordtrail/wordtrail-api/internal/domain"
)

// RetryPolicy parameterizes the engine-wide retry behavior for transient
// persistence failures. One policy instance is applied uniformly by the
// RetryingProgressStore rather than duplicated per call site.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget, including the first try.
	MaxAttempts int

	// BaseBackoff is the initial step of the exponential backoff between
	// attempts.
	BaseBackoff time.Duration
}

// DefaultRetryPolicy returns the standard policy: three attempts with
// exponential backoff starting at 50ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseBackoff: 50 * time.Millisecond,
	}
}

// backoff builds the go-retry backoff for one operation.
func (p RetryPolicy) backoff() retry.Backoff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := retry.NewExponential(p.BaseBackoff)
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

// RetryingProgressStore decorates a ProgressStore with the retry policy.
// Transient failures are retried until the attempt budget is exhausted and
// then surfaced as ErrPersistenceUnavailable; ErrInvalidState, ErrConflict,
// and ErrNotFound pass through untouched since retrying cannot help them.
type RetryingProgressStore struct {
	inner  ProgressStore
	policy RetryPolicy
	logger *slog.Logger
}

// NewRetryingProgressStore wraps the given store with the retry policy.
// If logger is nil, a default logger will be used.
func NewRetryingProgressStore(
	inner ProgressStore,
	policy RetryPolicy,
	logger *slog.Logger,
) *RetryingProgressStore {
	if inner == nil {
		panic("inner store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RetryingProgressStore{
		inner:  inner,
		policy: policy,
		logger: logger.With(slog.String("component", "retrying_progress_store")),
	}
}

// Ensure RetryingProgressStore implements the ProgressStore interface
var _ ProgressStore = (*RetryingProgressStore)(nil)

// do runs op under the retry policy, translating an exhausted budget into
// ErrPersistenceUnavailable.
func (s *RetryingProgressStore) do(ctx context.Context, name string, op func(context.Context) error) error {
	attempt := 0
	err := retry.Do(ctx, s.policy.backoff(), func(ctx context.Context) error {
		attempt++
		opErr := op(ctx)
		if opErr == nil {
			return nil
		}
		if IsTransient(opErr) {
			s.logger.Warn("transient storage failure, will retry",
				slog.String("operation", name),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", s.policy.MaxAttempts),
				slog.String("error", opErr.Error()))
			return retry.RetryableError(opErr)
		}
		return opErr
	})
	if err != nil && IsTransient(err) {
		s.logger.Error("retry budget exhausted",
			slog.String("operation", name),
			slog.Int("attempts", attempt),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s after %d attempts: %v",
			ErrPersistenceUnavailable, name, attempt, err)
	}
	return err
}

// Get implements ProgressStore.Get with retries on transient failures.
func (s *RetryingProgressStore) Get(
	ctx context.Context,
	userID, itemID uuid.UUID,
) (*domain.LearningProgress, error) {
	var progress *domain.LearningProgress
	err := s.do(ctx, "get", func(ctx context.Context) error {
		var opErr error
		progress, opErr = s.inner.Get(ctx, userID, itemID)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// Put implements ProgressStore.Put with retries on transient failures.
// Conflicts and invalid-state rejections are surfaced immediately.
func (s *RetryingProgressStore) Put(ctx context.Context, progress *domain.LearningProgress) error {
	return s.do(ctx, "put", func(ctx context.Context) error {
		return s.inner.Put(ctx, progress)
	})
}

// BulkPut implements ProgressStore.BulkPut. Items whose results are transient
// are re-submitted on the next attempt; everything else is final after the
// first report. When the budget runs out, still-pending items are reported as
// ErrPersistenceUnavailable rather than dropped.
func (s *RetryingProgressStore) BulkPut(
	ctx context.Context,
	progress []*domain.LearningProgress,
) ([]BulkResult, error) {
	results := make([]BulkResult, len(progress))
	pending := make([]int, len(progress))
	for i := range progress {
		pending[i] = i
	}

	err := retry.Do(ctx, s.policy.backoff(), func(ctx context.Context) error {
		batch := make([]*domain.LearningProgress, len(pending))
		for i, idx := range pending {
			batch[i] = progress[idx]
		}

		batchResults, batchErr := s.inner.BulkPut(ctx, batch)
		if batchErr != nil {
			if IsTransient(batchErr) {
				return retry.RetryableError(batchErr)
			}
			return batchErr
		}

		var stillPending []int
		for i, res := range batchResults {
			idx := pending[i]
			results[idx] = res
			if res.Err != nil && IsTransient(res.Err) {
				stillPending = append(stillPending, idx)
			}
		}
		pending = stillPending

		if len(pending) > 0 {
			return retry.RetryableError(fmt.Errorf("%w: %d items pending", ErrTransient, len(pending)))
		}
		return nil
	})

	if err != nil {
		if !IsTransient(err) {
			return nil, err
		}
		// Budget exhausted: report the pending items, never drop them.
		for _, idx := range pending {
			results[idx] = BulkResult{
				UserID: progress[idx].UserID,
				ItemID: progress[idx].ItemID,
				Err: fmt.Errorf("%w: bulk put after %d attempts",
					ErrPersistenceUnavailable, s.policy.MaxAttempts),
			}
		}
		s.logger.Error("bulk put retry budget exhausted",
			slog.Int("unpersisted", len(pending)),
			slog.Int("total", len(progress)))
	}

	return results, nil
}

// ListDue implements ProgressStore.ListDue with retries on transient failures.
func (s *RetryingProgressStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.LearningProgress, error) {
	var due []*domain.LearningProgress
	err := s.do(ctx, "list_due", func(ctx context.Context) error {
		var opErr error
		due, opErr = s.inner.ListDue(ctx, userID, now, limit)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return due, nil
}

// ListByUser implements ProgressStore.ListByUser with retries on transient failures.
func (s *RetryingProgressStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.LearningProgress, error) {
	var records []*domain.LearningProgress
	err := s.do(ctx, "list_by_user", func(ctx context.Context) error {
		var opErr error
		records, opErr = s.inner.ListByUser(ctx, userID)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteForUser implements ProgressStore.DeleteForUser with retries on
// transient failures.
func (s *RetryingProgressStore) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	return s.do(ctx, "delete_for_user", func(ctx context.Context) error {
		return s.inner.DeleteForUser(ctx, userID)
	})
}
