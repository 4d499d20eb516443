// Package session implements the session coordinator: it owns live learning
// sessions, applies answer events through the scheduler, and batches the
// resulting progress writes to the store when a session closes.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wordtrail/wordtrail-api/internal/analytics"
	"github.com/wordtrail/wordtrail-api/internal/domain"
)

// Answer represents a user's answer to a review question.
type Answer struct {
	Correct bool          `json:"correct"`
	Latency time.Duration `json:"latency"`
}

// Service provides the engine's operations to the surrounding application
// layer. Sessions are opened per user, fed answer events one at a time, and
// closed to flush their progress writes.
type Service interface {
	// OpenSession starts a new learning session for a user.
	OpenSession(ctx context.Context, userID uuid.UUID) (*domain.Session, error)

	// SubmitAnswer applies one answer to a live session and returns the
	// updated progress immediately for UI feedback. The write itself is
	// buffered until the session closes.
	//
	// Returns ErrSessionNotFound if no session with the ID exists,
	// ErrSessionClosed if it is no longer accepting events, and
	// store.ErrItemNotFound if the item is not in the vocabulary catalog.
	SubmitAnswer(ctx context.Context, sessionID, itemID uuid.UUID, answer Answer) (*domain.LearningProgress, error)

	// CloseSession flushes the session's buffered writes and persists its
	// summary. When some writes cannot be persisted, the summary reports
	// the affected item IDs and the partially-persisted outcome; answers
	// are never silently dropped. A closed session cannot be reopened.
	//
	// Cancellation mid-flush stops new writes; the summary still reflects
	// exactly which items were committed before the cancellation.
	CloseSession(ctx context.Context, sessionID uuid.UUID) (*domain.SessionSummary, error)

	// GetProgress returns the user's progress for an item. A missing record
	// reads as the implicit New-state default, not an error.
	GetProgress(ctx context.Context, userID, itemID uuid.UUID) (*domain.LearningProgress, error)

	// GetReviewQueue returns up to limit items due for review, soonest
	// first, each paired with its catalog entry.
	GetReviewQueue(ctx context.Context, userID uuid.UUID, limit int) ([]ReviewItem, error)

	// PostponeReview pushes an item's next review forward by days without
	// touching mastery state.
	PostponeReview(ctx context.Context, userID, itemID uuid.UUID, days int) (*domain.LearningProgress, error)

	// GetAnalytics computes the user's progress snapshot over [from, to].
	GetAnalytics(ctx context.Context, userID uuid.UUID, from, to time.Time) (*analytics.Snapshot, error)

	// ResetProgress deletes every progress record belonging to the user.
	// Sessions and catalog items are untouched.
	ResetProgress(ctx context.Context, userID uuid.UUID) error
}

// ReviewItem pairs a due progress record with its vocabulary catalog entry.
// Item is nil when the catalog no longer carries the entry.
type ReviewItem struct {
	Progress *domain.LearningProgress
	Item     *domain.VocabularyItem
}

// Common error types for the session service
var (
	// ErrSessionNotFound indicates that no session with the given ID is
	// known, live or persisted.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed indicates the session is closing or closed and can
	// no longer accept events or be closed again.
	ErrSessionClosed = errors.New("session already closed")

	// ErrInvalidRange indicates an analytics range whose end precedes its
	// start.
	ErrInvalidRange = errors.New("invalid time range")
)

// ServiceError wraps errors from the session service with additional context.
// Consumers differentiate error kinds with errors.As/errors.Is instead of
// string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "submit_answer", "close_session")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError for the given operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
