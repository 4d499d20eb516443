package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wordtrail/wordtrail-api/internal/domain"
)

// SessionStore defines the interface for persisted session summaries.
// Live sessions are owned by the coordinator; only completed sessions reach
// the store.
type SessionStore interface {
	// Create persists a session record.
	// Returns validation errors from the domain Session if data is invalid.
	Create(ctx context.Context, session *domain.Session) error

	// GetByID retrieves a session by its unique ID.
	// Returns ErrSessionNotFound if the session does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)

	// ListByUser returns the user's sessions whose start time falls within
	// [from, to], ordered by StartedAt ascending.
	ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*domain.Session, error)
}
