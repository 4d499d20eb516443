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

// SessionStore is an in-memory implementation of store.SessionStore.
// Safe for concurrent use.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.Session
	failNext []error
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*domain.Session),
	}
}

// Ensure SessionStore implements the store.SessionStore interface
var _ store.SessionStore = (*SessionStore)(nil)

// FailNext queues errors to be returned by the next operations.
func (s *SessionStore) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = append(s.failNext, errs...)
}

func (s *SessionStore) popFailure() error {
	if len(s.failNext) == 0 {
		return nil
	}
	err := s.failNext[0]
	s.failNext = s.failNext[1:]
	return err
}

// Create implements store.SessionStore.Create.
func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return err
	}

	if session == nil {
		return fmt.Errorf("%w: nil session", store.ErrInvalidState)
	}
	if err := session.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidState, err)
	}

	clone := *session
	s.sessions[session.ID] = &clone
	return nil
}

// GetByID implements store.SessionStore.GetByID.
func (s *SessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return nil, err
	}

	session, ok := s.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	clone := *session
	return &clone, nil
}

// ListByUser implements store.SessionStore.ListByUser.
func (s *SessionStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	from, to time.Time,
) ([]*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return nil, err
	}

	var sessions []*domain.Session
	for _, session := range s.sessions {
		if session.UserID != userID {
			continue
		}
		if session.StartedAt.Before(from) || session.StartedAt.After(to) {
			continue
		}
		clone := *session
		sessions = append(sessions, &clone)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
	return sessions, nil
}
