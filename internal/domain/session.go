package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionState represents the lifecycle phase of a learning session.
// Sessions move strictly forward: Open -> Accepting -> Closing -> Closed.
// A Closed session can never be reopened.
type SessionState string

// Possible session state values.
const (
	SessionStateOpen      SessionState = "open"
	SessionStateAccepting SessionState = "accepting"
	SessionStateClosing   SessionState = "closing"
	SessionStateClosed    SessionState = "closed"
)

// sessionOrder maps each state to its position in the lifecycle.
var sessionOrder = map[SessionState]int{
	SessionStateOpen:      0,
	SessionStateAccepting: 1,
	SessionStateClosing:   2,
	SessionStateClosed:    3,
}

// IsValid reports whether the state is one of the known lifecycle values.
func (s SessionState) IsValid() bool {
	_, ok := sessionOrder[s]
	return ok
}

// CanTransitionTo reports whether the session lifecycle permits moving from
// the current state to the target state. Only forward moves are allowed.
func (s SessionState) CanTransitionTo(target SessionState) bool {
	from, okFrom := sessionOrder[s]
	to, okTo := sessionOrder[target]
	if !okFrom || !okTo {
		return false
	}
	return to > from
}

// PersistenceOutcome records how completely a closed session's progress
// writes made it to the store.
type PersistenceOutcome string

// Possible persistence outcome values.
const (
	// PersistenceOutcomeComplete means every buffered progress write was
	// acknowledged by the store.
	PersistenceOutcomeComplete PersistenceOutcome = "complete"

	// PersistenceOutcomePartial means the flush ended with one or more
	// unpersisted items; their IDs are reported in the session summary.
	PersistenceOutcomePartial PersistenceOutcome = "partially_persisted"
)

// Common validation errors for Session.
var (
	ErrEmptySessionUserID    = errors.New("session user ID cannot be empty")
	ErrEmptySessionID        = errors.New("session ID cannot be empty")
	ErrSessionEndBeforeStart = errors.New("session end time cannot precede start time")
)

// Session groups a bounded run of answer events for one user. The coordinator
// owns the session while it is live and persists it at completion.
type Session struct {
	ID             uuid.UUID          `json:"id"`
	UserID         uuid.UUID          `json:"user_id"`
	State          SessionState       `json:"state"`
	StartedAt      time.Time          `json:"started_at"`
	EndedAt        time.Time          `json:"ended_at"` // Zero while the session is live
	TotalAnswers   int                `json:"total_answers"`
	CorrectAnswers int                `json:"correct_answers"`
	Outcome        PersistenceOutcome `json:"outcome,omitempty"` // Set when the session closes
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// NewSession creates an open session for a user.
func NewSession(userID uuid.UUID, now time.Time) (*Session, error) {
	session := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		State:     SessionStateOpen,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	return session, nil
}

// Validate checks if the Session has valid data.
func (s *Session) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySessionID
	}
	if s.UserID == uuid.Nil {
		return ErrEmptySessionUserID
	}
	if !s.State.IsValid() {
		return ErrInvalidSessionState
	}
	if !s.EndedAt.IsZero() && s.EndedAt.Before(s.StartedAt) {
		return ErrSessionEndBeforeStart
	}
	return nil
}

// Duration returns the elapsed time of a finished session, or zero when the
// session has not ended yet.
func (s *Session) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// SessionSummary is the caller-facing result of closing a session. It carries
// the aggregate tallies plus the IDs of any items whose progress writes did
// not make it to the store, so that unsaved answers are never silently lost.
type SessionSummary struct {
	SessionID        uuid.UUID          `json:"session_id"`
	UserID           uuid.UUID          `json:"user_id"`
	StartedAt        time.Time          `json:"started_at"`
	EndedAt          time.Time          `json:"ended_at"`
	TotalAnswers     int                `json:"total_answers"`
	CorrectAnswers   int                `json:"correct_answers"`
	Outcome          PersistenceOutcome `json:"outcome"`
	UnpersistedItems []uuid.UUID        `json:"unpersisted_items,omitempty"`
}
