package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/wordtrail/wordtrail-api/internal/domain"
	"github.com/wordtrail/wordtrail-api/internal/store"
)

// PostgresSessionStore implements the store.SessionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSessionStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSessionStore creates a new PostgreSQL implementation of the
// SessionStore interface. If logger is nil, a default logger will be used.
func NewPostgresSessionStore(db *sql.DB, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// Ensure PostgresSessionStore implements store.SessionStore interface
var _ store.SessionStore = (*PostgresSessionStore)(nil)

const sessionColumns = `id, user_id, state, started_at, ended_at, total_answers,
	correct_answers, outcome, created_at, updated_at`

// scanSession reads one sessions row.
func scanSession(row interface{ Scan(dest ...any) error }) (*domain.Session, error) {
	var s domain.Session
	var endedAt sql.NullTime
	var outcome sql.NullString
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.State,
		&s.StartedAt,
		&endedAt,
		&s.TotalAnswers,
		&s.CorrectAnswers,
		&outcome,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		s.EndedAt = endedAt.Time
	}
	if outcome.Valid {
		s.Outcome = domain.PersistenceOutcome(outcome.String)
	}
	return &s, nil
}

// Create implements store.SessionStore.Create.
func (s *PostgresSessionStore) Create(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return fmt.Errorf("%w: nil session", store.ErrInvalidState)
	}
	if err := session.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidState, err)
	}

	query := `INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var outcome sql.NullString
	if session.Outcome != "" {
		outcome = sql.NullString{String: string(session.Outcome), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.State,
		session.StartedAt,
		nullableTime(session.EndedAt),
		session.TotalAnswers,
		session.CorrectAnswers,
		outcome,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: session %s already persisted", store.ErrInvalidState, session.ID)
	}
	return classify("create session", err)
}

// GetByID implements store.SessionStore.GetByID.
func (s *PostgresSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	session, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		return nil, classify("get session", err)
	}
	return session, nil
}

// ListByUser implements store.SessionStore.ListByUser.
func (s *PostgresSessionStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	from, to time.Time,
) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND started_at >= $2 AND started_at <= $3
		ORDER BY started_at ASC`

	rows, err := s.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, classify("list sessions", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var sessions []*domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, classify("list sessions", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list sessions", err)
	}
	return sessions, nil
}
