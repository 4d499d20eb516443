package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wordtrail/wordtrail-api/internal/domain"
)

func TestSessionStateCanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from domain.SessionState
		to   domain.SessionState
		want bool
	}{
		{"open to accepting", domain.SessionStateOpen, domain.SessionStateAccepting, true},
		{"open to closing", domain.SessionStateOpen, domain.SessionStateClosing, true},
		{"accepting to closing", domain.SessionStateAccepting, domain.SessionStateClosing, true},
		{"closing to closed", domain.SessionStateClosing, domain.SessionStateClosed, true},
		{"closed to open", domain.SessionStateClosed, domain.SessionStateOpen, false},
		{"closed to accepting", domain.SessionStateClosed, domain.SessionStateAccepting, false},
		{"accepting to open", domain.SessionStateAccepting, domain.SessionStateOpen, false},
		{"same state", domain.SessionStateOpen, domain.SessionStateOpen, false},
		{"unknown state", domain.SessionState("paused"), domain.SessionStateClosed, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestNewSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("starts open with no end time", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		session, err := domain.NewSession(userID, now)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, session.ID)
		assert.Equal(t, userID, session.UserID)
		assert.Equal(t, domain.SessionStateOpen, session.State)
		assert.Equal(t, now, session.StartedAt)
		assert.True(t, session.EndedAt.IsZero())
		assert.Zero(t, session.Duration())
	})

	t.Run("rejects empty user ID", func(t *testing.T) {
		t.Parallel()
		_, err := domain.NewSession(uuid.Nil, now)
		assert.ErrorIs(t, err, domain.ErrEmptySessionUserID)
	})
}

func TestSessionValidate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	session, err := domain.NewSession(uuid.New(), now)
	require.NoError(t, err)

	t.Run("end before start", func(t *testing.T) {
		t.Parallel()
		bad := *session
		bad.EndedAt = now.Add(-time.Minute)
		assert.ErrorIs(t, bad.Validate(), domain.ErrSessionEndBeforeStart)
	})

	t.Run("invalid state", func(t *testing.T) {
		t.Parallel()
		bad := *session
		bad.State = "paused"
		assert.ErrorIs(t, bad.Validate(), domain.ErrInvalidSessionState)
	})
}

func TestSessionDuration(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	session, err := domain.NewSession(uuid.New(), now)
	require.NoError(t, err)

	session.State = domain.SessionStateClosed
	session.EndedAt = now.Add(25 * time.Minute)
	assert.Equal(t, 25*time.Minute, session.Duration())
}
