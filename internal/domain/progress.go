package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MasteryLevel represents how well a user knows a vocabulary item. Levels
// form an ordered ladder; progress moves at most one step per answer event.
type MasteryLevel string

// Possible mastery level values, ordered from least to most familiar.
const (
	MasteryLevelNew       MasteryLevel = "new"
	MasteryLevelLearning  MasteryLevel = "learning"
	MasteryLevelReviewing MasteryLevel = "reviewing"
	MasteryLevelMastered  MasteryLevel = "mastered"
)

// masteryOrder maps each level to its position on the ladder.
var masteryOrder = map[MasteryLevel]int{
	MasteryLevelNew:       0,
	MasteryLevelLearning:  1,
	MasteryLevelReviewing: 2,
	MasteryLevelMastered:  3,
}

// Rank returns the position of the level on the mastery ladder, starting at
// zero for New. Returns -1 for an unknown level.
func (m MasteryLevel) Rank() int {
	rank, ok := masteryOrder[m]
	if !ok {
		return -1
	}
	return rank
}

// IsValid reports whether the level is one of the known ladder values.
func (m MasteryLevel) IsValid() bool {
	return m.Rank() >= 0
}

// Next returns the level one step up the ladder. Mastered stays Mastered.
func (m MasteryLevel) Next() MasteryLevel {
	switch m {
	case MasteryLevelNew:
		return MasteryLevelLearning
	case MasteryLevelLearning:
		return MasteryLevelReviewing
	case MasteryLevelReviewing, MasteryLevelMastered:
		return MasteryLevelMastered
	default:
		return m
	}
}

// Previous returns the level one step down the ladder. New stays New.
func (m MasteryLevel) Previous() MasteryLevel {
	switch m {
	case MasteryLevelMastered:
		return MasteryLevelReviewing
	case MasteryLevelReviewing:
		return MasteryLevelLearning
	case MasteryLevelLearning, MasteryLevelNew:
		return MasteryLevelNew
	default:
		return m
	}
}

// ValidMasteryProgression reports whether a write moving a record between two
// mastery levels is plausible given the review counts on each side. A single
// answer event moves the level at most one step, so a write may cross several
// levels only when it folds in at least that many events. Writes that violate
// this are a data-integrity signal and must be rejected by the store.
func ValidMasteryProgression(from, to MasteryLevel, fromCount, toCount int) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	steps := to.Rank() - from.Rank()
	if steps < 0 {
		steps = -steps
	}
	return steps <= toCount-fromCount
}

// Common validation errors for LearningProgress.
var (
	ErrEmptyProgressUserID = errors.New("learning progress user ID cannot be empty")
	ErrEmptyProgressItemID = errors.New("learning progress item ID cannot be empty")
	ErrNegativeReviewCount = errors.New("review count must be greater than or equal to 0")
	ErrNegativeStreak      = errors.New("streak must be greater than or equal to 0")
	ErrInvalidEaseFactor   = errors.New("ease factor must be greater than 1.0")
	ErrStaleNextReview     = errors.New("next review time cannot precede last review time")
)

// LearningProgress tracks a user's learning state for a single vocabulary
// item. One record exists per (user, item) pair. Records are created on first
// exposure and mutated only by applying srs.Service output through the
// progress store; NextReviewAt is always recomputed together with the rest of
// the state, never independently.
type LearningProgress struct {
	UserID         uuid.UUID    `json:"user_id"`
	ItemID         uuid.UUID    `json:"item_id"`
	MasteryLevel   MasteryLevel `json:"mastery_level"`
	ReviewCount    int          `json:"review_count"` // Total number of reviews, monotonic
	Streak         int          `json:"streak"`       // Consecutive correct answers, resets on incorrect
	EaseFactor     float64      `json:"ease_factor"`  // Bounded multiplier driving interval growth
	LastReviewedAt time.Time    `json:"last_reviewed_at"`
	NextReviewAt   time.Time    `json:"next_review_at"`
	Version        int64        `json:"version"` // Optimistic-concurrency version, managed by the store
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NewLearningProgress creates progress for a user and item with default
// values. New items are available for review immediately.
func NewLearningProgress(userID, itemID uuid.UUID, now time.Time) (*LearningProgress, error) {
	progress := &LearningProgress{
		UserID:         userID,
		ItemID:         itemID,
		MasteryLevel:   MasteryLevelNew,
		ReviewCount:    0,
		Streak:         0,
		EaseFactor:     1.3, // Minimum ease; grows with correct answers
		LastReviewedAt: time.Time{},
		NextReviewAt:   now,
		Version:        0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := progress.Validate(); err != nil {
		return nil, err
	}

	return progress, nil
}

// Validate checks if the LearningProgress has valid data.
// Returns an error if any field fails validation.
func (p *LearningProgress) Validate() error {
	if p.UserID == uuid.Nil {
		return ErrEmptyProgressUserID
	}
	if p.ItemID == uuid.Nil {
		return ErrEmptyProgressItemID
	}
	if !p.MasteryLevel.IsValid() {
		return ErrInvalidMasteryLevel
	}
	if p.ReviewCount < 0 {
		return ErrNegativeReviewCount
	}
	if p.Streak < 0 {
		return ErrNegativeStreak
	}
	if p.EaseFactor <= 1.0 {
		return ErrInvalidEaseFactor
	}
	if !p.LastReviewedAt.IsZero() && p.NextReviewAt.Before(p.LastReviewedAt) {
		return ErrStaleNextReview
	}
	return nil
}

// Clone returns a deep copy of the progress record. The srs package mutates
// copies only, never the stored instance.
func (p *LearningProgress) Clone() *LearningProgress {
	clone := *p
	return &clone
}

// Common validation errors for AnswerEvent.
var (
	ErrEmptyEventUserID     = errors.New("answer event user ID cannot be empty")
	ErrEmptyEventItemID     = errors.New("answer event item ID cannot be empty")
	ErrZeroEventTimestamp   = errors.New("answer event timestamp cannot be zero")
	ErrNegativeEventLatency = errors.New("answer event latency cannot be negative")
)

// AnswerEvent is the ephemeral input to the scheduler: one observed answer.
// Events are never persisted on their own; they drive progress transitions
// and are folded into session statistics.
type AnswerEvent struct {
	UserID    uuid.UUID     `json:"user_id"`
	ItemID    uuid.UUID     `json:"item_id"`
	Correct   bool          `json:"correct"`
	Latency   time.Duration `json:"latency"`
	Timestamp time.Time     `json:"timestamp"`
}

// Validate checks if the AnswerEvent has valid data.
func (e *AnswerEvent) Validate() error {
	if e.UserID == uuid.Nil {
		return ErrEmptyEventUserID
	}
	if e.ItemID == uuid.Nil {
		return ErrEmptyEventItemID
	}
	if e.Timestamp.IsZero() {
		return ErrZeroEventTimestamp
	}
	if e.Latency < 0 {
		return ErrNegativeEventLatency
	}
	return nil
}
