package srs

import (
	"errors"
	"time"

	"github.com/wordtrail/wordtrail-api/internal/domain"
)

// Common errors
var (
	ErrNilProgress   = errors.New("learning progress cannot be nil")
	ErrNilEvent      = errors.New("answer event cannot be nil")
	ErrEventMismatch = errors.New("answer event does not match progress record")
	ErrInvalidDays   = errors.New("postpone days must be at least 1")
)

// Service defines the interface for scheduling operations. Implementations
// are pure: no I/O, no clocks, fully determined by inputs and parameters.
type Service interface {
	// Advance computes the next learning state from the current progress and
	// an observed answer event. The input progress is not modified.
	Advance(progress *domain.LearningProgress, event *domain.AnswerEvent) (*domain.LearningProgress, error)

	// Postpone pushes the next review time forward by a number of days
	// without affecting mastery, streak, or ease.
	Postpone(progress *domain.LearningProgress, days int, now time.Time) (*domain.LearningProgress, error)
}

// defaultService is the standard implementation of the Service interface.
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new scheduler service with default parameters.
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new scheduler service with custom parameters.
func NewServiceWithParams(params *Params) Service {
	return &defaultService{
		params: params,
	}
}

// Advance implements the Service interface.
func (s *defaultService) Advance(
	progress *domain.LearningProgress,
	event *domain.AnswerEvent,
) (*domain.LearningProgress, error) {
	if progress == nil {
		return nil, ErrNilProgress
	}
	if event == nil {
		return nil, ErrNilEvent
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if event.UserID != progress.UserID || event.ItemID != progress.ItemID {
		return nil, ErrEventMismatch
	}

	return calculateNextProgress(progress, event, s.params), nil
}

// Postpone implements the Service interface.
func (s *defaultService) Postpone(
	progress *domain.LearningProgress,
	days int,
	now time.Time,
) (*domain.LearningProgress, error) {
	if progress == nil {
		return nil, ErrNilProgress
	}
	if days < 1 {
		return nil, ErrInvalidDays
	}

	next := progress.Clone()
	next.NextReviewAt = progress.NextReviewAt.AddDate(0, 0, days)
	next.UpdatedAt = now

	return next, nil
}
