package srs

import (
	"time"

	"github.com/wordtrail/wordtrail-api/internal/domain"
)

// Params defines all configurable parameters for the scheduling algorithm.
type Params struct {
	// Core limits
	MinEaseFactor float64
	MaxEaseFactor float64

	// Bounded per-answer ease factor steps
	EaseIncrement float64 // Applied on a correct answer
	EaseDecrement float64 // Applied on an incorrect answer

	// AdvanceThresholds maps each mastery level to the streak required to
	// advance out of it. Levels absent from the map never advance.
	AdvanceThresholds map[domain.MasteryLevel]int

	// BaseIntervals maps each mastery level to the base review interval used
	// for that level. The effective interval is the base multiplied by the
	// ease factor; after a regression the base is used unmodified.
	BaseIntervals map[domain.MasteryLevel]time.Duration
}

// ParamsConfig allows overriding the default parameters when creating a new
// Params instance. Zero values keep the defaults.
type ParamsConfig struct {
	// Core limits
	MinEaseFactor float64
	MaxEaseFactor float64

	// Ease factor steps
	EaseIncrement float64
	EaseDecrement float64

	// Streak thresholds per level
	NewAdvanceStreak       int
	LearningAdvanceStreak  int
	ReviewingAdvanceStreak int

	// Base intervals per level
	NewBaseInterval       time.Duration
	LearningBaseInterval  time.Duration
	ReviewingBaseInterval time.Duration
	MasteredBaseInterval  time.Duration
}

// NewDefaultParams creates a new Params instance with default values.
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor: 1.3,
		MaxEaseFactor: 2.5,

		EaseIncrement: 0.1,
		EaseDecrement: 0.2,

		// Streak needed to leave each level
		AdvanceThresholds: map[domain.MasteryLevel]int{
			domain.MasteryLevelNew:       1,
			domain.MasteryLevelLearning:  3,
			domain.MasteryLevelReviewing: 5,
		},

		// Base intervals grow with the ladder; a fresh item comes back in
		// minutes while a mastered one waits a week
		BaseIntervals: map[domain.MasteryLevel]time.Duration{
			domain.MasteryLevelNew:       10 * time.Minute,
			domain.MasteryLevelLearning:  24 * time.Hour,
			domain.MasteryLevelReviewing: 72 * time.Hour,
			domain.MasteryLevelMastered:  168 * time.Hour,
		},
	}
}

// NewParams creates a new Params instance with custom configuration.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	// Override core limits if provided
	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.MaxEaseFactor > 0 {
		params.MaxEaseFactor = config.MaxEaseFactor
	}

	// Override ease steps if provided
	if config.EaseIncrement > 0 {
		params.EaseIncrement = config.EaseIncrement
	}
	if config.EaseDecrement > 0 {
		params.EaseDecrement = config.EaseDecrement
	}

	// Override advance thresholds if provided
	if config.NewAdvanceStreak > 0 {
		params.AdvanceThresholds[domain.MasteryLevelNew] = config.NewAdvanceStreak
	}
	if config.LearningAdvanceStreak > 0 {
		params.AdvanceThresholds[domain.MasteryLevelLearning] = config.LearningAdvanceStreak
	}
	if config.ReviewingAdvanceStreak > 0 {
		params.AdvanceThresholds[domain.MasteryLevelReviewing] = config.ReviewingAdvanceStreak
	}

	// Override base intervals if provided
	if config.NewBaseInterval > 0 {
		params.BaseIntervals[domain.MasteryLevelNew] = config.NewBaseInterval
	}
	if config.LearningBaseInterval > 0 {
		params.BaseIntervals[domain.MasteryLevelLearning] = config.LearningBaseInterval
	}
	if config.ReviewingBaseInterval > 0 {
		params.BaseIntervals[domain.MasteryLevelReviewing] = config.ReviewingBaseInterval
	}
	if config.MasteredBaseInterval > 0 {
		params.BaseIntervals[domain.MasteryLevelMastered] = config.MasteredBaseInterval
	}

	return params
}
