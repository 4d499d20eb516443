package srs

import (
	"time"

	"github.com/wordtrail/wordtrail-api/internal/domain"
)

// calculateNewEaseFactor determines the new ease factor after an answer.
//
// The ease factor represents how easy the item is for this user - higher
// values mean intervals grow faster. Correct answers raise it by a bounded
// step, incorrect answers lower it, and the result is always clamped to
// [params.MinEaseFactor, params.MaxEaseFactor].
func calculateNewEaseFactor(currentEF float64, correct bool, params *Params) float64 {
	var newEF float64
	if correct {
		newEF = currentEF + params.EaseIncrement
	} else {
		newEF = currentEF - params.EaseDecrement
	}

	// Ensure ease factor stays within configured limits
	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}
	if newEF > params.MaxEaseFactor {
		newEF = params.MaxEaseFactor
	}

	return newEF
}

// calculateNewMasteryLevel determines the mastery level after an answer.
//
// On a correct answer the level advances exactly one step once the new streak
// reaches the threshold configured for the current level; Mastered is an
// idempotent ceiling. On an incorrect answer the level regresses exactly one
// step, never below New. Levels are never skipped in either direction.
func calculateNewMasteryLevel(
	current domain.MasteryLevel,
	newStreak int,
	correct bool,
	params *Params,
) domain.MasteryLevel {
	if !correct {
		return current.Previous()
	}

	threshold, ok := params.AdvanceThresholds[current]
	if !ok {
		// No threshold configured means the level is terminal
		return current
	}
	if newStreak >= threshold {
		return current.Next()
	}
	return current
}

// calculateNewInterval determines the time until the next review.
//
// The interval is the base interval of the (possibly changed) mastery level
// scaled multiplicatively by the ease factor. After a regression the interval
// resets to the regressed level's base interval without the ease multiplier,
// so a lapsed item always comes back quickly.
func calculateNewInterval(
	level domain.MasteryLevel,
	easeFactor float64,
	regressed bool,
	params *Params,
) time.Duration {
	base := params.BaseIntervals[level]
	if regressed {
		return base
	}
	return time.Duration(float64(base) * easeFactor)
}

// calculateNextProgress creates a new LearningProgress with updated values
// based on an answer event.
//
// This is the single pure transition function of the engine. It never mutates
// its input; it returns a fresh record with:
//   - ReviewCount incremented unconditionally
//   - Streak incremented on correct, reset to zero on incorrect
//   - EaseFactor stepped and clamped
//   - MasteryLevel moved at most one step
//   - LastReviewedAt set to the event timestamp and NextReviewAt recomputed
//     from it, so the schedule is never stale relative to the new state
//
// The Version field is carried over unchanged; the store owns it.
func calculateNextProgress(
	progress *domain.LearningProgress,
	event *domain.AnswerEvent,
	params *Params,
) *domain.LearningProgress {
	next := progress.Clone()

	next.ReviewCount++
	if event.Correct {
		next.Streak++
	} else {
		next.Streak = 0
	}

	next.EaseFactor = calculateNewEaseFactor(progress.EaseFactor, event.Correct, params)
	next.MasteryLevel = calculateNewMasteryLevel(
		progress.MasteryLevel,
		next.Streak,
		event.Correct,
		params,
	)

	regressed := next.MasteryLevel.Rank() < progress.MasteryLevel.Rank()
	interval := calculateNewInterval(next.MasteryLevel, next.EaseFactor, regressed, params)

	next.LastReviewedAt = event.Timestamp
	next.NextReviewAt = event.Timestamp.Add(interval)
	next.UpdatedAt = event.Timestamp

	return next
}
