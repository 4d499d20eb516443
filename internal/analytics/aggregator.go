// Package analytics computes read-only progress snapshots from a user's
// learning-progress records and session history. The aggregator is stateless
// and pure: it folds whatever it is given and tolerates gaps in the data.
// Absent data is reported through explicit has-data flags instead of NaN or
// errors.
package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/wordtrail/wordtrail-api/internal/domain"
)

// Snapshot is a computed view over a user's progress within a time range.
// It has no independent lifecycle; it is recomputed on demand.
type Snapshot struct {
	UserID uuid.UUID `json:"user_id"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`

	// Session-derived statistics
	TotalStudyTime time.Duration `json:"total_study_time"`
	SessionCount   int           `json:"session_count"`
	TotalAnswers   int           `json:"total_answers"`
	CorrectAnswers int           `json:"correct_answers"`

	// Accuracy is CorrectAnswers / TotalAnswers. Valid only when HasAccuracy
	// is true; with zero answers there is no accuracy, not an accuracy of 0.
	Accuracy    float64 `json:"accuracy"`
	HasAccuracy bool    `json:"has_accuracy"`

	// Progress-derived statistics
	MasteryDistribution map[domain.MasteryLevel]int `json:"mastery_distribution"`
	MasteredItems       int                         `json:"mastered_items"`

	// LearningVelocity is items mastered per day across the range.
	LearningVelocity float64 `json:"learning_velocity"`

	// StreakDays counts consecutive days with at least one completed
	// session, walking back from the end of the range.
	StreakDays int `json:"streak_days"`
}

// Compute builds a snapshot for the range [from, to]. Sessions outside the
// range, still-open sessions, and sessions with missing end times contribute
// nothing; they are skipped rather than treated as errors.
func Compute(
	userID uuid.UUID,
	progress []*domain.LearningProgress,
	sessions []*domain.Session,
	from, to time.Time,
) *Snapshot {
	snapshot := &Snapshot{
		UserID: userID,
		From:   from,
		To:     to,
		MasteryDistribution: map[domain.MasteryLevel]int{
			domain.MasteryLevelNew:       0,
			domain.MasteryLevelLearning:  0,
			domain.MasteryLevelReviewing: 0,
			domain.MasteryLevelMastered:  0,
		},
	}

	activeDays := make(map[string]bool)

	for _, session := range sessions {
		if session == nil || session.State != domain.SessionStateClosed {
			continue
		}
		if session.EndedAt.IsZero() {
			continue
		}
		if session.StartedAt.Before(from) || session.StartedAt.After(to) {
			continue
		}

		snapshot.SessionCount++
		snapshot.TotalStudyTime += session.Duration()
		snapshot.TotalAnswers += session.TotalAnswers
		snapshot.CorrectAnswers += session.CorrectAnswers
		activeDays[dayOf(session.EndedAt)] = true
	}

	if snapshot.TotalAnswers > 0 {
		snapshot.Accuracy = float64(snapshot.CorrectAnswers) / float64(snapshot.TotalAnswers)
		snapshot.HasAccuracy = true
	}

	masteredInRange := 0
	for _, record := range progress {
		if record == nil {
			continue
		}
		snapshot.MasteryDistribution[record.MasteryLevel]++
		if record.MasteryLevel == domain.MasteryLevelMastered {
			snapshot.MasteredItems++
			if !record.LastReviewedAt.Before(from) && !record.LastReviewedAt.After(to) {
				masteredInRange++
			}
		}
	}

	if days := rangeDays(from, to); days > 0 {
		snapshot.LearningVelocity = float64(masteredInRange) / days
	}

	snapshot.StreakDays = streak(activeDays, to)

	return snapshot
}

// dayOf buckets a timestamp into its UTC calendar day.
func dayOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// rangeDays returns the range length in days, at least 1 for any non-empty
// range so velocity never divides by zero.
func rangeDays(from, to time.Time) float64 {
	if !to.After(from) {
		return 0
	}
	days := to.Sub(from).Hours() / 24
	if days < 1 {
		return 1
	}
	return days
}

// streak counts consecutive active days walking back from the end of the
// range. A day without sessions at the very end does not break a run that
// ended yesterday.
func streak(activeDays map[string]bool, to time.Time) int {
	if len(activeDays) == 0 {
		return 0
	}

	day := to.UTC().Truncate(24 * time.Hour)
	if !activeDays[dayOf(day)] {
		day = day.AddDate(0, 0, -1)
	}

	count := 0
	for activeDays[dayOf(day)] {
		count++
		day = day.AddDate(0, 0, -1)
	}
	return count
}
