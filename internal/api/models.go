package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/wordtrail/wordtrail-api/internal/analytics"
	"github.com/wordtrail/wordtrail-api/internal/domain"
	"github.com/wordtrail/wordtrail-api/internal/service/session"
)

// Common request/response structures

// OpenSessionRequest defines the payload for the session creation endpoint.
type OpenSessionRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// SessionResponse defines the response for session lifecycle endpoints.
type SessionResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
}

// SubmitAnswerRequest defines the payload for the answer submission endpoint.
// LatencyMS is how long the user took to answer, in milliseconds.
type SubmitAnswerRequest struct {
	ItemID    uuid.UUID `json:"item_id"    validate:"required"`
	Correct   *bool     `json:"correct"    validate:"required"`
	LatencyMS int64     `json:"latency_ms" validate:"min=0"`
}

// ProgressResponse defines the response carrying a learning-progress record.
type ProgressResponse struct {
	UserID         uuid.UUID `json:"user_id"`
	ItemID         uuid.UUID `json:"item_id"`
	MasteryLevel   string    `json:"mastery_level"`
	ReviewCount    int       `json:"review_count"`
	Streak         int       `json:"streak"`
	EaseFactor     float64   `json:"ease_factor"`
	LastReviewedAt time.Time `json:"last_reviewed_at,omitempty"`
	NextReviewAt   time.Time `json:"next_review_at"`
}

// SessionSummaryResponse defines the response for the session close endpoint.
type SessionSummaryResponse struct {
	SessionID        uuid.UUID   `json:"session_id"`
	UserID           uuid.UUID   `json:"user_id"`
	StartedAt        time.Time   `json:"started_at"`
	EndedAt          time.Time   `json:"ended_at"`
	TotalAnswers     int         `json:"total_answers"`
	CorrectAnswers   int         `json:"correct_answers"`
	Outcome          string      `json:"outcome"`
	UnpersistedItems []uuid.UUID `json:"unpersisted_items,omitempty"`
}

// ReviewQueueItemResponse pairs a due progress record with its vocabulary
// entry. The term fields are empty when the catalog no longer carries the item.
type ReviewQueueItemResponse struct {
	ProgressResponse
	Term        string `json:"term,omitempty"`
	Translation string `json:"translation,omitempty"`
}

// ReviewQueueResponse defines the response for the review queue endpoint.
type ReviewQueueResponse struct {
	Items []ReviewQueueItemResponse `json:"items"`
}

// PostponeReviewRequest defines the payload for the review postpone endpoint.
type PostponeReviewRequest struct {
	Days int `json:"days" validate:"required,min=1,max=365"`
}

// AnalyticsResponse defines the response for the analytics endpoint.
type AnalyticsResponse struct {
	UserID              uuid.UUID      `json:"user_id"`
	From                time.Time      `json:"from"`
	To                  time.Time      `json:"to"`
	TotalStudyTimeMS    int64          `json:"total_study_time_ms"`
	SessionCount        int            `json:"session_count"`
	TotalAnswers        int            `json:"total_answers"`
	CorrectAnswers      int            `json:"correct_answers"`
	Accuracy            *float64       `json:"accuracy,omitempty"` // Absent when no answers exist
	MasteryDistribution map[string]int `json:"mastery_distribution"`
	MasteredItems       int            `json:"mastered_items"`
	LearningVelocity    float64        `json:"learning_velocity"`
	StreakDays          int            `json:"streak_days"`
}

// progressToResponse converts a domain.LearningProgress to a ProgressResponse.
func progressToResponse(progress *domain.LearningProgress) ProgressResponse {
	return ProgressResponse{
		UserID:         progress.UserID,
		ItemID:         progress.ItemID,
		MasteryLevel:   string(progress.MasteryLevel),
		ReviewCount:    progress.ReviewCount,
		Streak:         progress.Streak,
		EaseFactor:     progress.EaseFactor,
		LastReviewedAt: progress.LastReviewedAt,
		NextReviewAt:   progress.NextReviewAt,
	}
}

// reviewItemToResponse converts a session.ReviewItem to its response form.
func reviewItemToResponse(entry session.ReviewItem) ReviewQueueItemResponse {
	response := ReviewQueueItemResponse{
		ProgressResponse: progressToResponse(entry.Progress),
	}
	if entry.Item != nil {
		response.Term = entry.Item.Term
		response.Translation = entry.Item.Translation
	}
	return response
}

// summaryToResponse converts a domain.SessionSummary to its response form.
func summaryToResponse(summary *domain.SessionSummary) SessionSummaryResponse {
	return SessionSummaryResponse{
		SessionID:        summary.SessionID,
		UserID:           summary.UserID,
		StartedAt:        summary.StartedAt,
		EndedAt:          summary.EndedAt,
		TotalAnswers:     summary.TotalAnswers,
		CorrectAnswers:   summary.CorrectAnswers,
		Outcome:          string(summary.Outcome),
		UnpersistedItems: summary.UnpersistedItems,
	}
}

// snapshotToResponse converts an analytics.Snapshot to its response form.
func snapshotToResponse(snapshot *analytics.Snapshot) AnalyticsResponse {
	distribution := make(map[string]int, len(snapshot.MasteryDistribution))
	for level, count := range snapshot.MasteryDistribution {
		distribution[string(level)] = count
	}

	response := AnalyticsResponse{
		UserID:              snapshot.UserID,
		From:                snapshot.From,
		To:                  snapshot.To,
		TotalStudyTimeMS:    snapshot.TotalStudyTime.Milliseconds(),
		SessionCount:        snapshot.SessionCount,
		TotalAnswers:        snapshot.TotalAnswers,
		CorrectAnswers:      snapshot.CorrectAnswers,
		MasteryDistribution: distribution,
		MasteredItems:       snapshot.MasteredItems,
		LearningVelocity:    snapshot.LearningVelocity,
		StreakDays:          snapshot.StreakDays,
	}
	if snapshot.HasAccuracy {
		accuracy := snapshot.Accuracy
		response.Accuracy = &accuracy
	}
	return response
}
