package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wordtrail/wordtrail-api/internal/api/shared"
	"github.com/wordtrail/wordtrail-api/internal/platform/logger"
	"github.com/wordtrail/wordtrail-api/internal/redact"
	"github.com/wordtrail/wordtrail-api/internal/service/session"
)

// defaultReviewQueueLimit caps the review queue when the client does not ask
// for a specific size.
const defaultReviewQueueLimit = 20

// ProgressHandler handles progress, review-queue, and analytics HTTP requests.
type ProgressHandler struct {
	sessionService session.Service
	logger         *slog.Logger
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(sessionService session.Service, log *slog.Logger) *ProgressHandler {
	if sessionService == nil {
		panic("session service cannot be nil for ProgressHandler")
	}
	if log == nil {
		panic("logger cannot be nil for ProgressHandler")
	}

	return &ProgressHandler{
		sessionService: sessionService,
		logger:         log.With(slog.String("component", "progress_handler")),
	}
}

// GetProgress handles GET /users/{userID}/progress/{itemID} requests.
// Items never reviewed report the default New state rather than 404.
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := getPathUUID(r, "userID")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	itemID, err := getPathUUID(r, "itemID")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	progress, err := h.sessionService.GetProgress(r.Context(), userID, itemID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, progressToResponse(progress))
}

// GetReviewQueue handles GET /users/{userID}/review-queue requests.
// The optional limit query parameter caps the queue size.
func (h *ProgressHandler) GetReviewQueue(w http.ResponseWriter, r *http.Request) {
	userID, err := getPathUUID(r, "userID")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	limit, err := getQueryInt(r, "limit", defaultReviewQueueLimit)
	if err != nil || limit < 1 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	due, err := h.sessionService.GetReviewQueue(r.Context(), userID, limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	response := ReviewQueueResponse{Items: make([]ReviewQueueItemResponse, 0, len(due))}
	for _, entry := range due {
		response.Items = append(response.Items, reviewItemToResponse(entry))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// ResetProgress handles DELETE /users/{userID}/progress requests, removing
// every progress record for the user.
func (h *ProgressHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, err := getPathUUID(r, "userID")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if err := h.sessionService.ResetProgress(r.Context(), userID); err != nil {
		statusCode := MapErrorToStatusCode(err)
		safeMessage := GetSafeErrorMessage(err)
		if statusCode == http.StatusInternalServerError {
			safeMessage = "Failed to reset progress"
		}
		shared.RespondWithErrorAndLog(w, r, statusCode, safeMessage, err)
		return
	}

	log.Debug("progress reset", slog.String("user_id", userID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// PostponeReview handles POST /users/{userID}/progress/{itemID}/postpone
// requests, pushing the item's next review forward by the requested days.
func (h *ProgressHandler) PostponeReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, err := getPathUUID(r, "userID")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	itemID, err := getPathUUID(r, "itemID")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	var req PostponeReviewRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	progress, err := h.sessionService.PostponeReview(r.Context(), userID, itemID, req.Days)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("review postponed",
		slog.String("user_id", userID.String()),
		slog.String("item_id", itemID.String()),
		slog.Int("days", req.Days))
	shared.RespondWithJSON(w, r, http.StatusOK, progressToResponse(progress))
}

// GetAnalytics handles GET /users/{userID}/analytics requests. The from and to
// query parameters bound the snapshot; they default to the trailing 30 days.
func (h *ProgressHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, err := getPathUUID(r, "userID")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	now := time.Now().UTC()
	to, err := getQueryTime(r, "to", now)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	from, err := getQueryTime(r, "from", to.AddDate(0, 0, -30))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	snapshot, err := h.sessionService.GetAnalytics(r.Context(), userID, from, to)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, snapshotToResponse(snapshot))
}
