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

// SessionHandler handles session lifecycle HTTP requests.
type SessionHandler struct {
	sessionService session.Service
	logger         *slog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService session.Service, log *slog.Logger) *SessionHandler {
	if sessionService == nil {
		panic("session service cannot be nil for SessionHandler")
	}
	if log == nil {
		panic("logger cannot be nil for SessionHandler")
	}

	return &SessionHandler{
		sessionService: sessionService,
		logger:         log.With(slog.String("component", "session_handler")),
	}
}

// OpenSession handles POST /sessions requests.
// It opens a new learning session for the requested user.
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req OpenSessionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	opened, err := h.sessionService.OpenSession(r.Context(), req.UserID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("session opened",
		slog.String("session_id", opened.ID.String()),
		slog.String("user_id", opened.UserID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, SessionResponse{
		ID:        opened.ID,
		UserID:    opened.UserID,
		State:     string(opened.State),
		StartedAt: opened.StartedAt,
	})
}

// SubmitAnswer handles POST /sessions/{sessionID}/answers requests.
// It applies one answer to the session and echoes the updated progress.
func (h *SessionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	sessionID, err := getPathUUID(r, "sessionID")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	var req SubmitAnswerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("session_id", sessionID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	progress, err := h.sessionService.SubmitAnswer(r.Context(), sessionID, req.ItemID, session.Answer{
		Correct: *req.Correct,
		Latency: time.Duration(req.LatencyMS) * time.Millisecond,
	})
	if err != nil {
		statusCode := MapErrorToStatusCode(err)
		safeMessage := GetSafeErrorMessage(err)
		if statusCode == http.StatusInternalServerError {
			safeMessage = "Failed to submit answer"
		}
		shared.RespondWithErrorAndLog(w, r, statusCode, safeMessage, err)
		return
	}

	log.Debug("answer submitted",
		slog.String("session_id", sessionID.String()),
		slog.String("item_id", req.ItemID.String()),
		slog.Bool("correct", *req.Correct))
	shared.RespondWithJSON(w, r, http.StatusOK, progressToResponse(progress))
}

// CloseSession handles POST /sessions/{sessionID}/close requests.
// It flushes the session's buffered writes and returns the summary.
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	sessionID, err := getPathUUID(r, "sessionID")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	summary, err := h.sessionService.CloseSession(r.Context(), sessionID)
	if err != nil {
		statusCode := MapErrorToStatusCode(err)
		safeMessage := GetSafeErrorMessage(err)
		if statusCode == http.StatusInternalServerError {
			safeMessage = "Failed to close session"
		}
		shared.RespondWithErrorAndLog(w, r, statusCode, safeMessage, err)
		return
	}

	log.Debug("session closed",
		slog.String("session_id", sessionID.String()),
		slog.String("outcome", string(summary.Outcome)))
	shared.RespondWithJSON(w, r, http.StatusOK, summaryToResponse(summary))
}
