package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/wordtrail/wordtrail-api/internal/domain"
	"github.com/wordtrail/wordtrail-api/internal/service/session"
	"github.com/wordtrail/wordtrail-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, store.ErrProgressNotFound),
		errors.Is(err, store.ErrSessionNotFound),
		errors.Is(err, store.ErrItemNotFound):
		return http.StatusNotFound

	// Lifecycle and concurrency conflicts
	case errors.Is(err, session.ErrSessionClosed),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, session.ErrInvalidRange),
		errors.Is(err, store.ErrInvalidState),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest

	// Persistence exhaustion after retries
	case errors.Is(err, store.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, store.ErrSessionNotFound):
		return "Session not found"

	case errors.Is(err, session.ErrSessionClosed):
		return "Session is already closed"

	case errors.Is(err, store.ErrItemNotFound):
		return "Vocabulary item not found"

	case errors.Is(err, store.ErrProgressNotFound):
		return "Progress record not found"

	case errors.Is(err, store.ErrConflict):
		return "The record was modified concurrently; please retry"

	case errors.Is(err, store.ErrInvalidState):
		return "The write was rejected as inconsistent"

	case errors.Is(err, store.ErrPersistenceUnavailable):
		return "Storage is temporarily unavailable; please retry later"

	case errors.Is(err, session.ErrInvalidRange):
		return "Invalid time range"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'SubmitAnswerRequest.Correct' Error:Field
	// validation for 'Correct' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return "Invalid " + field + ": " + getValidationTagMessage(tag)
				}
				return "Invalid " + field
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too small"
	case "max":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
