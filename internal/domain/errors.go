package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyTerm is returned when a vocabulary item has no term.
	ErrEmptyTerm = errors.New("term cannot be empty")

	// ErrInvalidMasteryLevel is returned when a mastery level is outside the
	// known ladder.
	ErrInvalidMasteryLevel = errors.New("invalid mastery level")

	// ErrInvalidSessionState is returned when a session state is not valid.
	ErrInvalidSessionState = errors.New("invalid session state")
)
