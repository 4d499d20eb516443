package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. For progress reads the caller treats this as an implicit
	// New-state default rather than a failure.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when an optimistic-concurrency check fails:
	// the record was modified since it was read. Wrapped by ConflictError,
	// which carries the version currently in the store.
	ErrConflict = errors.New("version conflict")

	// ErrInvalidState is returned when a write would apply an illegal state
	// transition, such as a mastery level crossing more levels than its
	// review count can account for. Such
	// writes are rejected immediately and never retried; they indicate a
	// caller bypassing the scheduler.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrTransient marks a retriable I/O failure (connectivity, timeout).
	// The retry decorator consumes this classification; callers above it
	// should only ever observe ErrPersistenceUnavailable.
	ErrTransient = errors.New("transient storage failure")

	// ErrPersistenceUnavailable is returned when the retry budget for a
	// transient failure has been exhausted.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")

	// Entity-specific "not found" errors

	// ErrProgressNotFound indicates that the requested learning progress
	// record does not exist in the store.
	ErrProgressNotFound = fmt.Errorf("%w: learning progress", ErrNotFound)

	// ErrSessionNotFound indicates that the requested session does not exist
	// in the store.
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)

	// ErrItemNotFound indicates that the requested vocabulary item does not
	// exist in the catalog.
	ErrItemNotFound = fmt.Errorf("%w: vocabulary item", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransient checks if the error is classified as retriable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// ConflictError reports an optimistic-concurrency failure together with the
// version currently held by the store, so the caller can recompute against
// fresh state and retry.
type ConflictError struct {
	CurrentVersion int64
}

// Error implements the error interface for ConflictError.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: current version is %d", e.CurrentVersion)
}

// Unwrap returns ErrConflict to support errors.Is.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// NewConflictError creates a ConflictError for the given stored version.
func NewConflictError(currentVersion int64) *ConflictError {
	return &ConflictError{CurrentVersion: currentVersion}
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "progress", "session")
	Operation string // The operation that failed (e.g., "get", "put")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation,
// message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
