// Package store defines the persistence contracts of the progress engine and
// the error taxonomy shared by every backend: ErrNotFound, ErrConflict,
// ErrInvalidState, ErrTransient, and ErrPersistenceUnavailable. Concrete
// implementations live under internal/platform; the retry decorator in this
// package applies the engine-wide backoff policy uniformly.
package store
