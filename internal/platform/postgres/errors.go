package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wordtrail/wordtrail-api/internal/store"
)

// PostgreSQL error codes
const (
	uniqueViolationCode    = "23505" // unique_violation
	serializationFailure   = "40001" // serialization_failure
	deadlockDetected       = "40P01" // deadlock_detected
	connectionExceptionCls = "08"    // connection exception class
	queryCanceled          = "57014" // query_canceled
	adminShutdown          = "57P01" // admin_shutdown
)

// isUniqueViolation checks if the given error is a PostgreSQL unique
// constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// isTransientPgError reports whether the error is a retriable infrastructure
// failure: lost connections, timeouts, deadlocks, serialization failures.
func isTransientPgError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == connectionExceptionCls:
			return true
		case pgErr.Code == serializationFailure,
			pgErr.Code == deadlockDetected,
			pgErr.Code == queryCanceled,
			pgErr.Code == adminShutdown:
			return true
		}
	}
	return pgconn.SafeToRetry(err)
}

// mapError classifies a driver error into the store taxonomy. Terminal errors
// pass through wrapped; transient ones are marked store.ErrTransient so the
// retry decorator picks them up.
func mapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if isTransientPgError(err) {
		return fmt.Errorf("%w: %s: %v", store.ErrTransient, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
