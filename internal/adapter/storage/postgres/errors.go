package postgres

import (
	"errors"
	"fmt"

	"court-reservation-engine/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes that mean "run the unit of work again".
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateExclusionViolation   = "23P01"
	sqlStateLockNotAvailable     = "55P03" // lock_timeout hit while waiting on FOR UPDATE
)

// classify marks retryable PostgreSQL failures with ports.ErrConcurrencyConflict
// and leaves every other error untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateExclusionViolation, sqlStateLockNotAvailable:
			return fmt.Errorf("%w: %w", ports.ErrConcurrencyConflict, err)
		}
	}
	return err
}
