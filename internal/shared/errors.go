package shared

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
)

// Postgres error codes the transactional store surfaces on contention.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// RetryableError marks an error class whose whole operation can be re-run
// from the start. Implemented by the costing engine's version conflicts.
type RetryableError interface {
	error
	Retryable() bool
}

// IsRetryable reports whether the failed operation can be safely re-run:
// optimistic version conflicts and store-level serialization or deadlock
// aborts. Business rule failures are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return false
}
