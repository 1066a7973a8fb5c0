package shared

import (
	"context"
	"time"
)

// Retry re-runs fn up to attempts times while it fails with a retryable
// error, backing off linearly between tries. The last error is returned
// unwrapped so callers can still match on it.
func Retry(ctx context.Context, attempts int, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil || !IsRetryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 50 * time.Millisecond):
		}
	}
	return err
}
