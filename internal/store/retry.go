// Package store holds concerns shared by the ledger store implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/glidepay/paycore/internal/domain"
)

const (
	// ConflictAttempts bounds how often a conflicting store transaction is
	// retried before the failure is surfaced to the caller.
	ConflictAttempts = 3

	conflictBackoff = 25 * time.Millisecond
)

// RetryConflicts runs fn, retrying ErrStoreConflict up to ConflictAttempts
// times with a short growing backoff. Exhausted retries surface as
// ErrTransientFailure; every other error is returned as-is on the first
// occurrence.
func RetryConflicts(ctx context.Context, fn func(ctx context.Context) error) error {
	var last error
	for attempt := 0; attempt < ConflictAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(conflictBackoff * time.Duration(attempt)):
			}
		}
		last = fn(ctx)
		if last == nil || !errors.Is(last, domain.ErrStoreConflict) {
			return last
		}
	}
	return errors.Join(domain.ErrTransientFailure, last)
}
