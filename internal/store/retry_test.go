package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glidepay/paycore/internal/domain"
	"github.com/glidepay/paycore/internal/store"
)

func TestRetryConflictsSucceedsAfterConflict(t *testing.T) {
	calls := 0
	err := store.RetryConflicts(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return domain.ErrStoreConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryConflictsExhaustion(t *testing.T) {
	calls := 0
	err := store.RetryConflicts(context.Background(), func(ctx context.Context) error {
		calls++
		return domain.ErrStoreConflict
	})
	assert.ErrorIs(t, err, domain.ErrTransientFailure)
	assert.ErrorIs(t, err, domain.ErrStoreConflict)
	assert.Equal(t, store.ConflictAttempts, calls)
}

func TestRetryConflictsPassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := store.RetryConflicts(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrTransientFailure)
	assert.Equal(t, 1, calls)
}

func TestRetryConflictsHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := store.RetryConflicts(ctx, func(ctx context.Context) error {
		cancel()
		return domain.ErrStoreConflict
	})
	assert.ErrorIs(t, err, context.Canceled)
}
