package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_Exclusive(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	release, err := locker.TryLock(ctx, "followup:c1", time.Minute)
	require.NoError(t, err)

	_, err = locker.TryLock(ctx, "followup:c1", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	other, err := locker.TryLock(ctx, "followup:c2", time.Minute)
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := locker.TryLock(ctx, "followup:c1", time.Minute)
	require.NoError(t, err)
	again()
}

func TestLocalLocker_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	locker := NewLocalLocker()
	locker.now = func() time.Time { return now }
	ctx := context.Background()

	staleRelease, err := locker.TryLock(ctx, "ingest:a1", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	fresh, err := locker.TryLock(ctx, "ingest:a1", time.Minute)
	require.NoError(t, err, "expired hold should be reclaimable")

	// releasing the expired hold must not free the new holder's key
	staleRelease()
	_, err = locker.TryLock(ctx, "ingest:a1", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	fresh()
}

func TestLocalLocker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalLocker().TryLock(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
