package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxAttempts int, window time.Duration) (*MemoryAttemptStore, *time.Time) {
	t.Helper()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryAttemptStore(maxAttempts, window)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestFreshKeyIsAllowed(t *testing.T) {
	store, _ := newTestStore(t, 5, 15*time.Minute)

	decision, err := store.Check(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 4, decision.Remaining)
}

func TestBlockedAfterMaxAttempts(t *testing.T) {
	store, _ := newTestStore(t, 5, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		decision, err := store.Check(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "attempt %d should be allowed", i+1)
		assert.Equal(t, 4-i, decision.Remaining)
		require.NoError(t, store.Record(ctx, "1.2.3.4", false))
	}

	decision, err := store.Check(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Zero(t, decision.Remaining)
	assert.False(t, decision.ResetAt.IsZero(), "blocked decision carries the window reset time")

	// Other client keys are tracked independently.
	other, err := store.Check(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
	assert.Equal(t, 4, other.Remaining)
}

func TestSuccessfulLoginResetsKey(t *testing.T) {
	store, _ := newTestStore(t, 5, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, store.Record(ctx, "1.2.3.4", false))
	}
	require.NoError(t, store.Record(ctx, "1.2.3.4", true))

	decision, err := store.Check(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 4, decision.Remaining)
}

func TestWindowExpiryResetsKey(t *testing.T) {
	store, now := newTestStore(t, 5, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, "1.2.3.4", false))
	}

	blocked, err := store.Check(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, blocked.Allowed)

	*now = now.Add(15*time.Minute + time.Second)

	decision, err := store.Check(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 4, decision.Remaining)
}

func TestCheckDoesNotMutate(t *testing.T) {
	store, _ := newTestStore(t, 5, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		decision, err := store.Check(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, 4, decision.Remaining)
	}
}

func TestSweepDropsExpiredEntriesOnly(t *testing.T) {
	store, now := newTestStore(t, 5, 15*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "old", false))
	*now = now.Add(10 * time.Minute)
	require.NoError(t, store.Record(ctx, "recent", false))
	*now = now.Add(6 * time.Minute)

	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	decision, err := store.Check(ctx, "recent")
	require.NoError(t, err)
	assert.Equal(t, 3, decision.Remaining, "entry inside its window survives the sweep")
}
