package challenge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store is empty")

	want := Challenge{TempToken: "abc", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, store.Save(ctx, want))

	got, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, store.Clear(ctx))
	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Clearing twice is fine.
	require.NoError(t, store.Clear(ctx))
}

func TestMemoryStoreDropsExpiredOnLoad(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Challenge{TempToken: "abc", ExpiresAt: now.Add(time.Second)}))

	now = now.Add(2 * time.Second)
	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "expired challenge counts as absent")
}

func TestMemoryStoreZeroExpiryNeverExpiresLocally(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Challenge{TempToken: "opaque"}))
	got, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "opaque", got.TempToken)
}
