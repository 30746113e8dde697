package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopValkey_SetGetDelete(t *testing.T) {
	v := NewNoopValkey(nil)
	ctx := context.Background()

	require.NoError(t, v.Set(ctx, "k1", "value", 0))
	got, err := v.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)

	require.NoError(t, v.Delete(ctx, "k1"))
	_, err = v.Get(ctx, "k1")
	assert.Error(t, err)
}

func TestNoopValkey_TTLExpiry(t *testing.T) {
	v := NewNoopValkey(nil)
	ctx := context.Background()

	require.NoError(t, v.Set(ctx, "k1", "value", 20*time.Millisecond))

	_, err := v.Get(ctx, "k1")
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	_, err = v.Get(ctx, "k1")
	assert.Error(t, err)
}

func TestNoopValkey_StatsSnapshotRoundTrip(t *testing.T) {
	v := NewNoopValkey(nil)
	ctx := context.Background()

	type snapshot struct {
		Total int `json:"total"`
	}
	require.NoError(t, v.CacheStatsSnapshot(ctx, "learning", snapshot{Total: 7}, time.Second))

	raw, err := v.GetStatsSnapshot(ctx, "learning")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":7}`, string(raw))
}

func TestNoopValkey_LockIsExclusiveUntilReleased(t *testing.T) {
	v := NewNoopValkey(nil)
	ctx := context.Background()

	ok, err := v.AcquireLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = v.AcquireLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, v.ReleaseLock(ctx, "sweep"))

	ok, err = v.AcquireLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNoopValkey_LockExpires(t *testing.T) {
	v := NewNoopValkey(nil)
	ctx := context.Background()

	ok, err := v.AcquireLock(ctx, "sweep", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	ok, err = v.AcquireLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
