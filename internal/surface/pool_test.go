package surface

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSpareIdempotent(t *testing.T) {
	factory, registry, _ := newTestFactory(t)
	pool := NewPool(factory, time.Hour, nil, nil)
	defer pool.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, pool.EnsureSpare(context.Background()))
	}
	assert.True(t, pool.Spare())
	assert.Equal(t, 1, registry.Count(), "repeated EnsureSpare must never stack spares")
}

func TestTakeSpareHit(t *testing.T) {
	factory, _, _ := newTestFactory(t)
	pool := NewPool(factory, time.Hour, nil, nil)
	defer pool.Close()

	require.NoError(t, pool.EnsureSpare(context.Background()))
	s, err := pool.TakeSpare(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.False(t, pool.Spare(), "taken spare must be cleared")
}

func TestTakeSpareMissFallsBackToFactory(t *testing.T) {
	factory, registry, _ := newTestFactory(t)
	pool := NewPool(factory, time.Hour, nil, nil)
	defer pool.Close()

	s, err := pool.TakeSpare(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 1, registry.Count())
}

func TestReplenishAfterDelay(t *testing.T) {
	factory, registry, _ := newTestFactory(t)
	pool := NewPool(factory, 5*time.Millisecond, nil, nil)
	defer pool.Close()

	require.NoError(t, pool.EnsureSpare(context.Background()))
	taken, err := pool.TakeSpare(context.Background())
	require.NoError(t, err)

	assert.Eventually(t, pool.Spare, time.Second, 2*time.Millisecond,
		"pool should refill after the replenishment delay")

	// The delayed refill plus a manual EnsureSpare still yields exactly
	// one spare.
	require.NoError(t, pool.EnsureSpare(context.Background()))
	assert.Equal(t, 2, registry.Count(), "taken surface plus exactly one spare")
	assert.False(t, taken.Destroyed())
}

func TestCloseDestroysSpare(t *testing.T) {
	factory, registry, _ := newTestFactory(t)
	pool := NewPool(factory, time.Hour, nil, nil)

	require.NoError(t, pool.EnsureSpare(context.Background()))
	pool.Close()

	assert.Equal(t, 0, registry.Count())
	require.NoError(t, pool.EnsureSpare(context.Background()), "EnsureSpare after Close is a no-op")
	assert.False(t, pool.Spare())
}
