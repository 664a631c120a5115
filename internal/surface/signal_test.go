package surface

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalFiresOnce(t *testing.T) {
	s := NewSignal()
	assert.False(t, s.Fired())

	assert.True(t, s.Fire(), "first fire should report true")
	assert.False(t, s.Fire(), "second fire should be a no-op")
	assert.True(t, s.Fired())
}

func TestSignalWaitAfterFire(t *testing.T) {
	s := NewSignal()
	s.Fire()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx), "wait on fired signal should return immediately")
}

func TestSignalWaitHonorsContext(t *testing.T) {
	s := NewSignal()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSignalReleasesAllWaiters(t *testing.T) {
	s := NewSignal()

	const waiters = 8
	var wg sync.WaitGroup
	errs := make([]error, waiters)
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			errs[i] = s.Wait(ctx)
		}(i)
	}

	s.Fire()
	wg.Wait()
	for i, err := range errs {
		assert.NoError(t, err, "waiter %d", i)
	}
}
