package surface

import (
	"context"
	"sync"
)

// Signal is a one-shot readiness latch. The first Fire releases every
// current and future waiter; later fires are reported but have no effect.
type Signal struct {
	mu    sync.Mutex
	ch    chan struct{}
	fired bool
}

// NewSignal creates an unfired signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Fire releases all waiters. Returns true on the first call, false if the
// signal had already fired.
func (s *Signal) Fire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired {
		return false
	}
	s.fired = true
	close(s.ch)
	return true
}

// Fired reports whether the signal has fired.
func (s *Signal) Fired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// Done returns a channel closed once the signal fires.
func (s *Signal) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

// Wait blocks until the signal fires or the context ends. Waiting on an
// already-fired signal returns immediately.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
