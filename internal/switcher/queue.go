// Package switcher serializes tab-switch transitions: at most one in
// flight per process, with a single overwritable pending slot so rapid
// repeated requests coalesce to the latest target instead of animating
// every stale intermediate.
package switcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wavetermdev/tabhost/internal/logging"
	"github.com/wavetermdev/tabhost/internal/monitoring"
)

var (
	// ErrSuperseded reports that a pending request was overwritten by a
	// newer one before it started. The superseded work never ran.
	ErrSuperseded = errors.New("switch superseded by newer request")

	// ErrClosed reports that the queue has shut down.
	ErrClosed = errors.New("switch queue closed")
)

// Task is one switch transition. It runs alone; the queue guarantees no
// two tasks overlap.
type Task func(ctx context.Context) error

// State is the queue's processing state.
type State int

const (
	StateIdle State = iota
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

type request struct {
	task Task
	done chan error
}

// Queue is the latest-wins serializer: one optional in-flight slot and one
// optional, overwritable pending slot. Queue length therefore never
// exceeds two, and completion of the in-flight task always advances to the
// pending one, error or not.
type Queue struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	state   State
	pending *request
	closed  bool
}

// NewQueue creates an idle queue.
func NewQueue(logger *logging.Logger, metrics *monitoring.Metrics) *Queue {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Queue{
		logger:  logger.Named("switcher"),
		metrics: metrics,
	}
}

// Enqueue submits a task. If the queue is idle the task starts
// immediately; otherwise it lands in the pending slot, displacing any
// previous occupant (whose channel receives ErrSuperseded). The returned
// channel yields the task's result exactly once.
func (q *Queue) Enqueue(task Task) <-chan error {
	req := &request{task: task, done: make(chan error, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		req.done <- ErrClosed
		return req.done
	}
	if q.state == StateProcessing {
		if q.pending != nil {
			q.pending.done <- ErrSuperseded
			if q.metrics != nil {
				q.metrics.SwitchesCoalesce.Inc()
			}
		}
		q.pending = req
		q.mu.Unlock()
		return req.done
	}
	q.state = StateProcessing
	q.mu.Unlock()

	go q.run(req)
	return req.done
}

// Busy reports whether a switch is in flight or pending. The placement
// reconciler consults this instead of peeking at queue internals.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state == StateProcessing || q.pending != nil
}

// Len returns the number of queued requests, in-flight included. Never
// exceeds two.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	if q.state == StateProcessing {
		n++
	}
	if q.pending != nil {
		n++
	}
	return n
}

// Close drains the pending slot with ErrClosed and rejects future
// submissions. An in-flight task still runs to completion.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	if q.pending != nil {
		q.pending.done <- ErrClosed
		q.pending = nil
	}
}

func (q *Queue) run(req *request) {
	for req != nil {
		req.done <- q.execute(req.task)

		q.mu.Lock()
		req = q.pending
		q.pending = nil
		if req == nil {
			q.state = StateIdle
		}
		q.mu.Unlock()
	}
}

// execute runs one task, converting panics into errors so a throwing
// transition can never wedge the queue.
func (q *Queue) execute(task Task) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("switch panicked: %v", r)
			q.logger.Error("switch transition panicked", zap.Any("panic", r))
		}
		if q.metrics != nil {
			q.metrics.SwitchesTotal.Inc()
			q.metrics.SwitchDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				q.metrics.SwitchesFailed.Inc()
			}
		}
	}()
	return task(context.Background())
}
