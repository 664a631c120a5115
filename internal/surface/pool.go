package surface

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wavetermdev/tabhost/internal/logging"
	"github.com/wavetermdev/tabhost/internal/monitoring"
)

// Pool keeps at most one pre-warmed, unbound spare surface so the common
// case of opening a new tab skips full construction latency. After a spare
// is taken the refill is deliberately delayed: replenishing immediately
// would contend for the same host-runtime resources the just-taken surface
// needs for its own bootstrap.
type Pool struct {
	factory *Factory
	delay   time.Duration
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu     sync.Mutex
	spare  *Surface
	timer  *time.Timer
	closed bool
}

// NewPool creates a hot-spare pool with the given replenishment delay.
func NewPool(factory *Factory, delay time.Duration, logger *logging.Logger, metrics *monitoring.Metrics) *Pool {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		factory: factory,
		delay:   delay,
		logger:  logger.Named("pool"),
		metrics: metrics,
	}
}

// EnsureSpare constructs a spare if none exists. Idempotent.
func (p *Pool) EnsureSpare(ctx context.Context) error {
	p.mu.Lock()
	if p.closed || (p.spare != nil && !p.spare.Destroyed()) {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	s, err := p.factory.CreateBareSurface(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	lost := p.closed || p.spare != nil
	if !lost {
		p.spare = s
	}
	p.mu.Unlock()

	if lost {
		// Lost the race to another EnsureSpare; never hold two spares.
		s.Destroy()
		return nil
	}
	p.metricsSpare(1)
	p.logger.Debug("spare ready", zap.String("surface_id", s.ID().String()))
	return nil
}

// TakeSpare returns the current spare, or falls back to direct
// construction on a miss. It never blocks on replenishment; the refill is
// scheduled to run after the pool's delay.
func (p *Pool) TakeSpare(ctx context.Context) (*Surface, error) {
	p.mu.Lock()
	s := p.spare
	p.spare = nil
	p.mu.Unlock()

	if s != nil && !s.Destroyed() {
		if p.metrics != nil {
			p.metrics.SpareHits.Inc()
		}
		p.metricsSpare(0)
		p.scheduleReplenish()
		return s, nil
	}

	if p.metrics != nil {
		p.metrics.SpareMisses.Inc()
	}
	created, err := p.factory.CreateBareSurface(ctx)
	if err != nil {
		return nil, err
	}
	p.scheduleReplenish()
	return created, nil
}

// Spare reports whether a spare is currently held.
func (p *Pool) Spare() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spare != nil && !p.spare.Destroyed()
}

// Close stops replenishment and destroys any held spare.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	s := p.spare
	p.spare = nil
	p.mu.Unlock()

	if s != nil {
		s.Destroy()
	}
}

func (p *Pool) scheduleReplenish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.delay, func() {
		if err := p.EnsureSpare(context.Background()); err != nil {
			p.logger.Warn("spare replenish failed", zap.Error(err))
		}
	})
}

func (p *Pool) metricsSpare(n float64) {
	if p.metrics != nil {
		p.metrics.SpareSurfaces.Set(n)
	}
}
