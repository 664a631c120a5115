package surface

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wavetermdev/tabhost/internal/hostapi"
	"github.com/wavetermdev/tabhost/internal/logging"
)

// Factory constructs bare, unbound surfaces: host view created, baseline
// content loading in the background, destroy handler wired, and the
// surface registered in the global lookup before the call returns.
type Factory struct {
	host     hostapi.Host
	registry *Registry
	opts     hostapi.ViewOpts
	logger   *logging.Logger

	mu        sync.Mutex
	onDestroy []func(*Surface)
}

// NewFactory creates a surface factory.
func NewFactory(host hostapi.Host, registry *Registry, opts hostapi.ViewOpts, logger *logging.Logger) *Factory {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Factory{
		host:     host,
		registry: registry,
		opts:     opts,
		logger:   logger.Named("factory"),
	}
}

// OnDestroy registers a hook run whenever a surface created by this
// factory is destroyed, on any destroy path. The cache uses this to drop
// entries for surfaces that died out-of-band.
func (f *Factory) OnDestroy(fn func(*Surface)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDestroy = append(f.onDestroy, fn)
}

// CreateBareSurface constructs an unbound surface. Construction is local
// and synchronous; the underlying content load proceeds asynchronously.
func (f *Factory) CreateBareSurface(ctx context.Context) (*Surface, error) {
	view, err := f.host.Create(ctx, f.opts)
	if err != nil {
		return nil, fmt.Errorf("create surface view: %w", err)
	}

	s := newSurface(view)
	f.registry.register(s)

	hostID := view.ID()
	view.OnDestroyed(func() {
		s.markDestroyed()
		f.registry.unregister(hostID)
		f.mu.Lock()
		hooks := make([]func(*Surface), len(f.onDestroy))
		copy(hooks, f.onDestroy)
		f.mu.Unlock()
		for _, fn := range hooks {
			fn(s)
		}
		f.logger.Debug("surface destroyed", zap.String("surface_id", s.ID().String()), zap.String("host_id", hostID))
	})

	f.logger.Debug("surface created", zap.String("surface_id", s.ID().String()), zap.String("host_id", hostID))
	return s, nil
}
