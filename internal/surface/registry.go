package surface

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wavetermdev/tabhost/internal/logging"
	"github.com/wavetermdev/tabhost/internal/monitoring"
)

// Registry is the global host-id → surface lookup table. The hosted
// content's out-of-band readiness messages carry only the host-runtime id,
// so this is the reverse-lookup path for resolving them onto the right
// surface's latches.
type Registry struct {
	mu      sync.RWMutex
	byHost  map[string]*Surface
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *logging.Logger, metrics *monitoring.Metrics) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		byHost:  make(map[string]*Surface),
		logger:  logger.Named("registry"),
		metrics: metrics,
	}
}

func (r *Registry) register(s *Surface) {
	r.mu.Lock()
	r.byHost[s.HostID()] = s
	n := len(r.byHost)
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.SurfacesLive.Set(float64(n))
	}
}

func (r *Registry) unregister(hostID string) {
	r.mu.Lock()
	delete(r.byHost, hostID)
	n := len(r.byHost)
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.SurfacesLive.Set(float64(n))
	}
}

// ByHostID looks up a surface by its host-runtime identifier.
func (r *Registry) ByHostID(hostID string) (*Surface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byHost[hostID]
	return s, ok
}

// Count returns the number of live registered surfaces.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHost)
}

// SignalInitReady resolves the bootstrap-ready latch for the surface with
// the given host id. If the latch already fired and the surface carries a
// saved initialization payload, the signal is treated as a reload and the
// payload is replayed automatically.
func (r *Registry) SignalInitReady(hostID string) {
	s, ok := r.ByHostID(hostID)
	if !ok {
		r.logger.Debug("init-ready for unknown surface", zap.String("host_id", hostID))
		return
	}
	if s.InitReady.Fire() {
		return
	}
	if saved, ok := s.SavedInit(); ok {
		r.logger.Info("replaying saved init after reload",
			zap.String("surface_id", s.ID().String()),
			zap.String("tab_id", saved.TabID.String()))
		if err := s.View().Send(saved); err != nil {
			r.logger.Warn("init replay failed", zap.String("surface_id", s.ID().String()), zap.Error(err))
		}
	}
}

// SignalContentReady resolves the content-ready latch for the surface with
// the given host id. Firing twice is a no-op.
func (r *Registry) SignalContentReady(hostID string) {
	s, ok := r.ByHostID(hostID)
	if !ok {
		r.logger.Debug("content-ready for unknown surface", zap.String("host_id", hostID))
		return
	}
	s.ContentReady.Fire()
}
