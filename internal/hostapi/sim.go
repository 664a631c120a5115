package hostapi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wavetermdev/tabhost/internal/logging"
	"github.com/wavetermdev/tabhost/internal/shared/id"
	"github.com/wavetermdev/tabhost/internal/types"
)

// ErrViewDestroyed is returned by operations on a view that has already
// been closed.
var ErrViewDestroyed = errors.New("view destroyed")

// Sim is an in-process Host implementation. Views load asynchronously
// after a configurable latency; the OnLoaded hook lets the embedder bridge
// load completion to the surface readiness signals the way real hosted
// content would.
type Sim struct {
	mu          sync.Mutex
	views       map[string]*SimView
	onLoaded    func(hostID string)
	LoadLatency time.Duration
	logger      *logging.Logger
}

// NewSim creates a simulator host.
func NewSim(logger *logging.Logger) *Sim {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sim{
		views:  make(map[string]*SimView),
		logger: logger.Named("hostsim"),
	}
}

// OnLoaded registers the hook invoked (on its own goroutine) when a view
// finishes its simulated baseline load.
func (s *Sim) OnLoaded(fn func(hostID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLoaded = fn
}

// Create constructs a simulated view and starts its baseline load.
func (s *Sim) Create(ctx context.Context, opts ViewOpts) (View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := &SimView{
		id:   uuid.NewString(),
		opts: opts,
		url:  opts.BaseURL,
		sim:  s,
	}

	s.mu.Lock()
	s.views[v.id] = v
	loaded := s.onLoaded
	latency := s.LoadLatency
	s.mu.Unlock()

	s.logger.Debug("view created", zap.String("host_id", v.id), zap.String("url", opts.BaseURL))

	if loaded != nil {
		hostID := v.id
		time.AfterFunc(latency, func() { loaded(hostID) })
	}
	return v, nil
}

// View returns a live simulated view by host id, for tests.
func (s *Sim) View(hostID string) (*SimView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[hostID]
	return v, ok
}

// Count returns the number of live simulated views.
func (s *Sim) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

func (s *Sim) forget(hostID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, hostID)
}

// ErrNavigationBlocked is returned by Navigate when the view's policy
// rejects the target and no external handler is configured.
var ErrNavigationBlocked = errors.New("navigation blocked by policy")

// SimView is the simulator's View implementation. Beyond the View contract
// it records attach/focus/send activity so tests can assert on the
// choreography.
type SimView struct {
	mu         sync.Mutex
	id         string
	opts       ViewOpts
	url        string
	bounds     types.Bounds
	attachedTo id.WindowID
	attached   bool
	focusCount int
	sent       []any
	destroyed  bool
	onDestroy  []func()
	sim        *Sim
}

func (v *SimView) ID() string { return v.id }

func (v *SimView) SetBounds(b types.Bounds) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bounds = b
}

func (v *SimView) Bounds() types.Bounds {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bounds
}

func (v *SimView) Attach(windowID id.WindowID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return ErrViewDestroyed
	}
	v.attachedTo = windowID
	v.attached = true
	return nil
}

func (v *SimView) Detach() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attached = false
	v.attachedTo = ""
}

func (v *SimView) Focus() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.focusCount++
}

func (v *SimView) Send(payload any) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return ErrViewDestroyed
	}
	v.sent = append(v.sent, payload)
	return nil
}

func (v *SimView) Close() {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return
	}
	v.destroyed = true
	handlers := v.onDestroy
	v.mu.Unlock()

	v.sim.forget(v.id)
	for _, fn := range handlers {
		fn()
	}
}

func (v *SimView) OnDestroyed(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onDestroy = append(v.onDestroy, fn)
}

// Navigate simulates an in-view navigation. URLs the navigation policy
// rejects never load; they go to the external handler instead when one is
// configured.
func (v *SimView) Navigate(url string) error {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return ErrViewDestroyed
	}
	opts := v.opts
	v.mu.Unlock()

	if opts.AllowNavigation != nil && !opts.AllowNavigation(url) {
		if opts.OpenExternal != nil {
			opts.OpenExternal(url)
			return nil
		}
		return ErrNavigationBlocked
	}

	v.mu.Lock()
	v.url = url
	v.mu.Unlock()
	return nil
}

// URL returns the view's current location.
func (v *SimView) URL() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.url
}

// AttachedTo reports which window the view is attached to, if any.
func (v *SimView) AttachedTo() (id.WindowID, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.attachedTo, v.attached
}

// FocusCount returns how many times Focus was called.
func (v *SimView) FocusCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.focusCount
}

// Sent returns a copy of all payloads delivered to the hosted content.
func (v *SimView) Sent() []any {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]any, len(v.sent))
	copy(out, v.sent)
	return out
}

// Destroyed reports whether the view has been closed.
func (v *SimView) Destroyed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.destroyed
}
