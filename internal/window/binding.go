package window

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wavetermdev/tabhost/internal/config"
	"github.com/wavetermdev/tabhost/internal/logging"
	"github.com/wavetermdev/tabhost/internal/monitoring"
	"github.com/wavetermdev/tabhost/internal/placement"
	"github.com/wavetermdev/tabhost/internal/shared/id"
	"github.com/wavetermdev/tabhost/internal/store"
	"github.com/wavetermdev/tabhost/internal/surface"
	"github.com/wavetermdev/tabhost/internal/switcher"
	"github.com/wavetermdev/tabhost/internal/types"
)

var (
	// ErrWindowNotFound reports an unknown window identifier.
	ErrWindowNotFound = errors.New("window not found")

	// ErrTabNotFound reports an unknown (window, tab) binding.
	ErrTabNotFound = errors.New("tab not found")

	// ErrCloseVetoed reports that the close confirmation declined the
	// window teardown.
	ErrCloseVetoed = errors.New("window close vetoed")
)

// EventSink receives lifecycle events. Implementations must not block.
type EventSink interface {
	Publish(ev types.Event)
}

// Deps are the collaborators a Binding is constructed from.
type Deps struct {
	Cache    *surface.Cache
	Pool     *surface.Pool
	Registry *surface.Registry
	Queue    *switcher.Queue
	Engine   *placement.Engine
	Data     store.DataService
	ClientID id.ClientID
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
	Sink     EventSink

	// ConfirmClose gates window destruction that would discard live tab
	// state. Nil means always confirmed.
	ConfirmClose func(*Window) bool
}

// Binding owns all windows of the process and performs tab-switch
// transitions.
type Binding struct {
	cache    *surface.Cache
	pool     *surface.Pool
	registry *surface.Registry
	queue    *switcher.Queue
	engine   *placement.Engine
	data     store.DataService
	clientID id.ClientID
	cfg      config.SurfaceConfig
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	sink     EventSink
	confirm  func(*Window) bool

	mu      sync.RWMutex
	windows map[id.WindowID]*Window

	// resolveMu serializes cache-miss resolution so two concurrent
	// activations of the same uncached tab cannot both construct a
	// surface and orphan one of them.
	resolveMu sync.Mutex

	switchesTotal  atomic.Int64
	switchesFailed atomic.Int64
}

// NewBinding creates the window binding.
func NewBinding(cfg config.SurfaceConfig, deps Deps) *Binding {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Binding{
		cache:    deps.Cache,
		pool:     deps.Pool,
		registry: deps.Registry,
		queue:    deps.Queue,
		engine:   deps.Engine,
		data:     deps.Data,
		clientID: deps.ClientID,
		cfg:      cfg,
		logger:   logger.Named("window"),
		metrics:  deps.Metrics,
		sink:     deps.Sink,
		confirm:  deps.ConfirmClose,
		windows:  make(map[id.WindowID]*Window),
	}
}

// CreateWindow opens a new top-level window. The full application
// configuration is read first; its tab-bar height is carved out of the
// outer bounds to produce the content bounds surfaces are placed in.
// Geometry is persisted; errors propagate without retry.
func (b *Binding) CreateWindow(ctx context.Context, outer types.Bounds) (*Window, error) {
	appCfg, err := b.data.FullConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch config: %w", err)
	}

	winID := id.NewWindowID()
	content := types.Bounds{
		X:      0,
		Y:      appCfg.TabBarHeight,
		Width:  outer.Width,
		Height: outer.Height - appCfg.TabBarHeight,
	}
	win := newWindow(winID, content)

	if err := b.data.SaveWindowGeometry(ctx, winID, outer); err != nil {
		return nil, fmt.Errorf("persist window geometry: %w", err)
	}

	b.mu.Lock()
	b.windows[winID] = win
	b.mu.Unlock()

	// Warm the pool so the window's first tab open hits a spare.
	if err := b.pool.EnsureSpare(ctx); err != nil {
		b.logger.Warn("spare warmup failed", zap.Error(err))
	}

	b.logger.Info("window created", zap.String("window_id", winID.String()))
	b.publish(types.Event{Type: types.EventWindowCreated, WindowID: winID})
	return win, nil
}

// Window returns a window by id.
func (b *Binding) Window(winID id.WindowID) (*Window, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	w, ok := b.windows[winID]
	return w, ok
}

// Windows returns all live windows.
func (b *Binding) Windows() []*Window {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Window, 0, len(b.windows))
	for _, w := range b.windows {
		out = append(out, w)
	}
	return out
}

// SetActiveTab resolves or creates the surface bound to (window, tab) and
// hands the switch to the serializer. It blocks until the transition
// completes; a request coalesced away returns ErrSuperseded. Transition
// errors leave the window's active surface unchanged.
func (b *Binding) SetActiveTab(ctx context.Context, winID id.WindowID, tabID id.TabID) error {
	win, ok := b.Window(winID)
	if !ok {
		return ErrWindowNotFound
	}

	s, alreadyInitialized, err := b.resolveSurface(ctx, winID, tabID)
	if err != nil {
		return fmt.Errorf("resolve surface: %w", err)
	}

	err = <-b.queue.Enqueue(func(qctx context.Context) error {
		return b.performSwitch(win, s, alreadyInitialized)
	})
	if err != nil {
		if !errors.Is(err, switcher.ErrSuperseded) {
			b.switchesFailed.Add(1)
			b.publish(types.Event{
				Type: types.EventSwitchFailed, WindowID: winID, TabID: tabID,
				SurfaceID: s.ID(), Error: err.Error(),
			})
		}
		return err
	}

	b.publish(types.Event{Type: types.EventTabActivated, WindowID: winID, TabID: tabID, SurfaceID: s.ID()})
	return nil
}

// resolveSurface returns the surface bound to (window, tab), taking a
// spare and caching it on a miss. Resolution holds resolveMu across the
// lookup and the insert: without it, two concurrent misses on the same
// key would each take a spare and the second Put would strand the first
// surface live in the registry with no cache entry left to destroy it.
func (b *Binding) resolveSurface(ctx context.Context, winID id.WindowID, tabID id.TabID) (*surface.Surface, bool, error) {
	b.resolveMu.Lock()
	defer b.resolveMu.Unlock()

	if s, ok := b.cache.Get(winID, tabID); ok {
		return s, s.Initialized(), nil
	}
	created, err := b.pool.TakeSpare(ctx)
	if err != nil {
		return nil, false, err
	}
	created.Bind(winID, tabID)
	b.cache.Put(winID, tabID, created)
	return created, false, nil
}

// performSwitch runs one transition. It executes alone: the serializer
// guarantees no two transitions overlap, so the whole routine is atomic
// with respect to "which surface is active".
func (b *Binding) performSwitch(win *Window, s *surface.Surface, alreadyInitialized bool) error {
	ctx := context.Background()
	if b.cfg.ReadyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.ReadyTimeout)
		defer cancel()
	}

	b.switchesTotal.Add(1)
	start := time.Now()
	b.logger.Debug("switch start",
		zap.String("window_id", win.ID().String()),
		zap.String("tab_id", s.TabID().String()),
		zap.Bool("reuse", alreadyInitialized))

	// Fail fast on the config round trip before any state is touched.
	if _, err := b.data.FullConfig(ctx); err != nil {
		return fmt.Errorf("fetch config: %w", err)
	}

	prev := win.Active()
	if prev != nil && prev != s {
		prev.SetDisplayed(false)
	}
	s.SetDisplayed(true)
	win.addSurface(s)

	rollback := func() {
		if prev != s {
			s.SetDisplayed(false)
		}
		if prev != nil && prev != s {
			prev.SetDisplayed(true)
		}
	}

	content := win.Bounds()
	if !alreadyInitialized {
		if err := s.InitReady.Wait(ctx); err != nil {
			rollback()
			return fmt.Errorf("wait bootstrap-ready: %w", err)
		}
		if err := s.View().Attach(win.ID()); err != nil {
			rollback()
			return fmt.Errorf("attach surface: %w", err)
		}
		payload := types.InitPayload{
			TabID:    s.TabID(),
			ClientID: b.clientID,
			WindowID: win.ID(),
			Activate: true,
		}
		if err := s.View().Send(payload); err != nil {
			rollback()
			return fmt.Errorf("send init payload: %w", err)
		}
		s.SaveInit(payload.WithActivate(false))
		b.engine.Stage(s, content)
		if err := s.ContentReady.Wait(ctx); err != nil {
			rollback()
			return fmt.Errorf("wait content-ready: %w", err)
		}
		if err := b.engine.StagingPause(ctx); err != nil {
			rollback()
			return err
		}
	} else {
		// Fast reuse path: stage and replay concurrently, no bootstrap
		// wait.
		b.engine.Stage(s, content)
		if saved, ok := s.SavedInit(); ok {
			view := s.View()
			go func() {
				if err := view.Send(saved); err != nil {
					b.logger.Warn("init replay failed", zap.Error(err))
				}
			}()
		}
		if err := b.engine.StagingPause(ctx); err != nil {
			rollback()
			return err
		}
	}

	// Persist the selection before the visual swap so a store failure
	// aborts with the previous tab still visible.
	if err := b.data.SetActiveTab(ctx, win.ID(), s.TabID()); err != nil {
		rollback()
		return fmt.Errorf("persist active tab: %w", err)
	}

	win.setActive(s)
	s.MarkInitialized()
	s.Touch()
	b.engine.Finalize(placement.WindowState{Active: s, Others: win.others(s), Bounds: content})

	// The host runtime can silently steal focus during attach; re-assert
	// a couple of times after short delays.
	view := s.View()
	view.Focus()
	for _, d := range b.cfg.RefocusDelays {
		time.AfterFunc(d, view.Focus)
	}

	b.logger.Info("switch complete",
		zap.String("window_id", win.ID().String()),
		zap.String("tab_id", s.TabID().String()),
		zap.Duration("took", time.Since(start)))
	return nil
}

// DestroyTab removes the (window, tab) binding and destroys its surface.
func (b *Binding) DestroyTab(ctx context.Context, winID id.WindowID, tabID id.TabID) error {
	win, ok := b.Window(winID)
	if !ok {
		return ErrWindowNotFound
	}
	s, ok := b.cache.Get(winID, tabID)
	if !ok {
		return ErrTabNotFound
	}

	b.cache.Remove(winID, tabID)
	win.removeSurface(s)
	s.SetDisplayed(false)
	s.Destroy()

	b.publish(types.Event{Type: types.EventTabClosed, WindowID: winID, TabID: tabID, SurfaceID: s.ID()})
	return nil
}

// DestroyWindow tears down a window and every surface bound to it. When
// the window holds live surfaces the close confirmation hook is consulted
// first.
func (b *Binding) DestroyWindow(ctx context.Context, winID id.WindowID) error {
	return b.destroyWindow(ctx, winID, false)
}

// DetachWindow removes a window while preserving its surfaces in the
// cache, for internal relaunch.
func (b *Binding) DetachWindow(ctx context.Context, winID id.WindowID) error {
	return b.destroyWindow(ctx, winID, true)
}

func (b *Binding) destroyWindow(ctx context.Context, winID id.WindowID, preserveSurfaces bool) error {
	win, ok := b.Window(winID)
	if !ok {
		return ErrWindowNotFound
	}

	if !preserveSurfaces && len(win.Surfaces()) > 0 && b.confirm != nil && !b.confirm(win) {
		return ErrCloseVetoed
	}

	b.mu.Lock()
	delete(b.windows, winID)
	b.mu.Unlock()

	if preserveSurfaces {
		for _, s := range win.Surfaces() {
			s.SetDisplayed(false)
			win.removeSurface(s)
			s.View().Detach()
		}
	} else {
		removed := b.cache.RemoveWindow(winID)
		for _, s := range win.Surfaces() {
			win.removeSurface(s)
		}
		for _, s := range removed {
			s.SetDisplayed(false)
			s.Destroy()
		}
		if err := b.data.DeleteWindow(ctx, winID); err != nil {
			b.logger.Warn("delete window state failed", zap.Error(err))
		}
	}

	b.logger.Info("window closed", zap.String("window_id", winID.String()), zap.Bool("preserved", preserveSurfaces))
	b.publish(types.Event{Type: types.EventWindowClosed, WindowID: winID})
	return nil
}

// Resize updates a window's content bounds, re-asserts placement for its
// surfaces, and persists the new geometry.
func (b *Binding) Resize(ctx context.Context, winID id.WindowID, outer types.Bounds) error {
	win, ok := b.Window(winID)
	if !ok {
		return ErrWindowNotFound
	}

	appCfg, err := b.data.FullConfig(ctx)
	if err != nil {
		return fmt.Errorf("fetch config: %w", err)
	}
	content := types.Bounds{
		X:      0,
		Y:      appCfg.TabBarHeight,
		Width:  outer.Width,
		Height: outer.Height - appCfg.TabBarHeight,
	}
	win.setBounds(content)

	if active := win.Active(); active != nil {
		b.engine.Finalize(placement.WindowState{Active: active, Others: win.others(active), Bounds: content})
	}
	if err := b.data.SaveWindowGeometry(ctx, winID, outer); err != nil {
		return fmt.Errorf("persist window geometry: %w", err)
	}
	return nil
}

// Snapshot returns placement state for every window with an active
// surface, for the reconciler.
func (b *Binding) Snapshot() []placement.WindowState {
	b.mu.RLock()
	wins := make([]*Window, 0, len(b.windows))
	for _, w := range b.windows {
		wins = append(wins, w)
	}
	b.mu.RUnlock()

	out := make([]placement.WindowState, 0, len(wins))
	for _, w := range wins {
		active := w.Active()
		if active == nil {
			continue
		}
		out = append(out, placement.WindowState{Active: active, Others: w.others(active), Bounds: w.Bounds()})
	}
	return out
}

// Stats summarizes manager state.
func (b *Binding) Stats() types.Stats {
	b.mu.RLock()
	windows := len(b.windows)
	b.mu.RUnlock()

	spares := 0
	if b.pool.Spare() {
		spares = 1
	}
	return types.Stats{
		Windows:        windows,
		LiveSurfaces:   b.registry.Count(),
		CachedSurfaces: b.cache.Len(),
		SpareSurfaces:  spares,
		SwitchesTotal:  int(b.switchesTotal.Load()),
		SwitchesFailed: int(b.switchesFailed.Load()),
		Evictions:      int(b.cache.Evictions()),
	}
}

func (b *Binding) publish(ev types.Event) {
	if b.sink == nil {
		return
	}
	ev.Time = time.Now()
	b.sink.Publish(ev)
}
