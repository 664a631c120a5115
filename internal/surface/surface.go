// Package surface implements the tab-view surface lifecycle: construction,
// the global id lookup, the hot-spare pool, and the bounded recency cache.
package surface

import (
	"sync"
	"time"

	"github.com/wavetermdev/tabhost/internal/hostapi"
	"github.com/wavetermdev/tabhost/internal/shared/id"
	"github.com/wavetermdev/tabhost/internal/types"
)

// Surface is one renderable tab-view host. It starts unbound (no window,
// no tab) and is bound to a (window, tab) pair by the cache on first use.
type Surface struct {
	view hostapi.View
	sid  id.SurfaceID

	// InitReady fires when the surface finishes its local bootstrap;
	// ContentReady fires when the hosted content signals interactive.
	// Both are allocated up front so they can be resolved exactly once
	// from anywhere without races.
	InitReady    *Signal
	ContentReady *Signal

	mu          sync.Mutex
	tabID       id.TabID
	windowID    id.WindowID
	displayed   bool
	initialized bool
	destroyed   bool
	createdAt   time.Time
	lastUsed    time.Time
	savedInit   *types.InitPayload
}

func newSurface(view hostapi.View) *Surface {
	now := time.Now()
	return &Surface{
		view:         view,
		sid:          id.NewSurfaceID(),
		InitReady:    NewSignal(),
		ContentReady: NewSignal(),
		createdAt:    now,
		lastUsed:     now,
	}
}

// ID returns the application-level surface identifier.
func (s *Surface) ID() id.SurfaceID { return s.sid }

// HostID returns the process-local identifier assigned by the host runtime.
func (s *Surface) HostID() string { return s.view.ID() }

// View exposes the underlying host view.
func (s *Surface) View() hostapi.View { return s.view }

// Bind assigns the surface to a (window, tab) pair. A surface has at most
// one owning window at a time; rebinding replaces the previous owner.
func (s *Surface) Bind(windowID id.WindowID, tabID id.TabID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windowID = windowID
	s.tabID = tabID
}

// WindowID returns the owning window, empty while unbound or spare.
func (s *Surface) WindowID() id.WindowID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windowID
}

// TabID returns the bound tab identifier, empty while unbound.
func (s *Surface) TabID() id.TabID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tabID
}

// Displayed reports whether the surface is currently shown in its window.
// A displayed surface must never be evicted or destroyed by the cache.
func (s *Surface) Displayed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayed
}

// SetDisplayed flips the displayed flag.
func (s *Surface) SetDisplayed(displayed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayed = displayed
}

// Initialized reports whether the surface has completed a full transition
// at least once. Initialized surfaces take the fast reuse path on switch.
func (s *Surface) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// MarkInitialized records completion of the first full transition.
func (s *Surface) MarkInitialized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
}

// Touch updates the last-used timestamp.
func (s *Surface) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
}

// LastUsed returns the last-used timestamp.
func (s *Surface) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// CreatedAt returns the construction timestamp.
func (s *Surface) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createdAt
}

// SaveInit stores the payload replayed to the hosted content after a
// reload.
func (s *Surface) SaveInit(p types.InitPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savedInit = &p
}

// SavedInit returns the saved initialization payload, if any.
func (s *Surface) SavedInit() (types.InitPayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.savedInit == nil {
		return types.InitPayload{}, false
	}
	return *s.savedInit, true
}

// Destroy closes the underlying host view. Cleanup of the lookup table and
// cache happens through the view's destroyed handler, so out-of-band
// destroys take the same path.
func (s *Surface) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.mu.Unlock()
	s.view.Close()
}

// Destroyed reports whether Destroy has run or the view was destroyed
// out-of-band.
func (s *Surface) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

func (s *Surface) markDestroyed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
}
