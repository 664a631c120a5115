// Package window owns the mapping from a window identity to its active
// surface and its full set of live surfaces, and drives tab-switch
// transitions through the serializer, cache, pool, and placement engine.
package window

import (
	"sync"

	"github.com/wavetermdev/tabhost/internal/shared/id"
	"github.com/wavetermdev/tabhost/internal/surface"
	"github.com/wavetermdev/tabhost/internal/types"
)

// Window is one top-level application window.
type Window struct {
	winID id.WindowID

	mu       sync.Mutex
	bounds   types.Bounds
	surfaces map[id.SurfaceID]*surface.Surface
	active   *surface.Surface
}

func newWindow(winID id.WindowID, content types.Bounds) *Window {
	return &Window{
		winID:    winID,
		bounds:   content,
		surfaces: make(map[id.SurfaceID]*surface.Surface),
	}
}

// ID returns the window identifier.
func (w *Window) ID() id.WindowID { return w.winID }

// Bounds returns the window's current content bounds.
func (w *Window) Bounds() types.Bounds {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds
}

func (w *Window) setBounds(b types.Bounds) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bounds = b
}

// Active returns the currently displayed surface, nil if none.
func (w *Window) Active() *surface.Surface {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// setActive updates the active pointer. The active surface is always a
// member of the live set.
func (w *Window) setActive(s *surface.Surface) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s != nil {
		w.surfaces[s.ID()] = s
	}
	w.active = s
}

func (w *Window) addSurface(s *surface.Surface) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.surfaces[s.ID()] = s
}

func (w *Window) removeSurface(s *surface.Surface) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.surfaces, s.ID())
	if w.active == s {
		w.active = nil
	}
}

// Surfaces returns the window's live surfaces.
func (w *Window) Surfaces() []*surface.Surface {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*surface.Surface, 0, len(w.surfaces))
	for _, s := range w.surfaces {
		out = append(out, s)
	}
	return out
}

// others returns live surfaces except the given one.
func (w *Window) others(except *surface.Surface) []*surface.Surface {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*surface.Surface, 0, len(w.surfaces))
	for _, s := range w.surfaces {
		if s != except {
			out = append(out, s)
		}
	}
	return out
}
