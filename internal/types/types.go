package types

import (
	"time"

	"github.com/wavetermdev/tabhost/internal/shared/id"
)

// Bounds describes a rectangle in window-content coordinates.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsZero reports whether the bounds carry no size information.
func (b Bounds) IsZero() bool {
	return b.Width == 0 && b.Height == 0
}

// At returns a copy of the bounds moved to the given origin.
func (b Bounds) At(x, y int) Bounds {
	return Bounds{X: x, Y: y, Width: b.Width, Height: b.Height}
}

// InitPayload is the initialization message sent to a surface's hosted
// content once the surface is attached to a window. A copy with
// Activate=false is retained on the surface so the payload can be replayed
// after a reload.
type InitPayload struct {
	TabID    id.TabID    `json:"tabid"`
	ClientID id.ClientID `json:"clientid"`
	WindowID id.WindowID `json:"windowid"`
	Activate bool        `json:"activate"`
}

// WithActivate returns a copy of the payload with the Activate flag set.
func (p InitPayload) WithActivate(activate bool) InitPayload {
	p.Activate = activate
	return p
}

// EventType classifies lifecycle events published to subscribers.
type EventType string

const (
	EventSurfaceCreated   EventType = "surface_created"
	EventSurfaceDestroyed EventType = "surface_destroyed"
	EventSurfaceEvicted   EventType = "surface_evicted"
	EventTabActivated     EventType = "tab_activated"
	EventTabClosed        EventType = "tab_closed"
	EventWindowCreated    EventType = "window_created"
	EventWindowClosed     EventType = "window_closed"
	EventSwitchFailed     EventType = "switch_failed"
)

// Event is a lifecycle notification emitted by the window binding.
type Event struct {
	Type      EventType    `json:"type"`
	WindowID  id.WindowID  `json:"window_id,omitempty"`
	TabID     id.TabID     `json:"tab_id,omitempty"`
	SurfaceID id.SurfaceID `json:"surface_id,omitempty"`
	Error     string       `json:"error,omitempty"`
	Time      time.Time    `json:"time"`
}

// Stats summarizes the state of the surface manager.
type Stats struct {
	Windows        int `json:"windows"`
	LiveSurfaces   int `json:"live_surfaces"`
	CachedSurfaces int `json:"cached_surfaces"`
	SpareSurfaces  int `json:"spare_surfaces"`
	SwitchesTotal  int `json:"switches_total"`
	SwitchesFailed int `json:"switches_failed"`
	Evictions      int `json:"evictions"`
}
