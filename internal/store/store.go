// Package store is the backend data service boundary: full application
// configuration, per-window active-tab selection, and window geometry
// persistence. The surface manager calls it and propagates its errors
// unchanged; there is no retry layer.
package store

import (
	"context"
	"errors"

	"github.com/wavetermdev/tabhost/internal/shared/id"
	"github.com/wavetermdev/tabhost/internal/types"
)

// ErrNotFound reports a missing record.
var ErrNotFound = errors.New("not found")

// AppConfig is the full application configuration read before windows and
// surfaces are created.
type AppConfig struct {
	Theme        string  `json:"theme"`
	TabBarHeight int     `json:"tab_bar_height"`
	ZoomFactor   float64 `json:"zoom_factor"`
}

// DefaultAppConfig returns the configuration used when none is persisted.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Theme:        "dark",
		TabBarHeight: 34,
		ZoomFactor:   1.0,
	}
}

// DataService supplies configuration and persists window/tab state.
type DataService interface {
	// FullConfig returns the complete application configuration.
	FullConfig(ctx context.Context) (AppConfig, error)

	// SetActiveTab persists the active-tab selection for a window.
	SetActiveTab(ctx context.Context, windowID id.WindowID, tabID id.TabID) error

	// ActiveTab returns the persisted selection, or ErrNotFound.
	ActiveTab(ctx context.Context, windowID id.WindowID) (id.TabID, error)

	// SaveWindowGeometry persists a window's content bounds.
	SaveWindowGeometry(ctx context.Context, windowID id.WindowID, b types.Bounds) error

	// WindowGeometry returns the persisted bounds, or ErrNotFound.
	WindowGeometry(ctx context.Context, windowID id.WindowID) (types.Bounds, error)

	// DeleteWindow drops all persisted state for a window.
	DeleteWindow(ctx context.Context, windowID id.WindowID) error

	Close() error
}
