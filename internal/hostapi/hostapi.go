// Package hostapi defines the capability surface the host windowing
// runtime must provide: constructing renderable views, attaching them to a
// window's content area, moving them, and observing their destruction.
//
// The surface manager treats this purely as a boundary; it never depends
// on a concrete runtime. Sim provides an in-process implementation for
// tests and the demo daemon.
package hostapi

import (
	"context"

	"github.com/wavetermdev/tabhost/internal/shared/id"
	"github.com/wavetermdev/tabhost/internal/types"
)

// ViewOpts configures a new view at construction time.
type ViewOpts struct {
	// BaseURL is the baseline content the view starts loading immediately.
	BaseURL string

	// Partition scopes the view's storage session.
	Partition string

	// AllowNavigation is the navigation policy: return false to block an
	// in-view navigation. Nil allows everything.
	AllowNavigation func(url string) bool

	// OpenExternal receives links that must leave the view (external-link
	// interception). Nil drops them.
	OpenExternal func(url string)
}

// Host constructs renderable views.
type Host interface {
	Create(ctx context.Context, opts ViewOpts) (View, error)
}

// View is one renderable surface primitive owned by the host runtime.
type View interface {
	// ID is the process-local identifier assigned by the host runtime.
	ID() string

	SetBounds(b types.Bounds)
	Bounds() types.Bounds

	// Attach places the view into the content area of the given window.
	Attach(windowID id.WindowID) error
	Detach()

	// Focus forces input focus onto the view.
	Focus()

	// Send delivers a message to the view's hosted content.
	Send(payload any) error

	// Close destroys the view. Destroyed handlers fire on every destroy
	// path, including closes initiated by the runtime itself.
	Close()

	// OnDestroyed registers a handler invoked once the view is destroyed.
	OnDestroyed(fn func())
}
