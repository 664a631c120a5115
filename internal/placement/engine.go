// Package placement computes and applies on-screen/off-screen positioning
// for surfaces within their owning window's content area, stages
// transitions so a not-yet-painted surface never causes a blank frame, and
// periodically self-heals placement against drift from late resize events.
package placement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wavetermdev/tabhost/internal/logging"
	"github.com/wavetermdev/tabhost/internal/surface"
	"github.com/wavetermdev/tabhost/internal/types"
)

// Config holds the placement tunables.
type Config struct {
	// StagingDelay is the pause between parking an incoming surface just
	// past the visible edge and the final swap.
	StagingDelay time.Duration

	// StagingOffset is how far past the visible edge staged surfaces sit,
	// in pixels. Close enough for the compositor to warm them up.
	StagingOffset int

	// OffscreenOffset is the parking coordinate for hidden surfaces.
	// Hidden surfaces keep their size; resizing them to zero would force a
	// relayout inside the hidden content.
	OffscreenOffset int

	// ReconcileInterval is the self-heal poller period.
	ReconcileInterval time.Duration
}

// WindowState is one window's placement snapshot, fed to the engine by the
// window binding.
type WindowState struct {
	Active *surface.Surface
	Others []*surface.Surface
	Bounds types.Bounds
}

// Engine applies placement. The busy probe gates the reconciler so it
// never fights an in-progress switch.
type Engine struct {
	cfg    Config
	busy   func() bool
	logger *logging.Logger
}

// NewEngine creates a placement engine. busy may be nil, in which case the
// reconciler always runs.
func NewEngine(cfg Config, busy func() bool, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:    cfg,
		busy:   busy,
		logger: logger.Named("placement"),
	}
}

// PositionOnScreen gives a surface the window's content bounds at origin.
func (e *Engine) PositionOnScreen(s *surface.Surface, content types.Bounds) {
	s.View().SetBounds(types.Bounds{X: 0, Y: 0, Width: content.Width, Height: content.Height})
}

// PositionOffScreen parks a surface far outside the visible area, size
// unchanged.
func (e *Engine) PositionOffScreen(s *surface.Surface, content types.Bounds) {
	s.View().SetBounds(types.Bounds{
		X:      e.cfg.OffscreenOffset,
		Y:      e.cfg.OffscreenOffset,
		Width:  content.Width,
		Height: content.Height,
	})
}

// Stage parks an incoming surface a few pixels past the visible edge, full
// size, so the compositor paints it before the final swap.
func (e *Engine) Stage(s *surface.Surface, content types.Bounds) {
	s.View().SetBounds(types.Bounds{
		X:      content.Width + e.cfg.StagingOffset,
		Y:      0,
		Width:  content.Width,
		Height: content.Height,
	})
}

// StagingPause waits out the staging delay, honoring cancellation.
func (e *Engine) StagingPause(ctx context.Context) error {
	if e.cfg.StagingDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(e.cfg.StagingDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finalize completes a transition: the active surface moves fully
// on-screen and every other live surface of the window moves fully off.
func (e *Engine) Finalize(state WindowState) {
	if state.Active == nil {
		return
	}
	e.PositionOnScreen(state.Active, state.Bounds)
	for _, other := range state.Others {
		if other == state.Active {
			continue
		}
		e.PositionOffScreen(other, state.Bounds)
	}
}

// Reconcile re-asserts placement for every window snapshot, unless a
// switch is queued.
func (e *Engine) Reconcile(states []WindowState) {
	if e.busy != nil && e.busy() {
		return
	}
	for _, state := range states {
		e.Finalize(state)
	}
}

// RunReconciler polls snapshot at the configured interval until the
// context ends, re-asserting placement each pass. Runs on the caller's
// goroutine.
func (e *Engine) RunReconciler(ctx context.Context, snapshot func() []WindowState) {
	interval := e.cfg.ReconcileInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Debug("reconciler started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			e.logger.Debug("reconciler stopped")
			return
		case <-ticker.C:
			e.Reconcile(snapshot())
		}
	}
}
