package placement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavetermdev/tabhost/internal/hostapi"
	"github.com/wavetermdev/tabhost/internal/logging"
	"github.com/wavetermdev/tabhost/internal/surface"
	"github.com/wavetermdev/tabhost/internal/types"
)

func testConfig() Config {
	return Config{
		StagingDelay:      time.Millisecond,
		StagingOffset:     8,
		OffscreenOffset:   -25000,
		ReconcileInterval: 5 * time.Millisecond,
	}
}

func newTestSurfaces(t *testing.T, n int) []*surface.Surface {
	t.Helper()
	logger := logging.NewNop()
	sim := hostapi.NewSim(logger)
	registry := surface.NewRegistry(logger, nil)
	factory := surface.NewFactory(sim, registry, hostapi.ViewOpts{}, logger)

	out := make([]*surface.Surface, n)
	for i := range out {
		s, err := factory.CreateBareSurface(context.Background())
		require.NoError(t, err)
		out[i] = s
	}
	return out
}

func TestPositionOnScreen(t *testing.T) {
	engine := NewEngine(testConfig(), nil, nil)
	ss := newTestSurfaces(t, 1)
	content := types.Bounds{X: 0, Y: 34, Width: 1200, Height: 766}

	engine.PositionOnScreen(ss[0], content)
	assert.Equal(t, types.Bounds{X: 0, Y: 0, Width: 1200, Height: 766}, ss[0].View().Bounds(),
		"active surface gets the content bounds at origin")
}

func TestPositionOffScreenKeepsSize(t *testing.T) {
	engine := NewEngine(testConfig(), nil, nil)
	ss := newTestSurfaces(t, 1)
	content := types.Bounds{Width: 800, Height: 600}

	engine.PositionOffScreen(ss[0], content)
	b := ss[0].View().Bounds()
	assert.Equal(t, -25000, b.X)
	assert.Equal(t, -25000, b.Y)
	assert.Equal(t, 800, b.Width, "hidden surfaces are moved, not shrunk")
	assert.Equal(t, 600, b.Height)
}

func TestStageParksJustPastEdge(t *testing.T) {
	engine := NewEngine(testConfig(), nil, nil)
	ss := newTestSurfaces(t, 1)
	content := types.Bounds{Width: 800, Height: 600}

	engine.Stage(ss[0], content)
	b := ss[0].View().Bounds()
	assert.Equal(t, 808, b.X, "staged surface sits a few pixels past the visible edge")
	assert.Equal(t, 800, b.Width)
}

func TestFinalizePlacesActiveAndParksOthers(t *testing.T) {
	engine := NewEngine(testConfig(), nil, nil)
	ss := newTestSurfaces(t, 3)
	content := types.Bounds{Width: 640, Height: 480}

	engine.Finalize(WindowState{Active: ss[0], Others: ss[1:], Bounds: content})

	assert.Equal(t, 0, ss[0].View().Bounds().X)
	for _, other := range ss[1:] {
		assert.Equal(t, -25000, other.View().Bounds().X)
	}
}

func TestReconcileSkipsWhileBusy(t *testing.T) {
	busy := true
	engine := NewEngine(testConfig(), func() bool { return busy }, nil)
	ss := newTestSurfaces(t, 1)
	content := types.Bounds{Width: 640, Height: 480}

	state := []WindowState{{Active: ss[0], Bounds: content}}
	engine.Reconcile(state)
	assert.True(t, ss[0].View().Bounds().IsZero(), "reconcile must no-op while a switch is queued")

	busy = false
	engine.Reconcile(state)
	assert.Equal(t, 640, ss[0].View().Bounds().Width)
}

func TestStagingPauseHonorsCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.StagingDelay = time.Hour
	engine := NewEngine(cfg, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, engine.StagingPause(ctx), context.DeadlineExceeded)
}

func TestReconcilerLoopHealsDrift(t *testing.T) {
	engine := NewEngine(testConfig(), nil, nil)
	ss := newTestSurfaces(t, 1)
	content := types.Bounds{Width: 320, Height: 200}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.RunReconciler(ctx, func() []WindowState {
		return []WindowState{{Active: ss[0], Bounds: content}}
	})

	// Drift the surface; the poller should pull it back.
	ss[0].View().SetBounds(types.Bounds{X: 999, Y: 999, Width: 10, Height: 10})
	assert.Eventually(t, func() bool {
		return ss[0].View().Bounds() == types.Bounds{X: 0, Y: 0, Width: 320, Height: 200}
	}, time.Second, time.Millisecond)
}
