package hostapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavetermdev/tabhost/internal/logging"
	"github.com/wavetermdev/tabhost/internal/types"
)

func TestCreateFiresLoadHook(t *testing.T) {
	sim := NewSim(logging.NewNop())
	loaded := make(chan string, 1)
	sim.OnLoaded(func(hostID string) { loaded <- hostID })

	v, err := sim.Create(context.Background(), ViewOpts{BaseURL: "app://index.html"})
	require.NoError(t, err)

	select {
	case hostID := <-loaded:
		assert.Equal(t, v.ID(), hostID)
	case <-time.After(time.Second):
		t.Fatal("load hook never fired")
	}
}

func TestNavigationPolicy(t *testing.T) {
	sim := NewSim(logging.NewNop())
	var external []string
	v, err := sim.Create(context.Background(), ViewOpts{
		BaseURL:         "app://index.html",
		AllowNavigation: func(url string) bool { return url != "https://evil.example" },
		OpenExternal:    func(url string) { external = append(external, url) },
	})
	require.NoError(t, err)
	sv := v.(*SimView)

	require.NoError(t, sv.Navigate("app://settings.html"))
	assert.Equal(t, "app://settings.html", sv.URL())

	require.NoError(t, sv.Navigate("https://evil.example"))
	assert.Equal(t, "app://settings.html", sv.URL(), "blocked navigation must not change location")
	assert.Equal(t, []string{"https://evil.example"}, external)
}

func TestNavigationBlockedWithoutExternalHandler(t *testing.T) {
	sim := NewSim(logging.NewNop())
	v, err := sim.Create(context.Background(), ViewOpts{
		BaseURL:         "app://index.html",
		AllowNavigation: func(string) bool { return false },
	})
	require.NoError(t, err)

	assert.ErrorIs(t, v.(*SimView).Navigate("app://other.html"), ErrNavigationBlocked)
}

func TestClosedViewRejectsOperations(t *testing.T) {
	sim := NewSim(logging.NewNop())
	v, err := sim.Create(context.Background(), ViewOpts{})
	require.NoError(t, err)

	destroyed := make(chan struct{})
	v.OnDestroyed(func() { close(destroyed) })
	v.Close()
	<-destroyed

	assert.ErrorIs(t, v.Send("hello"), ErrViewDestroyed)
	assert.ErrorIs(t, v.Attach("win_1"), ErrViewDestroyed)
	assert.ErrorIs(t, v.(*SimView).Navigate("app://x"), ErrViewDestroyed)
	assert.Equal(t, 0, sim.Count(), "closed views leave the simulator's table")

	// Closing twice is a no-op.
	v.Close()
}

func TestSetBoundsRoundTrip(t *testing.T) {
	sim := NewSim(logging.NewNop())
	v, err := sim.Create(context.Background(), ViewOpts{})
	require.NoError(t, err)

	b := types.Bounds{X: 1, Y: 2, Width: 300, Height: 400}
	v.SetBounds(b)
	assert.Equal(t, b, v.Bounds())
}
