package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavetermdev/tabhost/internal/logging"
	"github.com/wavetermdev/tabhost/internal/shared/id"
	"github.com/wavetermdev/tabhost/internal/types"
)

func newTestStream(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(logging.NewNop(), nil)
	router := gin.New()
	router.GET("/stream", hub.HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublishReachesSubscribers(t *testing.T) {
	hub, srv := newTestStream(t)
	conn := dial(t, srv)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, time.Millisecond)

	want := types.Event{
		Type:     types.EventTabActivated,
		WindowID: id.NewWindowID(),
		TabID:    id.NewTabID(),
	}
	hub.Publish(want)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got types.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.WindowID, got.WindowID)
	assert.Equal(t, want.TabID, got.TabID)
}

func TestDisconnectedClientIsDropped(t *testing.T) {
	hub, srv := newTestStream(t)
	conn := dial(t, srv)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, time.Millisecond)

	// Publishing with nobody listening is fine.
	hub.Publish(types.Event{Type: types.EventWindowClosed})
}

func TestStalledClientIsDroppedOnWriteTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the write deadline")
	}
	hub, srv := newTestStream(t)
	dial(t, srv)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, time.Millisecond)

	// The client never reads. Keep publishing until the socket buffers
	// fill; the next write then stalls until the deadline expires and
	// the connection is dropped instead of wedging the publisher.
	payload := types.Event{Type: types.EventTabActivated, Error: strings.Repeat("x", 1<<15)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for hub.Count() > 0 {
			hub.Publish(payload)
		}
	}()

	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 3*writeWait, 10*time.Millisecond)
	<-done
}

func TestPublishFansOut(t *testing.T) {
	hub, srv := newTestStream(t)
	conns := []*websocket.Conn{dial(t, srv), dial(t, srv), dial(t, srv)}

	require.Eventually(t, func() bool { return hub.Count() == 3 }, time.Second, time.Millisecond)
	hub.Publish(types.Event{Type: types.EventSurfaceEvicted})

	for _, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		var got types.Event
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, types.EventSurfaceEvicted, got.Type)
	}
}
