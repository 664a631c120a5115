// Package ws streams surface lifecycle events to websocket subscribers.
package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wavetermdev/tabhost/internal/logging"
	"github.com/wavetermdev/tabhost/internal/monitoring"
	"github.com/wavetermdev/tabhost/internal/types"
)

// writeWait bounds how long a publish may block on one connection's
// send buffer before the client is dropped.
const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Local control surface; the daemon binds loopback by default.
		return true
	},
}

// Hub fans lifecycle events out to connected clients. It implements the
// window binding's EventSink.
type Hub struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu    sync.Mutex
	conns map[*websocket.Conn]*sync.Mutex
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger, metrics *monitoring.Metrics) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		logger:  logger.Named("ws"),
		metrics: metrics,
		conns:   make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Publish broadcasts an event to every subscriber. Slow or dead
// connections are dropped rather than blocked on.
func (h *Hub) Publish(ev types.Event) {
	h.mu.Lock()
	targets := make(map[*websocket.Conn]*sync.Mutex, len(h.conns))
	for c, mu := range h.conns {
		targets[c] = mu
	}
	h.mu.Unlock()

	for conn, wmu := range targets {
		wmu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteJSON(ev)
		wmu.Unlock()
		if err != nil {
			h.drop(conn)
		}
	}
}

// HandleConnection upgrades the request and subscribes the client until it
// disconnects.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.conns[conn] = &sync.Mutex{}
	n := len(h.conns)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSConnections.Set(float64(n))
	}
	h.logger.Debug("client connected", zap.Int("clients", n))

	// Read loop exists only to detect disconnects; inbound messages are
	// ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(conn)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.conns[conn]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, conn)
	n := len(h.conns)
	h.mu.Unlock()

	conn.Close()
	if h.metrics != nil {
		h.metrics.WSConnections.Set(float64(n))
	}
	h.logger.Debug("client disconnected", zap.Int("clients", n))
}
