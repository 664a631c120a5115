// Package http exposes the REST control surface over the window binding.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wavetermdev/tabhost/internal/shared/id"
	"github.com/wavetermdev/tabhost/internal/surface"
	"github.com/wavetermdev/tabhost/internal/switcher"
	"github.com/wavetermdev/tabhost/internal/types"
	"github.com/wavetermdev/tabhost/internal/utils"
	"github.com/wavetermdev/tabhost/internal/window"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	binding  *window.Binding
	registry *surface.Registry
}

// NewHandlers creates the handler set.
func NewHandlers(binding *window.Binding, registry *surface.Registry) *Handlers {
	return &Handlers{binding: binding, registry: registry}
}

// Root reports service identity.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "tabhost",
	})
}

// Health reports manager statistics.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"stats":  h.binding.Stats(),
	})
}

type createWindowRequest struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width" binding:"required"`
	Height int `json:"height" binding:"required"`
}

// CreateWindow opens a new top-level window.
func (h *Handlers) CreateWindow(c *gin.Context) {
	var req createWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateOuterBounds(types.Bounds(req)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	win, err := h.binding.CreateWindow(c.Request.Context(), types.Bounds(req))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, windowInfo(win))
}

// ListWindows lists all live windows.
func (h *Handlers) ListWindows(c *gin.Context) {
	wins := h.binding.Windows()
	out := make([]gin.H, 0, len(wins))
	for _, w := range wins {
		out = append(out, windowInfo(w))
	}
	c.JSON(http.StatusOK, gin.H{"windows": out, "stats": h.binding.Stats()})
}

// CloseWindow destroys a window and its surfaces.
func (h *Handlers) CloseWindow(c *gin.Context) {
	winID := id.WindowID(c.Param("id"))
	err := h.binding.DestroyWindow(c.Request.Context(), winID)
	switch {
	case errors.Is(err, window.ErrWindowNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, window.ErrCloseVetoed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"closed": winID})
	}
}

// ActivateTab switches a window to the given tab.
func (h *Handlers) ActivateTab(c *gin.Context) {
	winID := id.WindowID(c.Param("id"))
	tabID := id.TabID(c.Param("tab"))

	err := h.binding.SetActiveTab(c.Request.Context(), winID, tabID)
	switch {
	case errors.Is(err, window.ErrWindowNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, switcher.ErrSuperseded):
		// Coalesced away by a newer request; nothing was applied.
		c.JSON(http.StatusOK, gin.H{"superseded": true})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"window": winID, "active_tab": tabID})
	}
}

// CloseTab destroys the surface bound to a tab.
func (h *Handlers) CloseTab(c *gin.Context) {
	winID := id.WindowID(c.Param("id"))
	tabID := id.TabID(c.Param("tab"))

	err := h.binding.DestroyTab(c.Request.Context(), winID, tabID)
	switch {
	case errors.Is(err, window.ErrWindowNotFound), errors.Is(err, window.ErrTabNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"closed": tabID})
	}
}

type resizeRequest struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width" binding:"required"`
	Height int `json:"height" binding:"required"`
}

// ResizeWindow updates a window's bounds and re-asserts placement.
func (h *Handlers) ResizeWindow(c *gin.Context) {
	winID := id.WindowID(c.Param("id"))
	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateOuterBounds(types.Bounds(req)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.binding.Resize(c.Request.Context(), winID, types.Bounds(req))
	switch {
	case errors.Is(err, window.ErrWindowNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"resized": winID})
	}
}

// SignalInitReady is the IPC endpoint hosted content calls when its local
// bootstrap completes.
func (h *Handlers) SignalInitReady(c *gin.Context) {
	h.registry.SignalInitReady(c.Param("hostid"))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SignalContentReady is the IPC endpoint hosted content calls when it
// reaches its interactive state.
func (h *Handlers) SignalContentReady(c *gin.Context) {
	h.registry.SignalContentReady(c.Param("hostid"))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func windowInfo(w *window.Window) gin.H {
	surfaces := w.Surfaces()
	tabs := make([]gin.H, 0, len(surfaces))
	for _, s := range surfaces {
		tabs = append(tabs, gin.H{
			"tab_id":     s.TabID(),
			"surface_id": s.ID(),
			"displayed":  s.Displayed(),
		})
	}
	info := gin.H{
		"id":     w.ID(),
		"bounds": w.Bounds(),
		"tabs":   tabs,
	}
	if active := w.Active(); active != nil {
		info["active_tab"] = active.TabID()
	}
	return info
}
