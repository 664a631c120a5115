// Package server wires the surface manager's components and exposes the
// REST and websocket control surfaces.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wavetermdev/tabhost/internal/config"
	"github.com/wavetermdev/tabhost/internal/hostapi"
	apihttp "github.com/wavetermdev/tabhost/internal/http"
	"github.com/wavetermdev/tabhost/internal/logging"
	"github.com/wavetermdev/tabhost/internal/monitoring"
	"github.com/wavetermdev/tabhost/internal/placement"
	"github.com/wavetermdev/tabhost/internal/shared/id"
	"github.com/wavetermdev/tabhost/internal/store"
	"github.com/wavetermdev/tabhost/internal/surface"
	"github.com/wavetermdev/tabhost/internal/switcher"
	"github.com/wavetermdev/tabhost/internal/window"
	"github.com/wavetermdev/tabhost/internal/ws"
)

const shutdownTimeout = 5 * time.Second

// Server hosts the surface manager and its HTTP control surface.
type Server struct {
	cfg      *config.Config
	logger   *logging.Logger
	router   *gin.Engine
	httpSrv  *http.Server
	binding  *window.Binding
	registry *surface.Registry
	pool     *surface.Pool
	queue    *switcher.Queue
	data     store.DataService
	hub      *ws.Hub
	cancel   context.CancelFunc
}

// Opts override pieces of the default wiring.
type Opts struct {
	// Host is the windowing runtime; defaults to the in-process
	// simulator with readiness auto-bridged.
	Host hostapi.Host

	// Data is the backend data service; defaults to sqlite at the
	// configured path.
	Data store.DataService

	// Registerer receives the Prometheus collectors; defaults to the
	// global registry.
	Registerer prometheus.Registerer
}

// New builds a fully wired server.
func New(cfg *config.Config, logger *logging.Logger, opts Opts) (*Server, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}
	metrics := monitoring.NewMetrics(opts.Registerer)

	data := opts.Data
	if data == nil {
		sqlite, err := store.OpenSQLite(context.Background(), cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		data = sqlite
	}

	registry := surface.NewRegistry(logger, metrics)

	host := opts.Host
	if host == nil {
		// Demo host: the simulator reports load completion, which stands
		// in for the hosted content's two readiness milestones.
		sim := hostapi.NewSim(logger)
		sim.OnLoaded(func(hostID string) {
			registry.SignalInitReady(hostID)
			registry.SignalContentReady(hostID)
		})
		host = sim
	}

	factory := surface.NewFactory(host, registry, hostapi.ViewOpts{
		BaseURL: "app://surface/index.html",
		// Surfaces render only bundled content; anything else leaves the
		// process.
		AllowNavigation: func(url string) bool {
			return strings.HasPrefix(url, "app://")
		},
		OpenExternal: func(url string) {
			logger.Info("external link intercepted", zap.String("url", url))
		},
	}, logger)
	cache := surface.NewCache(cfg.Surface.MaxCachedViews, logger, metrics)
	factory.OnDestroy(cache.RemoveSurface)
	pool := surface.NewPool(factory, cfg.Surface.ReplenishDelay, logger, metrics)
	queue := switcher.NewQueue(logger, metrics)
	engine := placement.NewEngine(placement.Config{
		StagingDelay:      cfg.Surface.StagingDelay,
		StagingOffset:     cfg.Surface.StagingOffset,
		OffscreenOffset:   cfg.Surface.OffscreenOffset,
		ReconcileInterval: cfg.Surface.ReconcileInterval,
	}, queue.Busy, logger)

	hub := ws.NewHub(logger, metrics)

	binding := window.NewBinding(cfg.Surface, window.Deps{
		Cache:    cache,
		Pool:     pool,
		Registry: registry,
		Queue:    queue,
		Engine:   engine,
		Data:     data,
		ClientID: id.NewClientID(),
		Logger:   logger,
		Metrics:  metrics,
		Sink:     hub,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handlers := apihttp.NewHandlers(binding, registry)
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/windows", handlers.CreateWindow)
	router.GET("/windows", handlers.ListWindows)
	router.DELETE("/windows/:id", handlers.CloseWindow)
	router.POST("/windows/:id/resize", handlers.ResizeWindow)
	router.POST("/windows/:id/tabs/:tab/activate", handlers.ActivateTab)
	router.DELETE("/windows/:id/tabs/:tab", handlers.CloseTab)

	router.POST("/surfaces/:hostid/init-ready", handlers.SignalInitReady)
	router.POST("/surfaces/:hostid/content-ready", handlers.SignalContentReady)

	router.GET("/stream", hub.HandleConnection)

	reconcileCtx, cancel := context.WithCancel(context.Background())
	go engine.RunReconciler(reconcileCtx, binding.Snapshot)

	return &Server{
		cfg:      cfg,
		logger:   logger,
		router:   router,
		binding:  binding,
		registry: registry,
		pool:     pool,
		queue:    queue,
		data:     data,
		hub:      hub,
		cancel:   cancel,
	}, nil
}

// Binding exposes the window binding, mainly for tests.
func (s *Server) Binding() *window.Binding { return s.binding }

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine { return s.router }

// Run serves until the listener fails or Close is called.
func (s *Server) Run() error {
	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.logger.Info("server starting", zap.String("addr", addr))
	s.httpSrv = &http.Server{Addr: addr, Handler: s.router}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the server down: reconciler stopped, pending switches
// drained, spare destroyed, store closed.
func (s *Server) Close() error {
	s.cancel()
	s.queue.Close()
	s.pool.Close()
	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
	}
	return s.data.Close()
}
