// Command tabhostd runs the tab-surface manager daemon with its REST and
// websocket control surfaces.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/wavetermdev/tabhost/internal/config"
	"github.com/wavetermdev/tabhost/internal/logging"
	"github.com/wavetermdev/tabhost/internal/server"
)

func main() {
	port := flag.String("port", "", "listen port (overrides TABHOST_PORT)")
	dev := flag.Bool("dev", false, "development logging")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		logger = logging.NewDefault()
	}
	defer logger.Sync()

	srv, err := server.New(cfg, logger, server.Opts{})
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-sigChan:
		logger.Info("shutting down")
		if err := srv.Close(); err != nil {
			logger.Warn("shutdown error", zap.Error(err))
		}
	case err := <-errChan:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}
}
