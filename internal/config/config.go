package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all daemon configuration.
type Config struct {
	Server  ServerConfig
	Logging LogConfig
	Surface SurfaceConfig
	Store   StoreConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// SurfaceConfig holds the surface lifecycle tunables.
type SurfaceConfig struct {
	// MaxCachedViews bounds the number of non-displayed surfaces kept
	// alive; displayed surfaces never count against it.
	MaxCachedViews int `envconfig:"MAX_CACHED_VIEWS" default:"7"`

	// ReplenishDelay is how long the hot-spare pool waits after a spare is
	// taken before constructing a replacement, so the refill does not
	// contend with the taken surface's own bootstrap.
	ReplenishDelay time.Duration `envconfig:"SPARE_REPLENISH_DELAY" default:"500ms"`

	// StagingDelay is the pause between parking an incoming surface just
	// past the visible edge and moving it fully on-screen.
	StagingDelay time.Duration `envconfig:"STAGING_DELAY" default:"30ms"`

	// StagingOffset is how many pixels past the visible edge an incoming
	// surface is parked while the compositor warms it up.
	StagingOffset int `envconfig:"STAGING_OFFSET" default:"8"`

	// OffscreenOffset is the coordinate used to park hidden surfaces far
	// outside the visible area. Hidden surfaces are moved, never resized,
	// to avoid relayout cost inside them.
	OffscreenOffset int `envconfig:"OFFSCREEN_OFFSET" default:"-25000"`

	// ReconcileInterval is the period of the placement self-heal poller.
	ReconcileInterval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"1s"`

	// ReadyTimeout bounds the wait for a surface's bootstrap-ready and
	// content-ready signals during a switch. Zero disables the bound.
	ReadyTimeout time.Duration `envconfig:"READY_TIMEOUT" default:"30s"`

	// RefocusDelays are the delayed focus re-assertions after a switch,
	// guarding against the host runtime stealing focus during attach.
	RefocusDelays []time.Duration `envconfig:"REFOCUS_DELAYS" default:"50ms,250ms"`
}

// StoreConfig holds backend data service configuration.
type StoreConfig struct {
	Path string `envconfig:"STORE_PATH" default:"tabhost.db"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("TABHOST", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from the environment or falls back to
// defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8090",
			Host: "127.0.0.1",
		},
		Logging: LogConfig{
			Level: "info",
		},
		Surface: DefaultSurface(),
		Store: StoreConfig{
			Path: "tabhost.db",
		},
	}
}

// DefaultSurface returns the default surface tunables. Tests use this to
// build isolated components without touching the environment.
func DefaultSurface() SurfaceConfig {
	return SurfaceConfig{
		MaxCachedViews:    7,
		ReplenishDelay:    500 * time.Millisecond,
		StagingDelay:      30 * time.Millisecond,
		StagingOffset:     8,
		OffscreenOffset:   -25000,
		ReconcileInterval: time.Second,
		ReadyTimeout:      30 * time.Second,
		RefocusDelays:     []time.Duration{50 * time.Millisecond, 250 * time.Millisecond},
	}
}
