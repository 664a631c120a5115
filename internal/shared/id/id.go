// Package id provides typed ULID generation for the surface manager.
//
// ULIDs are lexicographically sortable, so identifiers double as creation
// ordering without extra timestamps, and each identifier class carries a
// short prefix (win_*, tab_*, surf_*, client_*) that keeps logs readable
// and prevents cross-class mixups at compile time.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// WindowID identifies a top-level application window.
type WindowID string

// TabID identifies a tab within a window.
type TabID string

// SurfaceID identifies a renderable tab-view surface.
type SurfaceID string

// ClientID identifies the client installation that owns all windows of
// this process.
type ClientID string

const (
	WindowPrefix  = "win"
	TabPrefix     = "tab"
	SurfacePrefix = "surf"
	ClientPrefix  = "client"
)

// Generator produces ULIDs from a guarded entropy source.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source,
// useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewWindowID generates a new window identifier.
func NewWindowID() WindowID {
	return WindowID(Default().GenerateWithPrefix(WindowPrefix))
}

// NewTabID generates a new tab identifier.
func NewTabID() TabID {
	return TabID(Default().GenerateWithPrefix(TabPrefix))
}

// NewSurfaceID generates a new surface identifier.
func NewSurfaceID() SurfaceID {
	return SurfaceID(Default().GenerateWithPrefix(SurfacePrefix))
}

// NewClientID generates a new client identifier.
func NewClientID() ClientID {
	return ClientID(Default().GenerateWithPrefix(ClientPrefix))
}

func (id WindowID) String() string  { return string(id) }
func (id TabID) String() string     { return string(id) }
func (id SurfaceID) String() string { return string(id) }
func (id ClientID) String() string  { return string(id) }

// Timestamp extracts the embedded creation time from a prefixed identifier.
func Timestamp(prefixed string) (time.Time, error) {
	raw := prefixed
	if i := strings.LastIndexByte(prefixed, '_'); i >= 0 {
		raw = prefixed[i+1:]
	}
	parsed, err := ulid.Parse(raw)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
