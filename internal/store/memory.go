package store

import (
	"context"
	"sync"

	"github.com/wavetermdev/tabhost/internal/shared/id"
	"github.com/wavetermdev/tabhost/internal/types"
)

// Memory is an in-memory DataService for tests. FailWith, when set, is
// returned from every call, which is how transition-failure paths are
// exercised.
type Memory struct {
	mu       sync.Mutex
	cfg      AppConfig
	active   map[id.WindowID]id.TabID
	geometry map[id.WindowID]types.Bounds

	FailWith error
}

// NewMemory creates an empty in-memory store with default configuration.
func NewMemory() *Memory {
	return &Memory{
		cfg:      DefaultAppConfig(),
		active:   make(map[id.WindowID]id.TabID),
		geometry: make(map[id.WindowID]types.Bounds),
	}
}

func (m *Memory) FullConfig(ctx context.Context) (AppConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return AppConfig{}, m.FailWith
	}
	return m.cfg, nil
}

func (m *Memory) SetActiveTab(ctx context.Context, windowID id.WindowID, tabID id.TabID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.active[windowID] = tabID
	return nil
}

func (m *Memory) ActiveTab(ctx context.Context, windowID id.WindowID) (id.TabID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return "", m.FailWith
	}
	tab, ok := m.active[windowID]
	if !ok {
		return "", ErrNotFound
	}
	return tab, nil
}

func (m *Memory) SaveWindowGeometry(ctx context.Context, windowID id.WindowID, b types.Bounds) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.geometry[windowID] = b
	return nil
}

func (m *Memory) WindowGeometry(ctx context.Context, windowID id.WindowID) (types.Bounds, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return types.Bounds{}, m.FailWith
	}
	b, ok := m.geometry[windowID]
	if !ok {
		return types.Bounds{}, ErrNotFound
	}
	return b, nil
}

func (m *Memory) DeleteWindow(ctx context.Context, windowID id.WindowID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	delete(m.active, windowID)
	delete(m.geometry, windowID)
	return nil
}

func (m *Memory) Close() error { return nil }

// SetFail arranges for every subsequent call to return err. Pass nil to
// clear.
func (m *Memory) SetFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailWith = err
}
