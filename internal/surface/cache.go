package surface

import (
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wavetermdev/tabhost/internal/logging"
	"github.com/wavetermdev/tabhost/internal/monitoring"
	"github.com/wavetermdev/tabhost/internal/shared/id"
)

// Key identifies one cache entry: a surface bound to a tab of a window.
type Key struct {
	Window id.WindowID
	Tab    id.TabID
}

// Cache is the bounded (window, tab) → surface map. Once the entry count
// exceeds the configured maximum, the least-recently-used non-displayed
// surfaces are destroyed until the cache is back under its bound.
// Displayed surfaces are exempt: the owning window holds a live rendering
// pointer to them, so the cache prefers running transiently over capacity
// to tearing one down.
type Cache struct {
	max     int
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	entries map[Key]*Surface

	evictions atomic.Int64
}

// NewCache creates a cache bounded at max non-displayed entries.
func NewCache(max int, logger *logging.Logger, metrics *monitoring.Metrics) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{
		max:     max,
		logger:  logger.Named("cache"),
		metrics: metrics,
		entries: make(map[Key]*Surface),
	}
}

// Get returns the surface bound to (windowID, tabID) and touches its
// last-used timestamp.
func (c *Cache) Get(windowID id.WindowID, tabID id.TabID) (*Surface, bool) {
	c.mu.Lock()
	s, ok := c.entries[Key{Window: windowID, Tab: tabID}]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	s.Touch()
	return s, true
}

// Put inserts a binding and runs an eviction check.
func (c *Cache) Put(windowID id.WindowID, tabID id.TabID, s *Surface) {
	c.mu.Lock()
	c.entries[Key{Window: windowID, Tab: tabID}] = s
	c.updateSizeLocked()
	c.mu.Unlock()

	c.EvictIfOverCapacity()
}

// Remove deletes the binding without destroying the surface; destruction is
// the caller's responsibility. This also serves the notification path for
// surfaces that destroyed themselves.
func (c *Cache) Remove(windowID id.WindowID, tabID id.TabID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, Key{Window: windowID, Tab: tabID})
	c.updateSizeLocked()
}

// RemoveSurface drops every entry pointing at the given surface. Wired to
// the factory's destroy hook so out-of-band destroys can never leave a
// dangling reference behind.
func (c *Cache) RemoveSurface(s *Surface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range c.entries {
		if v == s {
			delete(c.entries, k)
		}
	}
	c.updateSizeLocked()
}

// RemoveWindow drops all entries of a window and returns their surfaces.
func (c *Cache) RemoveWindow(windowID id.WindowID) []*Surface {
	c.mu.Lock()
	defer c.mu.Unlock()
	var removed []*Surface
	for k, v := range c.entries {
		if k.Window == windowID {
			delete(c.entries, k)
			removed = append(removed, v)
		}
	}
	c.updateSizeLocked()
	return removed
}

// Len returns the total number of entries, displayed included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// NonDisplayedLen returns the number of entries counting against the bound.
func (c *Cache) NonDisplayedLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.entries {
		if !s.Displayed() {
			n++
		}
	}
	return n
}

// EvictIfOverCapacity destroys least-recently-used non-displayed surfaces
// until the cache is at or under its bound. Candidates are ordered
// displayed-first then newest-first, so victims pop off the tail.
func (c *Cache) EvictIfOverCapacity() {
	var victims []*Surface

	c.mu.Lock()
	type entry struct {
		key Key
		s   *Surface
	}
	all := make([]entry, 0, len(c.entries))
	for k, s := range c.entries {
		all = append(all, entry{key: k, s: s})
	}
	sort.Slice(all, func(i, j int) bool {
		di, dj := all[i].s.Displayed(), all[j].s.Displayed()
		if di != dj {
			return di
		}
		return all[i].s.LastUsed().After(all[j].s.LastUsed())
	})
	remaining := len(all)
	for i := len(all) - 1; i >= 0 && remaining > c.max; i-- {
		if all[i].s.Displayed() {
			// Only displayed entries left; stay over capacity.
			break
		}
		delete(c.entries, all[i].key)
		victims = append(victims, all[i].s)
		remaining--
	}
	c.updateSizeLocked()
	c.mu.Unlock()

	// Destroy outside the lock: the destroy handler re-enters through
	// RemoveSurface.
	for _, v := range victims {
		if v.Displayed() {
			// Flipped to displayed between selection and destruction;
			// reinstate and stay transiently over capacity.
			c.mu.Lock()
			c.entries[Key{Window: v.WindowID(), Tab: v.TabID()}] = v
			c.updateSizeLocked()
			c.mu.Unlock()
			continue
		}
		c.logger.Info("evicting surface",
			zap.String("surface_id", v.ID().String()),
			zap.String("window_id", v.WindowID().String()),
			zap.String("tab_id", v.TabID().String()))
		if c.metrics != nil {
			c.metrics.CacheEvictions.Inc()
		}
		c.evictions.Add(1)
		v.Destroy()
	}
}

// Evictions returns the number of surfaces destroyed by eviction.
func (c *Cache) Evictions() int64 {
	return c.evictions.Load()
}

func (c *Cache) updateSizeLocked() {
	if c.metrics != nil {
		c.metrics.CacheSize.Set(float64(len(c.entries)))
	}
}
