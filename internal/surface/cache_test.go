package surface

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavetermdev/tabhost/internal/shared/id"
)

func newCachedSurface(t *testing.T, factory *Factory, cache *Cache, win, tab string) *Surface {
	t.Helper()
	s, err := factory.CreateBareSurface(context.Background())
	require.NoError(t, err)
	s.Bind(id.WindowID(win), id.TabID(tab))
	cache.Put(id.WindowID(win), id.TabID(tab), s)
	return s
}

func TestCacheGetTouchesLastUsed(t *testing.T) {
	factory, _, _ := newTestFactory(t)
	cache := NewCache(5, nil, nil)
	s := newCachedSurface(t, factory, cache, "win_1", "tab_1")

	before := s.LastUsed()
	time.Sleep(2 * time.Millisecond)
	got, ok := cache.Get("win_1", "tab_1")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.True(t, got.LastUsed().After(before), "Get must touch the last-used timestamp")
}

func TestCacheRemoveDoesNotDestroy(t *testing.T) {
	factory, _, _ := newTestFactory(t)
	cache := NewCache(5, nil, nil)
	s := newCachedSurface(t, factory, cache, "win_1", "tab_1")

	cache.Remove("win_1", "tab_1")
	_, ok := cache.Get("win_1", "tab_1")
	assert.False(t, ok)
	assert.False(t, s.Destroyed(), "Remove must leave destruction to the caller")
}

func TestEvictionUnderLoad(t *testing.T) {
	// Scenario: cap 2; tab1 displayed, then tab2 and tab3 cached without
	// being displayed. tab2 (older, non-displayed) goes first.
	factory, _, _ := newTestFactory(t)
	cache := NewCache(2, nil, nil)

	tab1 := newCachedSurface(t, factory, cache, "win_1", "tab_1")
	tab1.SetDisplayed(true)

	tab2 := newCachedSurface(t, factory, cache, "win_1", "tab_2")
	time.Sleep(2 * time.Millisecond)
	tab3 := newCachedSurface(t, factory, cache, "win_1", "tab_3")

	assert.True(t, tab2.Destroyed(), "oldest non-displayed entry should be evicted")
	assert.False(t, tab1.Destroyed(), "displayed entry is immune")
	assert.False(t, tab3.Destroyed(), "newer entry survives")
	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, int64(1), cache.Evictions())
}

func TestDisplayedEntriesNeverEvicted(t *testing.T) {
	factory, _, _ := newTestFactory(t)
	cache := NewCache(1, nil, nil)

	var displayed []*Surface
	for i := 0; i < 4; i++ {
		s := newCachedSurface(t, factory, cache, "win_1", fmt.Sprintf("tab_%d", i))
		s.SetDisplayed(true)
		displayed = append(displayed, s)
	}
	cache.EvictIfOverCapacity()

	for i, s := range displayed {
		assert.False(t, s.Destroyed(), "displayed surface %d must survive even over capacity", i)
	}
	assert.Equal(t, 4, cache.Len(), "cache may run transiently over its bound")
}

func TestCacheBoundInvariant(t *testing.T) {
	factory, _, _ := newTestFactory(t)
	const max = 3
	cache := NewCache(max, nil, nil)

	for i := 0; i < 10; i++ {
		newCachedSurface(t, factory, cache, "win_1", fmt.Sprintf("tab_%d", i))
		assert.LessOrEqual(t, cache.NonDisplayedLen(), max,
			"non-displayed entries must stay within the bound after every put")
	}
	assert.Equal(t, max, cache.Len())
}

func TestEvictionUnderConcurrentPuts(t *testing.T) {
	factory, _, _ := newTestFactory(t)
	cache := NewCache(2, nil, nil)

	pinned := newCachedSurface(t, factory, cache, "win_1", "tab_pinned")
	pinned.SetDisplayed(true)

	done := make(chan struct{})
	for g := 0; g < 4; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 25; i++ {
				newCachedSurface(t, factory, cache, "win_1", fmt.Sprintf("tab_%d_%d", g, i))
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}

	assert.False(t, pinned.Destroyed(), "a surface displayed throughout must never be evicted")
	assert.LessOrEqual(t, cache.NonDisplayedLen(), 2)
}

func TestRemoveWindowReturnsSurfaces(t *testing.T) {
	factory, _, _ := newTestFactory(t)
	cache := NewCache(10, nil, nil)

	a := newCachedSurface(t, factory, cache, "win_1", "tab_1")
	b := newCachedSurface(t, factory, cache, "win_1", "tab_2")
	other := newCachedSurface(t, factory, cache, "win_2", "tab_1")

	removed := cache.RemoveWindow("win_1")
	assert.ElementsMatch(t, []*Surface{a, b}, removed)
	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Get("win_2", "tab_1")
	assert.True(t, ok)
	assert.False(t, other.Destroyed())
}
