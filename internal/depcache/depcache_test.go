package depcache

import (
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateClassLoaderReturnsSameHandleForSameDeps(t *testing.T) {
	c := New()
	h1 := c.GetOrCreateClassLoader([]string{"b.jar", "a.jar"})
	h2 := c.GetOrCreateClassLoader([]string{"a.jar", "b.jar"})
	assert.Same(t, h1, h2)
}

func TestGetOrCreateClassLoaderWithLogicalKey(t *testing.T) {
	c := New()
	h1 := c.GetOrCreateClassLoaderWithKey("maven:g:a:1.0", []string{"a.jar"})
	h2 := c.GetOrCreateClassLoaderWithKey("maven:g:a:1.0", []string{"a.jar"})
	assert.Same(t, h1, h2)
}

func TestStatsTrackHitsAndMisses(t *testing.T) {
	c := New()
	c.GetOrCreateClassLoader([]string{"a.jar"}) // miss
	c.GetOrCreateClassLoader([]string{"a.jar"}) // hit

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestCacheDependenciesRoundTrip(t *testing.T) {
	c := New()
	c.CacheDependencies("/proj", []string{"a.jar", "b.jar"})

	deps, ok := c.GetCachedDependencies("/proj")
	require.True(t, ok)
	assert.Equal(t, []string{"a.jar", "b.jar"}, deps)
}

func TestGetCachedDependenciesMissingReturnsFalse(t *testing.T) {
	c := New()
	_, ok := c.GetCachedDependencies("/nope")
	assert.False(t, ok)
}

func TestInvalidateProjectRemovesMatchingHandlesAndDeps(t *testing.T) {
	c := New()
	c.CacheDependencies("/proj", []string{"a.jar"})
	c.GetOrCreateClassLoaderWithKey("/proj:deps", []string{"a.jar"})
	c.GetOrCreateClassLoaderWithKey("/other:deps", []string{"b.jar"})

	c.InvalidateProject("/proj")

	_, ok := c.GetCachedDependencies("/proj")
	assert.False(t, ok)

	c.mu.RLock()
	_, stillThere := c.handles["logical:/proj:deps"]
	_, otherThere := c.handles["logical:/other:deps"]
	c.mu.RUnlock()
	assert.False(t, stillThere)
	assert.True(t, otherThere)
}

func TestInvalidateAllClearsEverything(t *testing.T) {
	c := New()
	c.CacheDependencies("/proj", []string{"a.jar"})
	c.GetOrCreateClassLoader([]string{"a.jar"})

	c.InvalidateAll()

	_, ok := c.GetCachedDependencies("/proj")
	assert.False(t, ok)

	c.mu.RLock()
	count := len(c.handles)
	c.mu.RUnlock()
	assert.Equal(t, 0, count)
}

func TestSizeCapEvictsOldestEntry(t *testing.T) {
	c := New()
	var keep []*ClassLoaderHandle
	for i := 0; i < MaxClassLoaderEntries+10; i++ {
		keep = append(keep, c.GetOrCreateClassLoaderWithKey(fmt.Sprintf("key-%d", i), []string{"a.jar"}))
	}
	runtime.KeepAlive(keep)

	c.mu.RLock()
	count := len(c.handles)
	c.mu.RUnlock()
	assert.Equal(t, MaxClassLoaderEntries, count)
}

func TestEvictIfNeededSelfRateLimits(t *testing.T) {
	c := New()
	for i := 0; i < 10; i++ {
		c.GetOrCreateClassLoaderWithKey(fmt.Sprintf("key-%d", i), []string{"a.jar"})
	}

	c.EvictIfNeeded(0) // first call may evict since target is unreasonably low
	beforeEvictions := c.Stats().Evictions

	c.EvictIfNeeded(0) // second call within the same minute must be a no-op
	assert.Equal(t, beforeEvictions, c.Stats().Evictions)
}

func TestEvictIfNeededNoOpWhenUnderTarget(t *testing.T) {
	c := New()
	c.GetOrCreateClassLoaderWithKey("key-0", []string{"a.jar"})
	c.EvictIfNeeded(1 << 20) // effectively unreachable target in MB
	assert.Equal(t, int64(0), c.Stats().Evictions)
}

func TestPathsAndLogicalKeySpacesDoNotCollide(t *testing.T) {
	c := New()
	// A canonicalized single-dependency key and a caller-chosen logical key
	// that happen to look identical must still resolve to distinct handles.
	byPaths := c.GetOrCreateClassLoader([]string{"a.jar"})
	byLogical := c.GetOrCreateClassLoaderWithKey("a.jar", []string{"a.jar"})
	assert.NotSame(t, byPaths, byLogical)

	c.mu.RLock()
	_, pathsThere := c.handles["paths:a.jar"]
	_, logicalThere := c.handles["logical:a.jar"]
	c.mu.RUnlock()
	assert.True(t, pathsThere)
	assert.True(t, logicalThere)
}

func TestDependencyTTLIsOneHour(t *testing.T) {
	// This only documents intent: DependencyTTL governs expirable.LRU's TTL,
	// exercised here at the constant level rather than waiting an hour.
	assert.Equal(t, time.Hour, DependencyTTL)
}
