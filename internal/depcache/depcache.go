// Package depcache is the Dependency Cache: it memoizes expensive
// resolver outputs and shares class-loading contexts across callers by
// identity of their dependency set. Class-loader handles are held by the
// cache only via weak.Pointer (Go 1.24's new weak-reference primitive):
// the cache never keeps a class loader alive past its last strong
// reference, matching spec.md §4.5's Absent → Present(live) → Reclaimed →
// Absent state machine.
package depcache

import (
	"container/list"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/standardbeagle/groovy-lsp-index/internal/obslog"
)

// MaxClassLoaderEntries is the size cap from spec.md §4.5: adding an entry
// past this evicts the oldest.
const MaxClassLoaderEntries = 100

// DependencyTTL is how long a cached resolved dependency list stays valid.
const DependencyTTL = time.Hour

var log = obslog.For("depcache")

// ClassLoaderHandle represents a shared class-loading context for one
// canonical dependency set. The zero value is not meaningful; handles come
// from Cache.GetOrCreateClassLoader.
type ClassLoaderHandle struct {
	Key   string
	Paths []string
}

// Statistics are the cache's hit/miss/eviction counters, updated on every
// access per spec.md §4.5's invariants.
type Statistics struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

type handleEntry struct {
	key        string
	weak       weak.Pointer[ClassLoaderHandle]
	elem       *list.Element
	lastAccess time.Time
}

type depEntry struct {
	deps      []string
	cachedAt  time.Time
}

// Cache is the Dependency Cache. The zero value is not usable; use New.
type Cache struct {
	mu      sync.RWMutex
	handles map[string]*handleEntry
	order   *list.List // front = most recently used

	deps *lru.LRU[string, depEntry]

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	evictMu       sync.Mutex
	lastEvictTime time.Time
}

// New constructs an empty Cache.
func New() *Cache {
	return &Cache{
		handles: make(map[string]*handleEntry),
		order:   list.New(),
		deps:    lru.NewLRU[string, depEntry](0, nil, DependencyTTL),
	}
}

// pathsKeyPrefix namespaces cache keys built by canonicalizing (sorting and
// joining) a caller's dependency list.
const pathsKeyPrefix = "paths:"

// logicalKeyPrefix namespaces cache keys a caller supplies directly (e.g.
// "maven:group:artifact:version"). The two prefixes keep the two key
// spaces disjoint, so a canonicalized path list can never collide with a
// caller-chosen logical key that happens to look like one, per spec.md
// §4.5.
const logicalKeyPrefix = "logical:"

// GetOrCreateClassLoader canonicalizes deps by sorting and uses the
// canonical form, namespaced under pathsKeyPrefix, as the cache key.
func (c *Cache) GetOrCreateClassLoader(deps []string) *ClassLoaderHandle {
	sorted := append([]string(nil), deps...)
	sort.Strings(sorted)
	key := pathsKeyPrefix + strings.Join(sorted, "\x1f")
	return c.getOrCreate(key, deps)
}

// GetOrCreateClassLoaderWithKey uses a caller-supplied logical key (e.g.
// "maven:group:artifact:version"), namespaced under logicalKeyPrefix,
// instead of the canonicalized dependency list.
func (c *Cache) GetOrCreateClassLoaderWithKey(key string, deps []string) *ClassLoaderHandle {
	return c.getOrCreate(logicalKeyPrefix+key, deps)
}

// getOrCreate performs the actual lookup/insert against an already-
// namespaced key.
func (c *Cache) getOrCreate(key string, deps []string) *ClassLoaderHandle {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.handles[key]; ok {
		if h := e.weak.Value(); h != nil {
			e.lastAccess = time.Now()
			c.order.MoveToFront(e.elem)
			c.hits.Add(1)
			return h
		}
		// The weak reference was reclaimed: Present(live) -> Reclaimed ->
		// Absent. Remove the stale entry before treating this as a miss.
		c.order.Remove(e.elem)
		delete(c.handles, key)
	}

	c.misses.Add(1)

	handle := &ClassLoaderHandle{Key: key, Paths: append([]string(nil), deps...)}
	elem := c.order.PushFront(key)
	c.handles[key] = &handleEntry{
		key:        key,
		weak:       weak.Make(handle),
		elem:       elem,
		lastAccess: time.Now(),
	}

	c.evictOldestLocked()

	return handle
}

// evictOldestLocked drops the least-recently-used handle once the table
// exceeds MaxClassLoaderEntries. Caller must hold c.mu.
func (c *Cache) evictOldestLocked() {
	for len(c.handles) > MaxClassLoaderEntries {
		oldest := c.order.Back()
		if oldest == nil {
			return
		}
		key := oldest.Value.(string)
		c.order.Remove(oldest)
		delete(c.handles, key)
		c.evictions.Add(1)
	}
}

// CacheDependencies stores the resolved list with the current timestamp.
func (c *Cache) CacheDependencies(projectPath string, deps []string) {
	c.deps.Add(projectPath, depEntry{deps: append([]string(nil), deps...), cachedAt: time.Now()})
}

// GetCachedDependencies returns the cached list for projectPath if present
// and not older than DependencyTTL.
func (c *Cache) GetCachedDependencies(projectPath string) ([]string, bool) {
	e, ok := c.deps.Get(projectPath)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.deps, true
}

// InvalidateProject drops projectPath's dependency record and every
// class-loader handle whose key contains the project path's string form.
func (c *Cache) InvalidateProject(projectPath string) {
	c.deps.Remove(projectPath)

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.handles {
		if strings.Contains(key, projectPath) {
			c.order.Remove(e.elem)
			delete(c.handles, key)
		}
	}
}

// InvalidateAll closes every live handle and clears all tables.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.handles {
		if h := e.weak.Value(); h != nil {
			_ = h // no external resources to release beyond GC reachability
		}
	}
	c.handles = make(map[string]*handleEntry)
	c.order = list.New()
	c.deps.Purge()
}

// EvictIfNeeded compares current process heap usage to targetMemoryMB; if
// exceeded, evicts the least-recently-used half of the class-loader table
// and requests garbage collection. Self-rate-limited to at most once per
// minute of wall-clock to protect against eviction storms.
func (c *Cache) EvictIfNeeded(targetMemoryMB int64) {
	c.evictMu.Lock()
	if time.Since(c.lastEvictTime) < time.Minute {
		c.evictMu.Unlock()
		return
	}
	c.lastEvictTime = time.Now()
	c.evictMu.Unlock()

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	heapMB := int64(stats.HeapAlloc / (1024 * 1024))
	if heapMB <= targetMemoryMB {
		return
	}

	c.mu.Lock()
	half := len(c.handles) / 2
	if half == 0 {
		c.mu.Unlock()
		log.Warnf("heap usage %dMB exceeds target %dMB but no class-loader entries to evict", heapMB, targetMemoryMB)
		return
	}
	for i := 0; i < half; i++ {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		key := oldest.Value.(string)
		c.order.Remove(oldest)
		delete(c.handles, key)
		c.evictions.Add(1)
	}
	c.mu.Unlock()

	runtime.GC()
}

// Stats returns a point-in-time snapshot of the cache's counters.
func (c *Cache) Stats() Statistics {
	return Statistics{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
