package indexing

import (
	"context"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/standardbeagle/groovy-lsp-index/internal/config"
	"github.com/standardbeagle/groovy-lsp-index/internal/depcache"
	"github.com/standardbeagle/groovy-lsp-index/internal/depresolver"
	"github.com/standardbeagle/groovy-lsp-index/internal/errors"
	"github.com/standardbeagle/groovy-lsp-index/internal/eventbus"
	"github.com/standardbeagle/groovy-lsp-index/internal/jarindex"
	"github.com/standardbeagle/groovy-lsp-index/internal/obslog"
	"github.com/standardbeagle/groovy-lsp-index/internal/parser"
	"github.com/standardbeagle/groovy-lsp-index/internal/store"
	"github.com/standardbeagle/groovy-lsp-index/internal/types"
)

var orchestratorLog = obslog.For("orchestrator")

// Orchestrator composes the Symbol Store, Parser/Visitor Bridge, JAR
// Indexer, Dependency Resolver, Dependency Cache and Event Bus into the
// workspace-level lifecycle described in spec.md §4.6.
type Orchestrator struct {
	cfg      *config.Config
	store    *store.Store
	cache    *depcache.Cache
	resolver *depresolver.Resolver
	bridge   *parser.Bridge
	bus      *eventbus.Bus

	includeJava bool

	ticker       *time.Ticker
	tickerDone   chan struct{}
	shutdownOnce sync.Once
}

// New wires an Orchestrator to its collaborators. cfg.Project.Root is the
// workspace root; the caller owns constructing the Store, Cache, Resolver,
// Bridge and Bus.
func New(cfg *config.Config, st *store.Store, cache *depcache.Cache, resolver *depresolver.Resolver, bridge *parser.Bridge, bus *eventbus.Bus) *Orchestrator {
	includeJava := false
	for _, pattern := range cfg.Include {
		if strings.Contains(pattern, ".java") {
			includeJava = true
			break
		}
	}

	o := &Orchestrator{
		cfg:         cfg,
		store:       st,
		cache:       cache,
		resolver:    resolver,
		bridge:      bridge,
		bus:         bus,
		includeJava: includeJava,
		tickerDone:  make(chan struct{}),
	}
	o.startMemoryPressureLoop()
	return o
}

// startMemoryPressureLoop ticks every cfg.DepCache.MemoryCheckIntervalSec,
// computing a target with memoryPressureTargetMB (the configured
// MemoryPressureTargetMB when set, otherwise 70% of the runtime soft memory
// limit, otherwise 512MB) and invoking EvictIfNeeded on the Dependency Cache.
func (o *Orchestrator) startMemoryPressureLoop() {
	interval := time.Duration(o.cfg.DepCache.MemoryCheckIntervalSec) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	o.ticker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-o.ticker.C:
				o.cache.EvictIfNeeded(o.memoryPressureTargetMB())
			case <-o.tickerDone:
				return
			}
		}
	}()
}

func (o *Orchestrator) memoryPressureTargetMB() int64 {
	if o.cfg.DepCache.MemoryPressureTargetMB > 0 {
		return int64(o.cfg.DepCache.MemoryPressureTargetMB)
	}
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == 1<<63-1 {
		return 512 // no soft memory limit configured; fall back to a conservative default
	}
	return (limit * 70 / 100) / (1024 * 1024)
}

// Initialize ensures the Symbol Store is initialized, resolves (or reuses
// cached) dependencies, walks the workspace, parses every candidate file on
// a bounded worker pool, indexes every dependency jar, and publishes a
// terminal WorkspaceIndexedEvent.
func (o *Orchestrator) Initialize() *Future[struct{}] {
	ctx, cancel := context.WithCancel(context.Background())
	f, resolve := newFuture[struct{}](cancel)

	go func() {
		err := o.runInitialize(ctx)
		resolve(struct{}{}, err)
	}()

	return f
}

func (o *Orchestrator) runInitialize(ctx context.Context) error {
	start := time.Now()
	root := o.cfg.Project.Root

	indexPath := filepath.Join(root, o.cfg.Store.Dir, "index.db")
	if err := o.store.Initialize(indexPath, o.cfg.Store.MapSizeBytes); err != nil {
		return err
	}

	deps, ok := o.cache.GetCachedDependencies(root)
	if !ok {
		deps = o.resolver.ResolveDependencies(root)
		o.cache.CacheDependencies(root, deps)
	}

	files, err := ScanWorkspace(root, o.cfg.Include, o.cfg.Exclude)
	if err != nil {
		return errors.New(errors.KindStoreIOFailed, "orchestrator.Initialize", err).WithPath(root)
	}

	workers := o.cfg.Performance.ParallelFileWorkers
	results := runParseJobs(ctx, files, o.bridge, o.includeJava, workers)

	totalSymbols := 0
	for _, r := range results {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := o.commitFile(r.Path, r.Symbols); err != nil {
			orchestratorLog.WithPath(r.Path).Warnf("failed to commit file: %v", err)
			continue
		}
		totalSymbols += len(r.Symbols)
	}

	for _, dep := range deps {
		if !strings.HasSuffix(strings.ToLower(dep), ".jar") {
			continue
		}
		symbols, err := jarindex.IndexJar(dep)
		if err != nil {
			orchestratorLog.WithPath(dep).Warnf("failed to index jar: %v", err)
			continue
		}
		if err := o.store.AddDependency(dep); err != nil {
			orchestratorLog.WithPath(dep).Warnf("failed to record dependency: %v", err)
			continue
		}
		for _, sym := range symbols {
			if err := o.store.AddSymbol(sym); err != nil {
				orchestratorLog.WithPath(dep).Warnf("failed to add symbol: %v", err)
			}
		}
		totalSymbols += len(symbols)
	}

	o.bus.Publish(types.NewWorkspaceIndexedEvent(
		uuid.NewString(), time.Now(), root, len(files), totalSymbols, time.Since(start).Milliseconds(),
	))

	return nil
}

// commitFile runs a FileRecord upsert followed by one AddSymbol per
// extracted symbol, then publishes a FileIndexedEvent on success. Each
// store call commits its own transaction, so the sequence is not atomic:
// a failure part-way leaves the symbols already added in place.
func (o *Orchestrator) commitFile(path string, symbols []types.Symbol) error {
	if err := o.store.AddFile(path); err != nil {
		return err
	}
	for _, sym := range symbols {
		if err := o.store.AddSymbol(sym); err != nil {
			return err
		}
	}
	o.bus.Publish(types.NewFileIndexedEvent(uuid.NewString(), time.Now(), path, symbols, true))
	return nil
}

// UpdateFile implements spec.md §4.6's updateFile operation: a build
// descriptor change invalidates the Dependency Cache and re-runs
// Initialize to completion; a source file change is removed then
// re-inserted in one logical sequence; anything else is a no-op.
func (o *Orchestrator) UpdateFile(path string) *Future[struct{}] {
	ctx, cancel := context.WithCancel(context.Background())
	f, resolve := newFuture[struct{}](cancel)

	go func() {
		var err error
		switch {
		case IsBuildDescriptor(path):
			o.cache.InvalidateProject(o.cfg.Project.Root)
			o.bus.Publish(types.NewDependencyCacheInvalidatedEvent(uuid.NewString(), time.Now(), o.cfg.Project.Root))
			err = o.runInitialize(ctx)
		case isSourceFile(path, o.includeJava):
			err = o.updateSourceFile(path)
		}
		resolve(struct{}{}, err)
	}()

	return f
}

func (o *Orchestrator) updateSourceFile(path string) error {
	if err := o.store.RemoveFile(path); err != nil {
		return err
	}

	var symbols []types.Symbol
	if o.includeJava && IsJavaFile(path) {
		symbols = parser.ParseJavaFile(path)
	} else {
		symbols = o.bridge.ParseFile(path)
	}

	return o.commitFile(path, symbols)
}

func isSourceFile(path string, includeJava bool) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".groovy", ".gradle":
		return true
	case ".java":
		return includeJava
	default:
		return false
	}
}

// SearchSymbols delegates to the Symbol Store's search on a background
// goroutine, per spec.md §4.6.
func (o *Orchestrator) SearchSymbols(query string) *Future[[]types.Symbol] {
	ctx, cancel := context.WithCancel(context.Background())
	f, resolve := newFuture[[]types.Symbol](cancel)

	go func() {
		select {
		case <-ctx.Done():
			resolve(nil, ctx.Err())
			return
		default:
		}
		results, err := o.store.Search(query)
		resolve(results, err)
	}()

	return f
}

// Shutdown stops the memory-pressure ticker, closes the Store, and logs
// final cache statistics. Idempotent.
func (o *Orchestrator) Shutdown() error {
	var closeErr error
	o.shutdownOnce.Do(func() {
		close(o.tickerDone)
		o.ticker.Stop()
		stats := o.cache.Stats()
		orchestratorLog.Infof("final dependency cache stats: hits=%d misses=%d evictions=%d", stats.Hits, stats.Misses, stats.Evictions)
		closeErr = o.store.Close()
	})
	return closeErr
}
