// Package config loads the Index Core's configuration: project location,
// workspace include/exclude globs, Symbol Store sizing, worker pool and
// watch-mode tuning, and Dependency Cache limits.
package config

import (
	"fmt"
	"os"
)

// Config is the root configuration object, grouped the way the teacher
// groups Project/Index/Performance.
type Config struct {
	Project     Project
	Store       Store
	Index       Index
	Performance Performance
	DepCache    DepCache
	Include     []string
	Exclude     []string
}

// Project describes the workspace root being indexed.
type Project struct {
	Root string
	Name string
}

// Store configures the embedded Symbol Store.
type Store struct {
	// Dir is relative to Project.Root; defaults to ".groovy-lsp/index".
	Dir string
	// MapSizeBytes sizes the bbolt environment's allocation growth step
	// (see store.Initialize); it does not cap the size of the database file.
	MapSizeBytes int64
}

// Index controls workspace-walk and file-watch behavior.
type Index struct {
	MaxFileSize     int64 // bytes; not read by the indexing pipeline, whose parsers apply their own fixed 10 MiB guard
	WatchMode       bool
	WatchDebounceMs int
}

// Performance controls the bounded worker pool.
type Performance struct {
	ParallelFileWorkers int // 0 = auto-detect (NumCPU)
	IndexingTimeoutSec  int
}

// DepCache holds the Dependency Cache's limits. The Orchestrator reads
// MemoryPressureTargetMB and MemoryCheckIntervalSec; the cache itself uses
// the fixed depcache.DependencyTTL and depcache.MaxClassLoaderEntries, so
// DependencyTTLSeconds and MaxClassLoaderEntries have no effect.
type DepCache struct {
	DependencyTTLSeconds   int
	MaxClassLoaderEntries  int
	MemoryPressureTargetMB int
	MemoryCheckIntervalSec int
}

// Default returns a Config populated with the defaults spec.md names
// explicitly: a 1 GiB store map size (§4.1), a one-hour dependency TTL
// (§3), a 100-entry classloader cap (§4.5), and a 5-minute memory-pressure
// tick at 70% of max heap (§5).
func Default(projectRoot string) *Config {
	return &Config{
		Project: Project{Root: projectRoot, Name: ""},
		Store: Store{
			Dir:          ".groovy-lsp/index",
			MapSizeBytes: 1 << 30,
		},
		Index: Index{
			MaxFileSize:     10 * 1024 * 1024,
			WatchMode:       true,
			WatchDebounceMs: 150,
		},
		Performance: Performance{
			ParallelFileWorkers: 0,
			IndexingTimeoutSec:  120,
		},
		DepCache: DepCache{
			DependencyTTLSeconds:   3600,
			MaxClassLoaderEntries:  100,
			MemoryPressureTargetMB: 0, // 0 = compute as 70% of runtime max heap
			MemoryCheckIntervalSec: 300,
		},
		Include: []string{"**/*.groovy", "**/*.gradle", "**/*.java"},
		Exclude: []string{"**/.git/**", "**/build/**", "**/.gradle/**", "**/target/**"},
	}
}

// Validate rejects a Config that cannot be used to initialize the Index
// Core: a blank project root is a programming fault (§7 "Input invalid"),
// not an environmental one.
func (c *Config) Validate() error {
	if c.Project.Root == "" {
		return fmt.Errorf("config: project root must not be blank")
	}
	if info, err := os.Stat(c.Project.Root); err != nil || !info.IsDir() {
		return fmt.Errorf("config: project root %q is not a directory", c.Project.Root)
	}
	if c.Store.MapSizeBytes <= 0 {
		return fmt.Errorf("config: store map size must be positive")
	}
	return nil
}
