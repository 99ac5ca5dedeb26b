package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/groovy-lsp-index/internal/config"
	"github.com/standardbeagle/groovy-lsp-index/internal/depcache"
	"github.com/standardbeagle/groovy-lsp-index/internal/depresolver"
	"github.com/standardbeagle/groovy-lsp-index/internal/eventbus"
	"github.com/standardbeagle/groovy-lsp-index/internal/indexing"
	"github.com/standardbeagle/groovy-lsp-index/internal/obslog"
	"github.com/standardbeagle/groovy-lsp-index/internal/parser"
	"github.com/standardbeagle/groovy-lsp-index/internal/store"
	"github.com/standardbeagle/groovy-lsp-index/internal/types"
	"github.com/standardbeagle/groovy-lsp-index/internal/version"
)

var mainLog = obslog.For("main")

// buildOrchestrator loads configuration, applies CLI overrides and wires
// the Symbol Store, Parser/Visitor Bridge, Dependency Resolver, Dependency
// Cache and Event Bus into an Indexer Orchestrator. It does not call
// Initialize; callers drive the lifecycle explicitly.
func buildOrchestrator(c *cli.Context) (*indexing.Orchestrator, *config.Config, error) {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config from %s: %w", absRoot, err)
	}
	if c.String("root") != "" {
		cfg.Project.Root = absRoot
	}

	if includeFlags := c.StringSlice("include"); len(includeFlags) > 0 {
		cfg.Include = includeFlags
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	st := store.New()
	cache := depcache.New()
	resolver := depresolver.New(depresolver.NewExecGradleConnector())
	bridge := parser.NewBridge(parser.NewHeuristicGroovyParser())
	bus := eventbus.New()

	eventbus.Subscribe(bus, func(e types.FileIndexedEvent) {
		mainLog.WithPath(e.Path()).Infof("indexed %d symbols", len(e.Symbols()))
	})
	eventbus.Subscribe(bus, func(e types.WorkspaceIndexedEvent) {
		mainLog.Infof("workspace index complete: %d files, %d symbols, %dms", e.TotalFiles(), e.TotalSymbols(), e.DurationMs())
	})

	orch := indexing.New(cfg, st, cache, resolver, bridge, bus)
	return orch, cfg, nil
}

func main() {
	app := &cli.App{
		Name:                   "groovy-lsp-index",
		Usage:                  "Workspace symbol index and dependency cache for a Groovy language server",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include files matching glob patterns (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns (appended to config)",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory to index (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress log output",
			},
		},
		Before: func(c *cli.Context) error {
			obslog.SetQuiet(c.Bool("quiet"))
			return nil
		},
		Commands: []*cli.Command{
			indexCommand(),
			searchCommand(),
			watchCommand(),
			statsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Index the workspace once and exit",
		Action: func(c *cli.Context) error {
			orch, _, err := buildOrchestrator(c)
			if err != nil {
				return err
			}

			future := orch.Initialize()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if _, err := future.Wait(ctx); err != nil {
				_ = orch.Shutdown()
				return fmt.Errorf("initialize failed: %w", err)
			}

			return orch.Shutdown()
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Index the workspace, then search for symbols whose name starts with a prefix",
		ArgsUsage: "<query>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("search requires a query argument")
			}
			query := c.Args().First()

			orch, _, err := buildOrchestrator(c)
			if err != nil {
				return err
			}
			defer orch.Shutdown()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if _, err := orch.Initialize().Wait(ctx); err != nil {
				return fmt.Errorf("initialize failed: %w", err)
			}

			results, err := orch.SearchSymbols(query).Wait(ctx)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			for _, sym := range results {
				fmt.Printf("%s\t%s\t%s:%d:%d\n", sym.Kind, sym.Name, sym.Location, sym.Line, sym.Column)
			}
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Index the workspace, then watch for file changes until interrupted",
		Action: func(c *cli.Context) error {
			orch, cfg, err := buildOrchestrator(c)
			if err != nil {
				return err
			}
			defer orch.Shutdown()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if _, err := orch.Initialize().Wait(ctx); err != nil {
				return fmt.Errorf("initialize failed: %w", err)
			}

			debounce := time.Duration(cfg.Index.WatchDebounceMs) * time.Millisecond
			watcher, err := indexing.NewWatcher(cfg.Project.Root, cfg.Exclude, debounce, func(path string) {
				updateCtx, updateCancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer updateCancel()
				if _, err := orch.UpdateFile(path).Wait(updateCtx); err != nil {
					mainLog.WithPath(path).Warnf("update failed: %v", err)
				}
			})
			if err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}
			defer watcher.Close()

			mainLog.Infof("watching %s for changes (ctrl-c to stop)", cfg.Project.Root)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh

			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Index the workspace once and report totals",
		Action: func(c *cli.Context) error {
			orch, cfg, err := buildOrchestrator(c)
			if err != nil {
				return err
			}
			defer orch.Shutdown()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if _, err := orch.Initialize().Wait(ctx); err != nil {
				return fmt.Errorf("initialize failed: %w", err)
			}

			results, err := orch.SearchSymbols("").Wait(ctx)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			fmt.Printf("root:    %s\n", cfg.Project.Root)
			fmt.Printf("symbols: %d\n", len(results))
			return nil
		},
	}
}
