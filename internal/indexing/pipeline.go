package indexing

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/groovy-lsp-index/internal/parser"
	"github.com/standardbeagle/groovy-lsp-index/internal/types"
)

// fileParseResult is one completed parse job: the symbols extracted from
// path. A file that failed to parse has zero symbols and is otherwise
// indistinguishable; it is still indexed.
type fileParseResult struct {
	Path    string
	Symbols []types.Symbol
}

// runParseJobs dispatches one parse job per file to a bounded worker pool.
// A workers value of 0 auto-sizes to runtime.NumCPU(). Cancelling ctx skips
// not-yet-started jobs; already-running jobs complete.
func runParseJobs(ctx context.Context, files []string, bridge *parser.Bridge, includeJava bool, workers int) []fileParseResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]fileParseResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}

			var symbols []types.Symbol
			if includeJava && IsJavaFile(path) {
				symbols = parser.ParseJavaFile(path)
			} else {
				symbols = bridge.ParseFile(path)
			}
			results[i] = fileParseResult{Path: path, Symbols: symbols}
			return nil
		})
	}

	_ = g.Wait() // job bodies never return an error; parse failures yield zero symbols instead

	return results
}
