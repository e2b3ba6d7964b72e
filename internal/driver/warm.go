// Package driver holds the process-level plumbing around the analyzer:
// parallel cache warm-up ahead of the single-threaded inference pass.
package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"pyscope/internal/astcache"
	"pyscope/internal/diag"
)

// WarmCache parses every file in parallel so the sequential analysis
// pass hits the AST cache. Parse failures are ignored here; the
// analyzer reparses and records them with proper diagnostics.
func WarmCache(ctx context.Context, files []string, cache *astcache.Cache, jobs int) error {
	if cache == nil || len(files) == 0 {
		return nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	src := astcache.NewSource(cache)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for _, path := range files {
		path := path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			src.GetAST(path, diag.NopReporter{})
			return nil
		})
	}
	return g.Wait()
}
