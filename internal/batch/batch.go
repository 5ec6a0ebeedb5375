// Package batch fans thumbnail requests for many files out over a worker
// pool. One file failing never affects the others.
package batch

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tendant/thumbcache/internal/cache"
	"github.com/tendant/thumbcache/internal/memory"
)

// Ensurer is the single-file operation the pool runs.
type Ensurer interface {
	EnsureThumbnails(ctx context.Context, path, cacheDir string) (cache.ThumbnailSet, error)
}

// Result is the outcome for one input path.
type Result struct {
	Path     string             `json:"path"`
	Set      cache.ThumbnailSet `json:"thumbnails"`
	Err      error              `json:"-"`
	Duration time.Duration      `json:"-"`
}

// Stats counts outcomes across a run.
type Stats struct {
	Total     int64
	Succeeded int64
	Failed    int64
}

// Options configures Run.
type Options struct {
	// Workers is the pool size; 0 picks one per CPU
	Workers int

	// Monitor pauses dispatch while memory is critical; nil disables backpressure
	Monitor *memory.Monitor

	// OnProgress is called once per finished file. Calls are serialized.
	OnProgress func(Result)
}

// WorkerCount returns override when positive, otherwise one worker per
// available CPU. A positive limit caps the result.
func WorkerCount(override, limit int) int {
	n := override
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

// Run ensures thumbnails for every path and returns results in input order.
// Paths not started before ctx is done report ctx.Err().
func Run(ctx context.Context, e Ensurer, paths []string, cacheDir string, opts Options) ([]Result, Stats) {
	results := make([]Result, len(paths))
	stats := Stats{Total: int64(len(paths))}
	if len(paths) == 0 {
		return results, stats
	}

	workers := WorkerCount(opts.Workers, len(paths))
	jobs := make(chan int)
	var (
		wg         sync.WaitGroup
		progressMu sync.Mutex
		succeeded  atomic.Int64
		failed     atomic.Int64
	)

	finish := func(i int, r Result) {
		results[i] = r
		if r.Err != nil {
			failed.Add(1)
		} else {
			succeeded.Add(1)
		}
		if opts.OnProgress != nil {
			progressMu.Lock()
			opts.OnProgress(r)
			progressMu.Unlock()
		}
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				path := paths[i]
				if err := opts.Monitor.WaitUntilSafe(ctx); err != nil {
					finish(i, Result{Path: path, Err: err})
					continue
				}
				start := time.Now()
				set, err := e.EnsureThumbnails(ctx, path, cacheDir)
				finish(i, Result{Path: path, Set: set, Err: err, Duration: time.Since(start)})
			}
		}()
	}

	next := 0
dispatch:
	for ; next < len(paths); next++ {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- next:
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(paths); i++ {
		finish(i, Result{Path: paths[i], Err: ctx.Err()})
	}

	stats.Succeeded = succeeded.Load()
	stats.Failed = failed.Load()
	return results, stats
}
