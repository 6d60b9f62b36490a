// Package workerpool runs per-file extraction across a bounded set of
// worker goroutines (C8). The pool does not allocate LSP clients: each
// unit uses whatever client its closure captures, and internal/indexer's
// units all share one client per language group. Bounded parallelism is built on
// golang.org/x/sync/errgroup's SetLimit, the same structured-concurrency
// pattern the teacher's MCP integration test exercises, rather than a
// hand-rolled channel semaphore.
package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/lci-lsp/internal/telemetry"
)

var log = telemetry.Component("workerpool")

// Width returns W = min(cpu_count, 8) per spec §4.8.
func Width(cpuCount int) int {
	if cpuCount > 8 {
		return 8
	}
	if cpuCount < 1 {
		return 1
	}
	return cpuCount
}

// FileResult is one worker's outcome for one file. Err is set when the
// worker's unit panicked, timed out, or the extraction strategy
// returned an error — in all three cases the pool records it and moves
// on rather than aborting the whole update (§4.8).
type FileResult struct {
	Path    string
	Value   interface{} // the extract.Result, left untyped to avoid an import cycle
	Err     error
	Elapsed time.Duration
}

// Unit is one file's extraction work, supplied by the caller
// (internal/indexer) as a closure closing over its LSP client and
// strategy choice. Units are not given a client per worker; the
// indexer's units share one client across goroutines.
type Unit struct {
	Path string
	Run  func(ctx context.Context) (interface{}, error)
}

// ProgressFunc is invoked with the count of units completed so far out
// of total: at most once per 2s while units run, plus one final call
// with the full count once all have finished, whenever the last one was.
type ProgressFunc func(done, total int)

// Run executes units with at most width running at once (one goroutine
// per unit, limited by errgroup's SetLimit) and stores each unit's
// result at the unit's index in the returned slice. Units are not
// partitioned into per-worker chunks, and no result channel is used.
// A panicking unit is recovered and converted into a FileResult.Err
// rather than crashing the pool.
func Run(ctx context.Context, units []Unit, width int, onProgress ProgressFunc) []FileResult {
	if width < 1 {
		width = 1
	}

	results := make([]FileResult, len(units))
	var completed int64
	var progressMu sync.Mutex
	lastReport := time.Time{}

	reportProgress := func() {
		done := atomic.AddInt64(&completed, 1)
		if onProgress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		if time.Since(lastReport) < 2*time.Second {
			return
		}
		lastReport = time.Now()
		onProgress(int(done), len(units))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(width)

	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			results[i] = runUnit(gctx, unit)
			reportProgress()
			return nil // a unit's own error lives in FileResult, never aborts the group
		})
	}
	_ = g.Wait() // units never return a group-level error; see above

	if onProgress != nil {
		onProgress(len(units), len(units))
	}
	return results
}

// runUnit executes one unit, converting a panic into an error result so
// the pool never aborts the whole update over a single bad file (§4.8).
func runUnit(ctx context.Context, unit Unit) (result FileResult) {
	start := time.Now()
	defer func() {
		result.Elapsed = time.Since(start)
		if r := recover(); r != nil {
			log.Error("worker panicked, producing empty result", "path", unit.Path, "recovered", r)
			result = FileResult{Path: unit.Path, Err: &PanicError{Path: unit.Path, Value: r}}
		}
	}()

	value, err := unit.Run(ctx)
	return FileResult{Path: unit.Path, Value: value, Err: err, Elapsed: time.Since(start)}
}

// PanicError marks a worker unit that panicked; the pool substitutes an
// empty result for the file and keeps going.
type PanicError struct {
	Path  string
	Value interface{}
}

func (e *PanicError) Error() string {
	return "worker panicked processing " + e.Path
}
