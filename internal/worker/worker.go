// Package worker runs per-file jobs with bounded parallelism.
package worker

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Job processes one input file. A returned error is recorded for that file
// and does not stop the batch.
type Job func(ctx context.Context, index int, path string) error

// Result is the outcome of one job.
type Result struct {
	Index int
	Path  string
	Error error
}

// Progress is reported after each finished job.
type Progress struct {
	FilesComplete int
	FilesFailed   int
	FilesTotal    int
}

// Percent returns the completion percentage.
func (p Progress) Percent() float64 {
	if p.FilesTotal == 0 {
		return 0
	}
	return float64(p.FilesComplete) / float64(p.FilesTotal) * 100
}

// ProgressFunc receives batch progress. Calls are serialized.
type ProgressFunc func(Progress)

// Pool runs jobs over a file list with at most Workers in flight.
type Pool struct {
	Workers  int
	Progress ProgressFunc
}

// NewPool creates a pool. workers <= 0 means one.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{Workers: workers}
}

// Run executes job for every path and returns one Result per path in input
// order. Once ctx is cancelled no further jobs start; jobs that never ran
// carry ctx.Err(). Run returns ctx.Err() if the batch was cut short.
func (p *Pool) Run(ctx context.Context, paths []string, job Job) ([]Result, error) {
	results := make([]Result, len(paths))
	for i, path := range paths {
		results[i] = Result{Index: i, Path: path}
	}
	if len(paths) == 0 {
		return results, nil
	}

	var (
		mu       sync.Mutex
		progress = Progress{FilesTotal: len(paths)}
		started  = make([]bool, len(paths))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)

	for i, path := range paths {
		i, path := i, path
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			mu.Lock()
			started[i] = true
			mu.Unlock()

			err := job(gctx, i, path)

			mu.Lock()
			results[i].Error = err
			progress.FilesComplete++
			if err != nil {
				progress.FilesFailed++
			}
			snapshot := progress
			if p.Progress != nil {
				p.Progress(snapshot)
			}
			mu.Unlock()
			return nil
		})
	}

	// Jobs never fail the group, so Wait only synchronizes.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		for i := range results {
			if !started[i] {
				results[i].Error = err
			}
		}
		return results, err
	}
	return results, nil
}
