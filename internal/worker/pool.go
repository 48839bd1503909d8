// Package worker schedules the six detectors across a bounded set of
// goroutines. Detectors are mutually independent pure readers of the
// immutable catalog, so the only synchronization is the semaphore itself.
package worker

import (
	"context"
	"sync"

	"github.com/gyeh/fraud-signals/internal/catalog"
	"github.com/gyeh/fraud-signals/internal/progress"
	"github.com/gyeh/fraud-signals/internal/signal"
	"github.com/gyeh/fraud-signals/internal/table"
)

// Result holds one detector's output.
type Result struct {
	Name    string
	Signals []signal.Signal
	Err     error
}

// Pool runs detectors concurrently with bounded parallelism.
type Pool struct {
	Workers  int
	Progress progress.Manager

	// Budget builds the per-detector budget. Each detector gets its own
	// memory slice; the scratch arena (and its ceiling) is shared.
	Budget func() *table.Budget
}

// Run executes all detectors and returns results indexed like detectors.
func (p *Pool) Run(ctx context.Context, cat *catalog.Catalog, detectors []signal.Detector) []Result {
	results := make([]Result, len(detectors))

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, det := range detectors {
		wg.Add(1)
		go func(idx int, det signal.Detector) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[idx] = Result{Name: det.Name(), Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			tracker := p.Progress.NewTracker(idx, len(detectors), det.Name())
			tracker.SetStage("Detecting")
			signals, err := det.Detect(ctx, cat, p.Budget())
			tracker.SetRows(int64(len(signals)))
			tracker.Done()

			results[idx] = Result{Name: det.Name(), Signals: signals, Err: err}
		}(i, det)
	}

	wg.Wait()
	return results
}
