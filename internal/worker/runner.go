package worker

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/raoulx24/autosnap/internal/snapshot"
)

// contains the loop that pulls jobs from the queue and executes them, and
// the bounded pool running several loops.

// RunLoop handles jobs until the queue is drained or ctx is done, storing
// each result at its job index.
func RunLoop(ctx context.Context, w *Worker, run Run, q *Queue, results []Result) {
	for {
		job, ok := q.Pop(ctx)
		if !ok {
			return
		}
		results[job.Index] = w.Handle(ctx, run, job.Workload)
	}
}

// RunAll processes workloads with at most concurrency loops in parallel.
// Results follow the order of workloads. Workloads never started because
// ctx ended are reported as failed.
func (w *Worker) RunAll(ctx context.Context, run Run, workloads []snapshot.Workload, concurrency int) []Result {
	results := make([]Result, len(workloads))
	if len(workloads) == 0 {
		return results
	}
	concurrency = max(1, min(concurrency, len(workloads)))

	q := NewQueue(len(workloads))
	for i, wl := range workloads {
		q.Push(Job{Index: i, Workload: wl})
	}
	q.Close()

	w.log.Info("processing workloads", "count", len(workloads), "concurrency", concurrency, "mode", run.Mode.String(), "dryRun", run.DryRun)
	var g errgroup.Group
	for range concurrency {
		g.Go(func() error {
			RunLoop(ctx, w, run, q, results)
			return nil
		})
	}
	_ = g.Wait()

	for _, job := range q.Drain() {
		results[job.Index] = Result{
			Workload: job.Workload,
			Phase:    PhaseListing,
			Errors:   []error{fmt.Errorf("not started: %w", context.Cause(ctx))},
		}
	}
	return results
}
