// ABOUTME: Bounded worker pool that drives per-plugin jobs during a run
// ABOUTME: Results keep input order regardless of completion order
package reconcile

import (
	"context"
	"sync"
)

// DefaultWorkers is the default number of concurrent workers. A single
// worker keeps calls against the admin API strictly sequential.
const DefaultWorkers = 1

// job is one unit of work, identified by its position in the input
type job struct {
	Index   int
	Execute func(ctx context.Context) Outcome
}

// runWorkerPool executes jobs with at most workers in flight. callback is
// invoked from a single goroutine in completion order; the returned slice
// is in job order.
func runWorkerPool(ctx context.Context, jobs []job, workers int, callback func(Outcome)) []Outcome {
	if len(jobs) == 0 {
		return nil
	}

	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	type indexed struct {
		index   int
		outcome Outcome
	}

	// Unbuffered job channel so no worker starts a job it cannot begin promptly
	jobsChan := make(chan job)
	resultsChan := make(chan indexed, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobsChan {
				resultsChan <- indexed{index: j.Index, outcome: j.Execute(ctx)}
			}
		}()
	}

	go func() {
		for _, j := range jobs {
			jobsChan <- j
		}
		close(jobsChan)
	}()

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]Outcome, len(jobs))
	for r := range resultsChan {
		if callback != nil {
			callback(r.outcome)
		}
		results[r.index] = r.outcome
	}

	return results
}
