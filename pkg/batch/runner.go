// Package batch runs independent research jobs for many subjects under a
// bounded worker pool. Each job owns its state; one subject failing never
// stops the others.
package batch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mikeboe/company-researcher/pkg/research"
)

const DefaultWorkers = 5

// ResearchFunc runs one subject end to end.
type ResearchFunc func(ctx context.Context, subject string) research.Result

// Run researches every subject with at most workers running concurrently.
// Results come back in input order.
func Run(ctx context.Context, subjects []string, workers int, fn ResearchFunc) []research.Result {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([]research.Result, len(subjects))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)

	for i, subject := range subjects {
		wg.Add(1)
		go func(i int, subject string) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			if ctx.Err() != nil {
				results[i] = research.Result{Subject: subject, Success: false, Err: ctx.Err().Error()}
				return
			}
			results[i] = fn(ctx, subject)
			if !results[i].Success {
				slog.Warn("Batch subject failed", "subject", subject, "error", results[i].Err)
			}
		}(i, subject)
	}
	wg.Wait()
	return results
}
