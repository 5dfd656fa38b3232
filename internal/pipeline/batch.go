package pipeline

import (
	"context"
	"sync"
	"time"
)

// Request is one listing to plan.
type Request struct {
	AppURL  string
	Country string
}

// BatchStats summarizes a batch run
type BatchStats struct {
	Total     int
	Cached    int
	Generated int
	Failed    int
	Duration  time.Duration
}

const defaultConcurrency = 3

// RunBatch plans every request with a small worker pool. Results are returned in
// request order; one failed listing never stops the others.
func (p *Pipeline) RunBatch(ctx context.Context, reqs []Request, concurrency int) ([]*Result, *BatchStats) {
	startTime := time.Now()
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	results := make([]*Result, len(reqs))
	jobs := make(chan int, len(reqs))
	for i := range reqs {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for range min(concurrency, len(reqs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.Run(ctx, reqs[i].AppURL, reqs[i].Country)
			}
		}()
	}
	wg.Wait()

	stats := &BatchStats{Total: len(reqs)}
	for _, r := range results {
		switch r.Status {
		case StatusCached:
			stats.Cached++
		case StatusGenerated:
			stats.Generated++
		default:
			stats.Failed++
		}
	}
	stats.Duration = time.Since(startTime)
	return results, stats
}
