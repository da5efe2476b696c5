package worker

import (
	"context"
)

// FuncJob adapts a keyed function to Job
type FuncJob struct {
	ID string
	Fn func(ctx context.Context, id string) error
}

// Key returns the job identifier
func (j FuncJob) Key() string { return j.ID }

// Execute runs the wrapped function
func (j FuncJob) Execute(ctx context.Context) error { return j.Fn(ctx, j.ID) }

// BatchProcessor applies one function to many keys with bounded concurrency
type BatchProcessor struct {
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(concurrency int) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchProcessor{concurrency: concurrency}
}

// Process runs fn for every id and returns one result per submitted id.
// Duplicate ids are processed once. If ctx is cancelled early the
// remaining ids are reported with ctx.Err().
func (b *BatchProcessor) Process(ctx context.Context, ids []string, fn func(ctx context.Context, id string) error) []Result {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return []Result{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	submitted := make(chan int, 1)
	go func() {
		n := 0
		for _, id := range unique {
			if !pool.Submit(FuncJob{ID: id, Fn: fn}) {
				break
			}
			n++
		}
		pool.Close()
		submitted <- n
	}()

	seen := make(map[string]bool, len(unique))
	results := make([]Result, 0, len(unique))
	for r := range pool.Results() {
		seen[r.Key] = true
		results = append(results, r)
	}
	<-submitted

	for _, id := range unique {
		if !seen[id] {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results = append(results, Result{Key: id, Error: err})
		}
	}

	return results
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
