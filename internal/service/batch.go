package service

import (
	"context"
	"sync"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"golang.org/x/sync/semaphore"
)

const defaultBatchWorkers = 4

// runBatch applies fn to every id with at most workers in flight. A failing
// item is reported in Errors and never stops the others. Results keep input order.
func runBatch[T any](ctx context.Context, ids []int64, workers int, fn func(ctx context.Context, id int64) (*T, error)) domain.BatchResult[T] {
	if workers < 1 {
		workers = defaultBatchWorkers
	}

	results := make([]*T, len(ids))
	errs := make([]error, len(ids))
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i, id := range ids {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(ids); j++ {
				errs[j] = err
			}
			break
		}
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			defer sem.Release(1)
			results[i], errs[i] = fn(ctx, id)
		}(i, id)
	}
	wg.Wait()

	out := domain.BatchResult[T]{
		Results: make([]T, 0, len(ids)),
		Errors:  make([]domain.BatchError, 0),
	}
	for i, id := range ids {
		switch {
		case errs[i] != nil:
			out.Errors = append(out.Errors, domain.BatchError{ProductID: id, Error: errs[i].Error()})
		case results[i] != nil:
			out.Results = append(out.Results, *results[i])
		}
	}
	return out
}
