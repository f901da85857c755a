package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// taskResult is the outcome of one independent task. Failures are kept per
// slot so that one task never cancels its siblings.
type taskResult[T any] struct {
	Value T
	Err   error
}

// runAll runs fn for every index in [0,n) with at most limit tasks in
// flight (limit <= 0 means unbounded) and returns the results in index order.
func runAll[T any](ctx context.Context, n, limit int, fn func(ctx context.Context, i int) (T, error)) []taskResult[T] {
	results := make([]taskResult[T], n)
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			v, err := fn(ctx, i)
			results[i] = taskResult[T]{Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
