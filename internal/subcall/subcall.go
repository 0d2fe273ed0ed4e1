// Package subcall is the single primitive for isolated best-effort
// calls: run with a timeout, absorb every failure mode, and report an
// explicit present/absent result. All degradable integration points
// in the pipeline (stock providers, per-candidate scoring, the safety
// probe) compose from it instead of ad hoc try/skip logic.
package subcall

import (
	"context"
	"log/slog"
	"time"
)

// Result carries the outcome of one isolated call. The value is only
// meaningful when OK reports true.
type Result[T any] struct {
	Value T
	Err   error
}

func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Do runs fn under its own deadline. A failure (including deadline
// expiry) is logged and returned as an absent result; it never
// propagates as an error to the caller's control flow.
func Do[T any](ctx context.Context, timeout time.Duration, name string, fn func(context.Context) (T, error)) Result[T] {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	value, err := fn(cctx)
	if err != nil {
		slog.Warn("isolated call failed", "call", name, "error", err)
		var zero T
		return Result[T]{Value: zero, Err: err}
	}
	return Result[T]{Value: value}
}

// Map runs fn over items with at most limit concurrent calls, each
// isolated via Do. The returned slice is index-aligned with items, so
// output order is deterministic regardless of completion order.
func Map[In, Out any](ctx context.Context, limit int, timeout time.Duration, name string, items []In, fn func(context.Context, In) (Out, error)) []Result[Out] {
	if limit < 1 {
		limit = 1
	}

	results := make([]Result[Out], len(items))
	semaphore := make(chan struct{}, limit)
	done := make(chan int, len(items))

	for i, item := range items {
		go func(index int, in In) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[index] = Do(ctx, timeout, name, func(cctx context.Context) (Out, error) {
				return fn(cctx, in)
			})
			done <- index
		}(i, item)
	}

	for range items {
		<-done
	}
	return results
}
