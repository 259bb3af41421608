// Package worker provides a bounded fan-out pool for independent work items.
// There is no retry layer here: callers own their failure handling, and an
// item's outcome travels back in its Result value.
package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

type Options struct {
	// Workers bounds concurrency. 1 (the default) preserves strictly
	// sequential, input-order processing.
	Workers int

	// RateLimitRPS is a global limit across all workers. Set to <=0 to disable.
	RateLimitRPS float64
}

// Result holds the output for one input item.
type Result[In any, Out any] struct {
	Input  In
	Output Out
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

// ProcessAll runs fn over all items and returns results in input order.
// A cancelled context stops feeding new items; items never started are
// returned with their zero Output.
func ProcessAll[In any, Out any](
	ctx context.Context,
	items []In,
	fn func(context.Context, In) Out,
	opts Options,
) []Result[In, Out] {
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	out := make([]Result[In, Out], len(items))
	for i, item := range items {
		out[i] = Result[In, Out]{Input: item}
	}

	type job struct {
		idx int
		in  In
	}
	jobs := make(chan job)

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					return
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				out[j.idx].Output = fn(ctx, j.in)
			}
		}()
	}

feed:
	for i, item := range items {
		select {
		case jobs <- job{idx: i, in: item}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return out
}
