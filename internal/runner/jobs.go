package runner

import (
	"context"

	"golang.org/x/sync/errgroup"

	"rageval/internal/metric"
	"rageval/internal/results"
)

// questionJob evaluates one assignment. It never fails; failures are outcomes.
type questionJob func(ctx context.Context, a metric.Assignment) results.QuestionResult

// runQuestionJobs runs jobs on up to workers goroutines. Workers send results
// over a channel and collect runs on the calling goroutine, so collect has a
// single writer. It returns the context error when cancelled.
func runQuestionJobs(ctx context.Context, assignments []metric.Assignment, workers int, job questionJob, collect func(results.QuestionResult)) error {
	if workers <= 1 {
		for _, a := range assignments {
			if err := ctx.Err(); err != nil {
				return err
			}
			collect(job(ctx, a))
		}
		return ctx.Err()
	}

	out := make(chan results.QuestionResult)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	var waitErr error
	go func() {
		defer close(out)
		for _, a := range assignments {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				result := job(gctx, a)
				select {
				case out <- result:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		waitErr = g.Wait()
	}()

	for result := range out {
		collect(result)
	}
	if waitErr != nil {
		return waitErr
	}
	return ctx.Err()
}
