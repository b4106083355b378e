package eval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"rageval/internal/retry"
	"rageval/internal/telemetry"
)

// Options configures an Evaluator.
type Options struct {
	// MaxAttempts bounds scorer calls per test case, including the first.
	MaxAttempts int
	// Backoff is the delay before the first retry.
	Backoff time.Duration
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Evaluator runs a Scorer with bounded retries and turns its verdict into an Outcome.
type Evaluator struct {
	scorer  Scorer
	retry   retry.Config
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// New builds an Evaluator around scorer.
func New(scorer Scorer, opts Options) *Evaluator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Evaluator{
		scorer: scorer,
		retry: retry.Config{
			MaxAttempts:  max(opts.MaxAttempts, 1),
			InitialDelay: opts.Backoff,
			MaxDelay:     10 * opts.Backoff,
			Factor:       2,
		},
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// Evaluate scores one request. Failures never escape as errors: they become
// failed outcomes so the run can continue.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) Outcome {
	name := req.Metric()
	outcome := Outcome{
		Metric:    name,
		Threshold: req.Threshold,
		Kind:      req.Capability.Kind,
	}

	score, result := retry.DoWithValue(ctx, e.retry, func(ctx context.Context) (Score, error) {
		e.metrics.ScorerAttempt(name)
		score, err := e.scorer.Score(ctx, req)
		if err != nil {
			if IsTransient(err) {
				return Score{}, err
			}
			return Score{}, retry.Permanent(err)
		}
		if math.IsNaN(score.Value) || score.Value < 0 || score.Value > 1 {
			return Score{}, retry.Permanent(fmt.Errorf("score %v out of range [0,1]", score.Value))
		}
		return score, nil
	})
	outcome.Attempts = result.Attempts

	switch {
	case result.Err == nil:
		value := score.Value
		outcome.Score = &value
		outcome.Passed = value >= req.Threshold
		outcome.Reason = score.Reason
		if outcome.Passed {
			e.metrics.MetricOutcome(name, "pass")
		} else {
			e.metrics.MetricOutcome(name, "fail")
		}
	case result.Exhausted(e.retry):
		outcome.Reason = ReasonRetriesExhausted
		outcome.Error = result.Err.Error()
		e.metrics.MetricOutcome(name, "error")
		e.logger.Warn("scorer retries exhausted", "metric", name, "attempts", result.Attempts, "error", result.Err)
	default:
		outcome.Reason = result.Err.Error()
		outcome.Error = result.Err.Error()
		e.metrics.MetricOutcome(name, "error")
		e.logger.Warn("scorer failed", "metric", name, "error", result.Err)
	}
	return outcome
}
