package eval

import (
	"context"
	"errors"

	"rageval/internal/metric"
)

// Request is one (question, metric) test case handed to a Scorer.
type Request struct {
	Capability       metric.Capability
	Question         string
	Answer           string
	ExpectedAnswer   string
	RetrievalContext []string
	IncludeReason    bool
	Threshold        float64
	TruthsLimit      int
}

// Metric returns the metric name the request scores.
func (r Request) Metric() string {
	return r.Capability.Metric
}

// Expected returns the expected answer, defaulting to the actual answer when the
// dataset row has none.
func (r Request) Expected() string {
	if r.ExpectedAnswer != "" {
		return r.ExpectedAnswer
	}
	return r.Answer
}

// Score is a scorer's verdict.
type Score struct {
	Value  float64
	Reason string
}

// Scorer grades one test case. Implementations mark retryable failures with Transient.
type Scorer interface {
	Score(ctx context.Context, req Request) (Score, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, req Request) (Score, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, req Request) (Score, error) {
	return f(ctx, req)
}

// ErrTransient marks scorer failures worth retrying.
var ErrTransient = errors.New("transient scorer error")

// TransientError wraps a retryable scorer failure.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransient.
func (e *TransientError) Is(target error) bool {
	return target == ErrTransient
}

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
