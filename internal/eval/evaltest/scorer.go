// Package evaltest provides scripted scorers for tests.
package evaltest

import (
	"context"
	"fmt"
	"sync"

	"rageval/internal/eval"
)

// Step is one scripted scorer response.
type Step struct {
	Value  float64
	Reason string
	Err    error
}

// ScriptedScorer replays per-metric scripts; once a script runs out, its last step
// repeats. Metrics without a script score Default.
type ScriptedScorer struct {
	mu       sync.Mutex
	scripts  map[string][]Step
	calls    map[string]int
	requests []eval.Request
	Default  float64
}

// NewScriptedScorer returns a scorer that scores def for unscripted metrics.
func NewScriptedScorer(def float64) *ScriptedScorer {
	return &ScriptedScorer{
		scripts: map[string][]Step{},
		calls:   map[string]int{},
		Default: def,
	}
}

// Script sets the responses for a metric.
func (s *ScriptedScorer) Script(metricName string, steps ...Step) *ScriptedScorer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[metricName] = steps
	return s
}

// Always scores metricName with value on every call.
func (s *ScriptedScorer) Always(metricName string, value float64) *ScriptedScorer {
	return s.Script(metricName, Step{Value: value, Reason: fmt.Sprintf("scripted %.2f", value)})
}

// Score implements eval.Scorer.
func (s *ScriptedScorer) Score(ctx context.Context, req eval.Request) (eval.Score, error) {
	if err := ctx.Err(); err != nil {
		return eval.Score{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name := req.Metric()
	s.requests = append(s.requests, req)
	call := s.calls[name]
	s.calls[name] = call + 1
	steps := s.scripts[name]
	if len(steps) == 0 {
		return eval.Score{Value: s.Default, Reason: "default"}, nil
	}
	step := steps[min(call, len(steps)-1)]
	if step.Err != nil {
		return eval.Score{}, step.Err
	}
	return eval.Score{Value: step.Value, Reason: step.Reason}, nil
}

// Calls returns how many times metricName was scored.
func (s *ScriptedScorer) Calls(metricName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[metricName]
}

// Requests returns a copy of every request seen.
func (s *ScriptedScorer) Requests() []eval.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]eval.Request(nil), s.requests...)
}
