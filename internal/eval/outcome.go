package eval

import "rageval/internal/metric"

// ReasonRetriesExhausted is recorded when every scorer attempt failed transiently.
const ReasonRetriesExhausted = "retries exhausted"

// Outcome is the result of scoring one metric on one question.
type Outcome struct {
	Metric    string      `json:"metric_name"`
	Score     *float64    `json:"score"`
	Passed    bool        `json:"passed"`
	Reason    string      `json:"reason,omitempty"`
	Error     string      `json:"error,omitempty"`
	Threshold float64     `json:"threshold"`
	Kind      metric.Kind `json:"kind"`
	Attempts  int         `json:"attempts"`
}

// Scored reports whether the outcome carries a score.
func (o Outcome) Scored() bool {
	return o.Score != nil
}

// Failed returns a failed outcome for a metric that never reached the scorer.
func Failed(spec metric.Spec, err error) Outcome {
	return Outcome{
		Metric:    spec.Name,
		Passed:    false,
		Reason:    err.Error(),
		Error:     err.Error(),
		Threshold: spec.Threshold,
		Kind:      spec.Capability.Kind,
	}
}
