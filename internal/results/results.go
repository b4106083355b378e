// Package results defines the persisted run artifact, its index entry and the
// per-metric aggregation derived from outcomes.
package results

import (
	"time"

	"rageval/internal/eval"
)

// Status labels shared by runs, trend points and trend windows.
const (
	StatusPass   = "PASS"
	StatusFail   = "FAIL"
	StatusWarn   = "WARN"
	StatusNoData = "NO_DATA"
)

// MetricOutcome is one metric scored on one question of a run.
type MetricOutcome struct {
	RunID      string `json:"run_id"`
	QuestionID string `json:"question_id"`
	eval.Outcome
}

// QuestionResult holds the backend answer and every metric outcome for a question.
type QuestionResult struct {
	Index            int             `json:"index"`
	QuestionID       string          `json:"question_id"`
	Question         string          `json:"question"`
	ExpectedAnswer   string          `json:"expected_answer,omitempty"`
	Category         string          `json:"category,omitempty"`
	Answer           string          `json:"answer"`
	RetrievalContext []string        `json:"retrieval_context"`
	SessionID        string          `json:"session_id,omitempty"`
	Error            string          `json:"error,omitempty"`
	Outcomes         []MetricOutcome `json:"outcomes"`
}

// RunResult is the immutable artifact written once per scenario run.
type RunResult struct {
	RunID              string                     `json:"run_id"`
	StartedAt          time.Time                  `json:"started_at"`
	FinishedAt         time.Time                  `json:"finished_at"`
	Mode               string                     `json:"mode"`
	Model              string                     `json:"model,omitempty"`
	Feature            string                     `json:"feature,omitempty"`
	Scenario           string                     `json:"scenario,omitempty"`
	ScenarioTags       []string                   `json:"scenario_tags"`
	SelectedMetrics    []string                   `json:"selected_metrics"`
	MappingMode        string                     `json:"mapping_mode"`
	DatasetSize        int                        `json:"dataset_size"`
	PerQuestion        []QuestionResult           `json:"per_question"`
	PerMetricAggregate map[string]MetricAggregate `json:"per_metric_aggregate"`
	Status             string                     `json:"overall_status"`
}

// Outcomes flattens every metric outcome in dataset order.
func (r RunResult) Outcomes() []MetricOutcome {
	var outcomes []MetricOutcome
	for _, q := range r.PerQuestion {
		outcomes = append(outcomes, q.Outcomes...)
	}
	return outcomes
}

// MetricNames returns the aggregated metric names: selected metrics first, then any
// metric observed only in outcomes.
func (r RunResult) MetricNames() []string {
	names := append([]string(nil), r.SelectedMetrics...)
	seen := map[string]struct{}{}
	for _, name := range names {
		seen[name] = struct{}{}
	}
	for _, outcome := range r.Outcomes() {
		if _, ok := seen[outcome.Metric]; !ok {
			seen[outcome.Metric] = struct{}{}
			names = append(names, outcome.Metric)
		}
	}
	return names
}
