package metric

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"rageval/internal/question"
	"rageval/internal/spec"
)

// ErrMappingMismatch marks positional mapping with unequal row and metric counts.
var ErrMappingMismatch = errors.New("metric/question mapping mismatch")

// MappingMismatchError carries the counts that did not line up.
type MappingMismatchError struct {
	Questions int
	Metrics   int
}

func (e *MappingMismatchError) Error() string {
	return fmt.Sprintf("positional mapping needs one metric per question: %d questions, %d metrics", e.Questions, e.Metrics)
}

// Is matches ErrMappingMismatch.
func (e *MappingMismatchError) Is(target error) bool {
	return target == ErrMappingMismatch
}

// Assignment pairs one question with the metrics to evaluate on it.
type Assignment struct {
	Index    int
	Question question.Question
	Metrics  []Spec
}

// rowMetricKeys are the metadata keys a row may use to name its metrics.
var rowMetricKeys = map[string]struct{}{
	"metric":         {},
	"metrics":        {},
	"metric_name":    {},
	"metric_names":   {},
	"target_metric":  {},
	"target_metrics": {},
}

// Plan maps selected metrics onto questions under the mapping mode. It never
// calls the backend, so a mismatch is reported before any backend traffic.
func (r *Registry) Plan(questions []question.Question, selected []Spec, mode string) ([]Assignment, error) {
	assignments := make([]Assignment, 0, len(questions))
	switch mode {
	case spec.MappingAll, "":
		for i, q := range questions {
			assignments = append(assignments, Assignment{Index: i, Question: q, Metrics: selected})
		}
	case spec.MappingPositional:
		if len(questions) != len(selected) {
			return nil, &MappingMismatchError{Questions: len(questions), Metrics: len(selected)}
		}
		for i, q := range questions {
			assignments = append(assignments, Assignment{Index: i, Question: q, Metrics: []Spec{selected[i]}})
		}
	case spec.MappingRow:
		for i, q := range questions {
			metrics := selected
			if names := RowMetrics(q); len(names) > 0 {
				metrics = r.Specs(names)
			}
			assignments = append(assignments, Assignment{Index: i, Question: q, Metrics: metrics})
		}
	default:
		return nil, fmt.Errorf("unknown mapping mode %q", mode)
	}
	return assignments, nil
}

// RowMetrics reads a row's own metric list from its metadata.
func RowMetrics(q question.Question) []string {
	keys := make([]string, 0, len(q.Metadata))
	for key := range q.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var raw any
	for _, key := range keys {
		if _, ok := rowMetricKeys[strings.ToLower(strings.TrimSpace(key))]; ok {
			raw = q.Metadata[key]
			break
		}
	}
	var parts []string
	switch typed := raw.(type) {
	case nil:
		return nil
	case []any:
		for _, item := range typed {
			parts = append(parts, fmt.Sprint(item))
		}
	case []string:
		parts = typed
	default:
		parts = SplitList(fmt.Sprint(typed))
	}
	var names []string
	seen := map[string]struct{}{}
	for _, part := range parts {
		name := Normalize(part)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
