package results

import (
	"time"

	"rageval/internal/metric"
)

// Meta describes a run before any question is evaluated.
type Meta struct {
	RunID        string
	StartedAt    time.Time
	Mode         string
	Model        string
	Feature      string
	Scenario     string
	ScenarioTags []string
	MappingMode  string
}

// Builder assembles a RunResult. It has a single writer: the orchestrator adds
// question results as workers report them and Build derives the aggregates.
// It is not safe for concurrent use.
type Builder struct {
	meta      Meta
	selected  []metric.Spec
	questions []QuestionResult
	filled    []bool
}

// NewBuilder prepares a run of size questions.
func NewBuilder(meta Meta, selected []metric.Spec, size int) *Builder {
	return &Builder{
		meta:      meta,
		selected:  selected,
		questions: make([]QuestionResult, size),
		filled:    make([]bool, size),
	}
}

// Add records a question result at its dataset index and stamps its outcomes
// with the run id.
func (b *Builder) Add(result QuestionResult) {
	if result.Index < 0 || result.Index >= len(b.questions) {
		return
	}
	for i := range result.Outcomes {
		result.Outcomes[i].RunID = b.meta.RunID
		result.Outcomes[i].QuestionID = result.QuestionID
	}
	b.questions[result.Index] = result
	b.filled[result.Index] = true
}

// Build finalizes the run. Questions that never reported are dropped.
func (b *Builder) Build(finishedAt time.Time) RunResult {
	questions := make([]QuestionResult, 0, len(b.questions))
	for i, q := range b.questions {
		if b.filled[i] {
			questions = append(questions, q)
		}
	}
	selected := make([]string, 0, len(b.selected))
	for _, spec := range b.selected {
		selected = append(selected, spec.Name)
	}
	tags := append([]string{}, b.meta.ScenarioTags...)
	return RunResult{
		RunID:              b.meta.RunID,
		StartedAt:          b.meta.StartedAt.UTC(),
		FinishedAt:         finishedAt.UTC(),
		Mode:               b.meta.Mode,
		Model:              b.meta.Model,
		Feature:            b.meta.Feature,
		Scenario:           b.meta.Scenario,
		ScenarioTags:       tags,
		SelectedMetrics:    selected,
		MappingMode:        b.meta.MappingMode,
		DatasetSize:        len(b.questions),
		PerQuestion:        questions,
		PerMetricAggregate: Aggregate(b.selected, questions),
	}
}
