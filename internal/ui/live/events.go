package live

import (
	"rageval/internal/results"
	"rageval/internal/runner"
	"rageval/internal/trend"
)

// EventKind identifies the type of live UI event.
type EventKind int

const (
	// EventScenarioStart signals the start of a scenario.
	EventScenarioStart EventKind = iota
	// EventQuestion delivers a question status update.
	EventQuestion
	// EventScenarioEnd signals a persisted scenario run.
	EventScenarioEnd
	// EventScenarioAbort signals a scenario that stopped early.
	EventScenarioAbort
)

// Event carries a UI update payload.
type Event struct {
	Kind     EventKind
	Scenario runner.ScenarioInfo
	Question runner.QuestionEvent
	Run      results.RunResult
	Trend    trend.Summary
	Name     string
	Err      error
}
