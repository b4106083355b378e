package live

import (
	"time"

	"rageval/internal/runner"
)

// QuestionRow holds UI state for a single question.
type QuestionRow struct {
	Index      int
	ID         string
	Text       string
	Status     runner.QuestionEventType
	Metrics    int
	Passed     int
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
}

// StatusCounts aggregates counts by status bucket.
type StatusCounts struct {
	Queued  int
	Asking  int
	Scoring int
	Done    int
	Failed  int
}

// MetricLine summarizes one metric of the last finished scenario.
type MetricLine struct {
	Metric   string
	AvgScore *float64
	PassRate float64
	Status   string
}

// State captures the live UI state for the current scenario.
type State struct {
	RunID     string
	Feature   string
	Scenario  string
	Metrics   []string
	StartedAt time.Time
	LastEvent string
	Rows      []QuestionRow
	Counts    StatusCounts
	Finished  []MetricLine
	Overall   string
	Scenarios int
}
