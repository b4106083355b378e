package live

import (
	"fmt"
	"time"

	"rageval/internal/results"
	"rageval/internal/runner"
	"rageval/internal/trend"
)

// StartScenario resets the state for a new scenario.
func StartScenario(state State, info runner.ScenarioInfo, now time.Time) State {
	state.RunID = info.RunID
	state.Feature = info.Feature
	state.Scenario = info.Scenario
	state.Metrics = append([]string(nil), info.Metrics...)
	state.StartedAt = now
	state.Rows = make([]QuestionRow, len(info.Questions))
	for i, q := range info.Questions {
		state.Rows[i] = QuestionRow{Index: i, ID: q.ID, Text: q.Text, Status: runner.QuestionQueued}
	}
	state.Counts = recount(state.Rows)
	state.Finished = nil
	state.Overall = ""
	state.LastEvent = "Scenario " + info.Scenario + " started"
	return state
}

// Reduce applies a question event to the UI state.
func Reduce(state State, event runner.QuestionEvent) State {
	state = ensureRow(state, event)
	state = applyQuestionEvent(state, event)
	state.Counts = recount(state.Rows)
	if message := formatLastEvent(event); message != "" {
		state.LastEvent = message
	}
	return state
}

// FinishScenario records the persisted run's per-metric summary.
func FinishScenario(state State, run results.RunResult, summary trend.Summary) State {
	state.Finished = state.Finished[:0]
	for _, name := range run.MetricNames() {
		agg := run.PerMetricAggregate[name]
		state.Finished = append(state.Finished, MetricLine{
			Metric:   name,
			AvgScore: agg.AvgScore,
			PassRate: agg.PassRate,
			Status:   seriesStatus(summary, name),
		})
	}
	state.Overall = run.Status
	state.Scenarios++
	state.LastEvent = fmt.Sprintf("Run %s saved (%s, trend %s)", run.RunID, run.Status, summary.OverallStatus)
	return state
}

// AbortScenario records a scenario that stopped before persisting.
func AbortScenario(state State, name string, err error) State {
	state.Overall = "ABORTED"
	if err != nil {
		state.LastEvent = "Scenario " + name + " aborted: " + err.Error()
	} else {
		state.LastEvent = "Scenario " + name + " aborted"
	}
	return state
}

func seriesStatus(summary trend.Summary, metric string) string {
	for _, series := range summary.Metrics {
		if series.Metric == metric {
			return series.Status
		}
	}
	return results.StatusNoData
}

// ensureRow grows the state rows to include the target index.
func ensureRow(state State, event runner.QuestionEvent) State {
	if event.QuestionIndex < 0 || event.QuestionIndex < len(state.Rows) {
		return state
	}
	rows := make([]QuestionRow, event.QuestionIndex+1)
	copy(rows, state.Rows)
	for i := len(state.Rows); i < len(rows); i++ {
		rows[i] = QuestionRow{Index: i, Status: runner.QuestionQueued}
	}
	state.Rows = rows
	return state
}

// applyQuestionEvent updates a row with the given event.
func applyQuestionEvent(state State, event runner.QuestionEvent) State {
	if event.QuestionIndex < 0 || event.QuestionIndex >= len(state.Rows) {
		return state
	}
	row := state.Rows[event.QuestionIndex]
	if row.ID == "" {
		row.ID = event.QuestionID
	}
	if row.Text == "" {
		row.Text = event.QuestionText
	}
	row.Status = event.Type
	if event.Type == runner.QuestionAsking && row.StartedAt.IsZero() {
		row.StartedAt = event.EmittedAt
	}
	if event.Metrics > 0 {
		row.Metrics = event.Metrics
	}
	if isTerminalStatus(event.Type) {
		if !event.EmittedAt.IsZero() {
			row.FinishedAt = event.EmittedAt
		}
		row.Passed = event.Passed
		row.Error = event.Error
	}
	state.Rows[event.QuestionIndex] = row
	return state
}

// isTerminalStatus reports whether a status is final.
func isTerminalStatus(status runner.QuestionEventType) bool {
	return status == runner.QuestionDone || status == runner.QuestionFailed
}

// recount recomputes status counts for the current rows.
func recount(rows []QuestionRow) StatusCounts {
	var counts StatusCounts
	for _, row := range rows {
		switch row.Status {
		case runner.QuestionQueued:
			counts.Queued++
		case runner.QuestionAsking:
			counts.Asking++
		case runner.QuestionScoring:
			counts.Scoring++
		case runner.QuestionDone:
			counts.Done++
		case runner.QuestionFailed:
			counts.Done++
			counts.Failed++
		}
	}
	return counts
}

// formatLastEvent creates a short footer message for the event.
func formatLastEvent(event runner.QuestionEvent) string {
	label := formatIndex(event.QuestionIndex)
	switch event.Type {
	case runner.QuestionFailed:
		return fmt.Sprintf("%s ask failed: %s", label, event.Error)
	case runner.QuestionDone:
		return fmt.Sprintf("%s scored %d/%d passing (%s)", label, event.Passed, event.Metrics, formatDuration(event.WallTime))
	}
	return ""
}

// formatDuration renders a rounded duration for display.
func formatDuration(duration time.Duration) string {
	if duration <= 0 {
		return "0s"
	}
	return duration.Round(100 * time.Millisecond).String()
}
