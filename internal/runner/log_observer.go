package runner

import (
	"log/slog"

	"rageval/internal/results"
	"rageval/internal/trend"
)

// LogObserver writes lifecycle events to a structured logger. Question events
// other than terminal ones are logged at debug level.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) OnScenarioStart(info ScenarioInfo) {
	o.Logger.Info("scenario started", "run_id", info.RunID, "scenario", info.Scenario, "metrics", info.Metrics, "questions", len(info.Questions))
}

func (o LogObserver) OnQuestionEvent(event QuestionEvent) {
	switch event.Type {
	case QuestionFailed:
		o.Logger.Warn("question failed", "run_id", event.RunID, "question_id", event.QuestionID, "error", event.Error)
	case QuestionDone:
		o.Logger.Debug("question done", "run_id", event.RunID, "question_id", event.QuestionID,
			"passed", event.Passed, "metrics", event.Metrics, "wall_time", event.WallTime)
	default:
		o.Logger.Debug("question event", "run_id", event.RunID, "question_id", event.QuestionID, "type", string(event.Type))
	}
}

func (o LogObserver) OnScenarioEnd(run results.RunResult, summary trend.Summary) {
	o.Logger.Info("scenario finished", "run_id", run.RunID, "scenario", run.Scenario, "status", run.Status, "trend", summary.OverallStatus)
}

func (o LogObserver) OnScenarioAbort(scenario string, err error) {
	o.Logger.Error("scenario aborted", "scenario", scenario, "error", err)
}
