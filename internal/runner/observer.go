package runner

import (
	"time"

	"rageval/internal/question"
	"rageval/internal/results"
	"rageval/internal/trend"
)

// QuestionEventType identifies a question status update for observers.
type QuestionEventType string

const (
	// QuestionQueued marks a question known but not yet picked up by a worker.
	QuestionQueued QuestionEventType = "queued"
	// QuestionAsking marks an in-flight backend ask.
	QuestionAsking QuestionEventType = "asking"
	// QuestionScoring marks metrics being scored.
	QuestionScoring QuestionEventType = "scoring"
	// QuestionDone marks a question with every metric scored or failed.
	QuestionDone QuestionEventType = "done"
	// QuestionFailed marks a question whose backend ask failed.
	QuestionFailed QuestionEventType = "failed"
)

// QuestionEvent carries a single status update for a question.
type QuestionEvent struct {
	RunID         string
	Scenario      string
	QuestionIndex int
	QuestionID    string
	QuestionText  string
	Type          QuestionEventType
	Metrics       int
	Passed        int
	WallTime      time.Duration
	Error         string
	EmittedAt     time.Time
}

// ScenarioInfo describes a scenario about to be evaluated.
type ScenarioInfo struct {
	RunID     string
	Feature   string
	Scenario  string
	Metrics   []string
	Questions []question.Question
}

// RunObserver receives evaluation lifecycle events for UI or logging. Question
// events arrive from worker goroutines, so implementations must be safe for
// concurrent use.
type RunObserver interface {
	// OnScenarioStart signals the start of a scenario run.
	OnScenarioStart(info ScenarioInfo)
	// OnQuestionEvent delivers a question status update.
	OnQuestionEvent(event QuestionEvent)
	// OnScenarioEnd signals a persisted run and its refreshed trend.
	OnScenarioEnd(run results.RunResult, summary trend.Summary)
	// OnScenarioAbort signals a scenario that stopped before persisting.
	OnScenarioAbort(scenario string, err error)
}

// questionEmitter bridges worker progress to RunObserver callbacks.
type questionEmitter struct {
	observer  RunObserver
	runID     string
	scenario  string
	questions []question.Question
	now       func() time.Time
}

// newQuestionEmitter constructs an emitter when an observer is set.
func newQuestionEmitter(observer RunObserver, runID, scenario string, questions []question.Question, now func() time.Time) *questionEmitter {
	if observer == nil {
		return nil
	}
	return &questionEmitter{observer: observer, runID: runID, scenario: scenario, questions: questions, now: now}
}

// EmitQueuedAll emits queued events for every question in the scenario.
func (e *questionEmitter) EmitQueuedAll() {
	if e == nil {
		return
	}
	for index := range e.questions {
		e.Emit(QuestionEvent{QuestionIndex: index, Type: QuestionQueued})
	}
}

// Emit fills in question identity and forwards the event.
func (e *questionEmitter) Emit(event QuestionEvent) {
	if e == nil || e.observer == nil {
		return
	}
	if event.QuestionIndex < 0 || event.QuestionIndex >= len(e.questions) {
		return
	}
	item := e.questions[event.QuestionIndex]
	event.RunID = e.runID
	event.Scenario = e.scenario
	event.QuestionID = item.ID
	event.QuestionText = item.Text
	if event.EmittedAt.IsZero() {
		event.EmittedAt = e.now()
	}
	e.observer.OnQuestionEvent(event)
}

// Observers fans events out to several observers; nil entries are skipped.
func Observers(observers ...RunObserver) RunObserver {
	var list multiObserver
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	switch len(list) {
	case 0:
		return nil
	case 1:
		return list[0]
	default:
		return list
	}
}

type multiObserver []RunObserver

func (m multiObserver) OnScenarioStart(info ScenarioInfo) {
	for _, o := range m {
		o.OnScenarioStart(info)
	}
}

func (m multiObserver) OnQuestionEvent(event QuestionEvent) {
	for _, o := range m {
		o.OnQuestionEvent(event)
	}
}

func (m multiObserver) OnScenarioEnd(run results.RunResult, summary trend.Summary) {
	for _, o := range m {
		o.OnScenarioEnd(run, summary)
	}
}

func (m multiObserver) OnScenarioAbort(scenario string, err error) {
	for _, o := range m {
		o.OnScenarioAbort(scenario, err)
	}
}
