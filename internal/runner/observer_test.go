package runner

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"rageval/internal/question"
	"rageval/internal/results"
	"rageval/internal/trend"
)

// TestObserversFanOut verifies every non-nil observer receives each callback.
func TestObserversFanOut(t *testing.T) {
	first, second := &recordingObserver{}, &recordingObserver{}
	if Observers(nil, nil) != nil {
		t.Fatalf("expected nil observer when all entries are nil")
	}
	if got := Observers(nil, first); got != RunObserver(first) {
		t.Fatalf("expected single observer to be returned unwrapped")
	}
	fan := Observers(first, nil, second)
	fan.OnScenarioStart(ScenarioInfo{RunID: "r1"})
	fan.OnQuestionEvent(QuestionEvent{QuestionIndex: 0, Type: QuestionDone})
	fan.OnScenarioEnd(results.RunResult{RunID: "r1"}, trend.Summary{})
	fan.OnScenarioAbort("s", errors.New("boom"))
	for _, o := range []*recordingObserver{first, second} {
		if len(o.started) != 1 || len(o.events) != 1 || len(o.ended) != 1 || len(o.aborted) != 1 {
			t.Fatalf("unexpected deliveries %+v", o)
		}
	}
}

// TestQuestionEmitterFillsIdentity verifies events carry run and question identity.
func TestQuestionEmitterFillsIdentity(t *testing.T) {
	var nilEmitter *questionEmitter
	nilEmitter.EmitQueuedAll()
	nilEmitter.Emit(QuestionEvent{})
	if newQuestionEmitter(nil, "r1", "s", nil, time.Now) != nil {
		t.Fatalf("expected nil emitter without observer")
	}

	observer := &recordingObserver{}
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	questions := []question.Question{{ID: "Q1", Text: "first"}, {ID: "Q2", Text: "second"}}
	emitter := newQuestionEmitter(observer, "r1", "refunds", questions, func() time.Time { return at })
	emitter.EmitQueuedAll()
	emitter.Emit(QuestionEvent{QuestionIndex: 1, Type: QuestionAsking})
	emitter.Emit(QuestionEvent{QuestionIndex: 5, Type: QuestionAsking})

	if len(observer.events) != 3 {
		t.Fatalf("expected 3 events (out of range dropped), got %d", len(observer.events))
	}
	last := observer.events[2]
	if last.RunID != "r1" || last.Scenario != "refunds" || last.QuestionID != "Q2" || last.QuestionText != "second" || !last.EmittedAt.Equal(at) {
		t.Fatalf("unexpected event %+v", last)
	}
}

// TestLogObserverLevels verifies failures log at warn and progress at debug.
func TestLogObserverLevels(t *testing.T) {
	var buf bytes.Buffer
	observer := LogObserver{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))}
	observer.OnQuestionEvent(QuestionEvent{RunID: "r1", QuestionID: "Q1", Type: QuestionAsking})
	observer.OnQuestionEvent(QuestionEvent{RunID: "r1", QuestionID: "Q2", Type: QuestionFailed, Error: "timeout"})
	out := buf.String()
	if strings.Contains(out, "Q1") {
		t.Fatalf("expected debug events to be filtered, got %q", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "question_id=Q2") {
		t.Fatalf("expected warn line for failed question, got %q", out)
	}
}
