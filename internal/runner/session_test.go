package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rageval/internal/backend"
	"rageval/internal/config"
	"rageval/internal/eval"
	"rageval/internal/eval/evaltest"
	"rageval/internal/metric"
	"rageval/internal/question"
	"rageval/internal/results"
	"rageval/internal/spec"
	"rageval/internal/store"
	"rageval/internal/testutil"
	"rageval/internal/trend"
)

type recordingObserver struct {
	mu      sync.Mutex
	events  []QuestionEvent
	started []ScenarioInfo
	ended   []results.RunResult
	aborted []error
}

func (o *recordingObserver) OnScenarioStart(info ScenarioInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, info)
}

func (o *recordingObserver) OnQuestionEvent(event QuestionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) OnScenarioEnd(run results.RunResult, _ trend.Summary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ended = append(o.ended, run)
}

func (o *recordingObserver) OnScenarioAbort(_ string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.aborted = append(o.aborted, err)
}

func (o *recordingObserver) eventsFor(index int) []QuestionEventType {
	o.mu.Lock()
	defer o.mu.Unlock()
	var types []QuestionEventType
	for _, event := range o.events {
		if event.QuestionIndex == index {
			types = append(types, event.Type)
		}
	}
	return types
}

type fixture struct {
	server   *testutil.RAGServer
	scorer   *evaltest.ScriptedScorer
	store    *store.Store
	session  *Session
	observer *recordingObserver
	document string
}

func newFixture(t *testing.T, mutate func(*spec.Config), serverCfg testutil.RAGServerConfig) *fixture {
	t.Helper()
	server := testutil.StartRAGServer(t, serverCfg)
	cfg := config.Defaults()
	cfg.Backend.BaseURL = server.URL
	cfg.Backend.BackoffSeconds = 0
	cfg.Reporting.ResultsDir = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}
	client := backend.NewClient(cfg.Backend, backend.ClientOptions{})
	st, err := store.Open(cfg.Reporting.ResultsDir, "session-test", store.Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	scorer := evaltest.NewScriptedScorer(0.9)
	observer := &recordingObserver{}
	clock := testutil.NewFakeClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	counter := 0
	session, err := NewSession(cfg, Options{
		Backend:  client,
		Scorer:   scorer,
		Store:    st,
		Observer: observer,
		Now:      clock.Ticking(time.Second),
		RunID: func(now time.Time) string {
			counter++
			return results.FormatRunID(now, "0000000"+string(rune('0'+counter)))
		},
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	doc := filepath.Join(t.TempDir(), "policy.txt")
	if err := os.WriteFile(doc, []byte("Refunds are accepted within 30 days."), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return &fixture{server: server, scorer: scorer, store: st, session: session, observer: observer, document: doc}
}

func dataset(n int) []question.Question {
	qs := make([]question.Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, question.Question{ID: "Q" + string(rune('1'+i)), Text: "question " + string(rune('a'+i))})
	}
	return qs
}

func (f *fixture) scenario(t *testing.T, questions []question.Question, tags ...string) Scenario {
	t.Helper()
	ctx := testutil.Context(t, 5*time.Second)
	sessionID, err := f.session.Upload(ctx, f.document)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return Scenario{Feature: "refunds.feature", Name: "refund policy", Tags: tags, SessionID: sessionID, Documents: []string{f.document}, Questions: questions}
}

// TestRunScenarioPersistsAndComputesTrend verifies the full lifecycle.
func TestRunScenarioPersistsAndComputesTrend(t *testing.T) {
	f := newFixture(t, nil, testutil.RAGServerConfig{Default: testutil.RAGAnswer{Answer: "30 days", RetrievalContext: []string{"Refunds within 30 days."}}})
	ctx := testutil.Context(t, 5*time.Second)
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.scorer.Always(metric.Faithfulness, 0.6)

	report, err := f.session.RunScenario(ctx, f.scenario(t, dataset(2), "@layer2"))
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	if f.session.State() != StateTrendComputed {
		t.Fatalf("state = %s", f.session.State())
	}
	run := report.Run
	if len(run.SelectedMetrics) != 3 || run.DatasetSize != 2 || len(run.PerQuestion) != 2 {
		t.Fatalf("unexpected run shape: %+v", run)
	}
	if run.PerMetricAggregate[metric.Faithfulness].PassCount != 0 {
		t.Fatalf("faithfulness should fail at 0.6 against 0.75")
	}
	if run.Status != results.StatusFail {
		t.Fatalf("run status = %s", run.Status)
	}
	if _, err := f.store.LoadRun(run.RunID); err != nil {
		t.Fatalf("load persisted run: %v", err)
	}
	if len(report.Trend.RunIDs) != 1 || report.Trend.RunIDs[0] != run.RunID {
		t.Fatalf("trend runs = %v", report.Trend.RunIDs)
	}
	if got := f.server.Uploads(); len(got) != 1 {
		t.Fatalf("uploads = %v", got)
	}
	if got := f.observer.eventsFor(0); len(got) != 4 || got[0] != QuestionQueued || got[3] != QuestionDone {
		t.Fatalf("question 0 events = %v", got)
	}
}

// TestRunScenarioPositionalMismatchMakesNoBackendCalls verifies the mapping check runs first.
func TestRunScenarioPositionalMismatchMakesNoBackendCalls(t *testing.T) {
	f := newFixture(t, func(cfg *spec.Config) {
		cfg.Evaluation.MetricQuestionMappingMode = spec.MappingPositional
	}, testutil.RAGServerConfig{})
	ctx := testutil.Context(t, 5*time.Second)
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	sc := f.scenario(t, dataset(3), "@layer2")
	sc.Metrics = "faithfulness, completeness"
	_, err := f.session.RunScenario(ctx, sc)
	if !errors.Is(err, metric.ErrMappingMismatch) {
		t.Fatalf("expected mapping mismatch, got %v", err)
	}
	if f.server.TotalAsks() != 0 {
		t.Fatalf("backend asked %d times", f.server.TotalAsks())
	}
	if f.session.State() != StateAborted {
		t.Fatalf("state = %s", f.session.State())
	}
	history, err := f.store.History()
	if err != nil || len(history) != 0 {
		t.Fatalf("history = %v, %v", history, err)
	}
}

// TestRunScenarioAskFailureFailsQuestionOnly verifies backend ask errors become outcomes.
func TestRunScenarioAskFailureFailsQuestionOnly(t *testing.T) {
	f := newFixture(t, func(cfg *spec.Config) {
		cfg.Backend.Retries = 0
		cfg.Evaluation.CacheAskResponses = false
	}, testutil.RAGServerConfig{FailAsks: 1, Default: testutil.RAGAnswer{Answer: "ok"}})
	ctx := testutil.Context(t, 5*time.Second)
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	sc := f.scenario(t, dataset(2))
	sc.Metrics = metric.AnswerRelevancy
	report, err := f.session.RunScenario(ctx, sc)
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	first := report.Run.PerQuestion[0]
	if first.Error == "" || first.Outcomes[0].Passed || first.Outcomes[0].Score != nil {
		t.Fatalf("first question should fail: %+v", first)
	}
	second := report.Run.PerQuestion[1]
	if second.Error != "" || !second.Outcomes[0].Passed {
		t.Fatalf("second question should pass: %+v", second)
	}
	agg := report.Run.PerMetricAggregate[metric.AnswerRelevancy]
	if agg.Count != 2 || agg.ScoredCount != 1 || agg.PassRate != 0.5 {
		t.Fatalf("aggregate = %+v", agg)
	}
}

// TestRunScenarioFreshSessionUploadsPerQuestion verifies parity-style fresh sessions.
func TestRunScenarioFreshSessionUploadsPerQuestion(t *testing.T) {
	f := newFixture(t, func(cfg *spec.Config) {
		cfg.Evaluation.NotebookParityMode = true
		config.ApplyNotebookParity(cfg)
	}, testutil.RAGServerConfig{Default: testutil.RAGAnswer{Answer: "ok"}})
	ctx := testutil.Context(t, 5*time.Second)
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	sc := f.scenario(t, dataset(2))
	if sc.SessionID != "" {
		t.Fatalf("fresh mode should defer uploads")
	}
	sc.Metrics = "faithfulness, answer_relevancy"
	report, err := f.session.RunScenario(ctx, sc)
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	if got := len(f.server.Uploads()); got != 2 {
		t.Fatalf("uploads = %d, want one per question", got)
	}
	if report.Run.Mode != spec.ModeNotebookParity {
		t.Fatalf("mode = %s", report.Run.Mode)
	}
	// explicit lists are evaluated in canonical order
	if report.Run.PerQuestion[0].Outcomes[0].Metric != metric.AnswerRelevancy ||
		report.Run.PerQuestion[1].Outcomes[0].Metric != metric.Faithfulness {
		t.Fatalf("positional mapping not applied")
	}
	if report.Run.PerQuestion[0].Outcomes[0].Threshold != config.ParityThreshold {
		t.Fatalf("threshold = %v", report.Run.PerQuestion[0].Outcomes[0].Threshold)
	}
}

// TestRunScenarioConcurrentWorkersKeepOrder verifies concurrent evaluation keeps dataset order.
func TestRunScenarioConcurrentWorkersKeepOrder(t *testing.T) {
	f := newFixture(t, func(cfg *spec.Config) {
		cfg.Evaluation.Concurrency = 4
	}, testutil.RAGServerConfig{Default: testutil.RAGAnswer{Answer: "ok"}})
	ctx := testutil.Context(t, 5*time.Second)
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	sc := f.scenario(t, dataset(8))
	sc.Metrics = metric.Completeness
	report, err := f.session.RunScenario(ctx, sc)
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	for i, q := range report.Run.PerQuestion {
		if q.Index != i || q.QuestionID != sc.Questions[i].ID {
			t.Fatalf("question %d out of order: %+v", i, q)
		}
	}
	if got := f.scorer.Calls(metric.Completeness); got != 8 {
		t.Fatalf("scorer calls = %d", got)
	}
}

// TestStartUnreachableAbortsSession verifies no scenario runs after a failed health check.
func TestStartUnreachableAbortsSession(t *testing.T) {
	f := newFixture(t, nil, testutil.RAGServerConfig{HealthStatus: 503})
	ctx := testutil.Context(t, 5*time.Second)
	err := f.session.Start(ctx)
	if !errors.Is(err, backend.ErrUnreachable) {
		t.Fatalf("expected unreachable, got %v", err)
	}
	_, err = f.session.RunScenario(ctx, Scenario{Questions: dataset(1), SessionID: "s"})
	if !errors.Is(err, backend.ErrUnreachable) {
		t.Fatalf("scenario after failed start: %v", err)
	}
}

// TestStartResetsIndexWhenUnreachable verifies a failed health check still clears
// the previous session's runs from the current-session index.
func TestStartResetsIndexWhenUnreachable(t *testing.T) {
	f := newFixture(t, nil, testutil.RAGServerConfig{Default: testutil.RAGAnswer{Answer: "ok"}})
	ctx := testutil.Context(t, 5*time.Second)
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.session.RunScenario(ctx, f.scenario(t, dataset(1), "@faithfulness")); err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	index, err := f.store.CurrentIndex()
	if err != nil || len(index.Runs) != 1 {
		t.Fatalf("first session index = %+v, %v", index, err)
	}

	down := testutil.StartRAGServer(t, testutil.RAGServerConfig{HealthStatus: 503})
	cfg := f.session.Config()
	cfg.Backend.BaseURL = down.URL
	next, err := store.Open(f.store.Dir(), "session-next", store.Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	session, err := NewSession(cfg, Options{
		Backend: backend.NewClient(cfg.Backend, backend.ClientOptions{}),
		Scorer:  f.scorer,
		Store:   next,
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := session.Start(ctx); !errors.Is(err, backend.ErrUnreachable) {
		t.Fatalf("expected unreachable, got %v", err)
	}
	index, err = next.CurrentIndex()
	if err != nil {
		t.Fatalf("current index: %v", err)
	}
	if index.SessionID != "session-next" || len(index.Runs) != 0 {
		t.Fatalf("index kept previous session: %+v", index)
	}
	history, err := next.History()
	if err != nil || len(history) != 1 {
		t.Fatalf("history = %v, %v", history, err)
	}
}

// TestRunScenarioRetriesExhaustedStillPersists verifies a scorer that keeps
// failing transiently yields a failed outcome and a persisted run.
func TestRunScenarioRetriesExhaustedStillPersists(t *testing.T) {
	f := newFixture(t, func(cfg *spec.Config) {
		cfg.Evaluation.RetryMaxAttempts = 2
	}, testutil.RAGServerConfig{Default: testutil.RAGAnswer{Answer: "30 days", RetrievalContext: []string{"Refunds within 30 days."}}})
	ctx := testutil.Context(t, 5*time.Second)
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	timeout := eval.Transient(errors.New("judge timeout"))
	f.scorer.Script(metric.Faithfulness, evaltest.Step{Err: timeout}, evaltest.Step{Err: timeout})
	sc := f.scenario(t, dataset(1))
	sc.Metrics = metric.Faithfulness

	report, err := f.session.RunScenario(ctx, sc)
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	if got := f.scorer.Calls(metric.Faithfulness); got != 2 {
		t.Fatalf("scorer calls = %d, want 2", got)
	}
	run, err := f.store.LoadRun(report.Run.RunID)
	if err != nil {
		t.Fatalf("load run: %v", err)
	}
	outcomes := run.Outcomes()
	if len(outcomes) != 1 {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	if outcomes[0].Passed || outcomes[0].Score != nil || outcomes[0].Reason != eval.ReasonRetriesExhausted {
		t.Fatalf("outcome = %+v", outcomes[0])
	}
	agg := run.PerMetricAggregate[metric.Faithfulness]
	if agg.Count != 1 || agg.PassRate != 0 || !agg.NoData || agg.AvgScore != nil {
		t.Fatalf("aggregate = %+v", agg)
	}
	history, err := f.store.History()
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].RunID != run.RunID {
		t.Fatalf("history = %+v", history)
	}
}

// TestRunScenarioSingleMetricAggregate verifies one passing contextual
// precision score against a configured threshold.
func TestRunScenarioSingleMetricAggregate(t *testing.T) {
	f := newFixture(t, func(cfg *spec.Config) {
		cfg.Evaluation.RetryMaxAttempts = 2
		cfg.Thresholds[metric.ContextualPrecision] = 0.7
	}, testutil.RAGServerConfig{Default: testutil.RAGAnswer{Answer: "30 days", RetrievalContext: []string{"Refunds within 30 days."}}})
	ctx := testutil.Context(t, 5*time.Second)
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.scorer.Script(metric.ContextualPrecision, evaltest.Step{Value: 0.82})
	sc := f.scenario(t, dataset(1))
	sc.Metrics = metric.ContextualPrecision

	report, err := f.session.RunScenario(ctx, sc)
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	run, err := f.store.LoadRun(report.Run.RunID)
	if err != nil {
		t.Fatalf("load run: %v", err)
	}
	agg := run.PerMetricAggregate[metric.ContextualPrecision]
	if agg.AvgScore == nil || *agg.AvgScore != 0.82 || agg.PassRate != 1.0 || agg.Count != 1 || agg.Threshold != 0.7 {
		t.Fatalf("aggregate = %+v", agg)
	}
	if run.Status != results.StatusPass {
		t.Fatalf("run status = %s", run.Status)
	}
	history, err := f.store.History()
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Metrics[metric.ContextualPrecision].PassRate != 1.0 {
		t.Fatalf("history = %+v", history)
	}
}

// TestPersistenceFailureAbortsSession verifies a failed artifact write ends the session.
func TestPersistenceFailureAbortsSession(t *testing.T) {
	f := newFixture(t, nil, testutil.RAGServerConfig{})
	f.session.runID = func(time.Time) string { return "20260501T120000Z-deadbeef" }
	ctx := testutil.Context(t, 5*time.Second)
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	sc := f.scenario(t, dataset(1), "@faithfulness")
	if _, err := f.session.RunScenario(ctx, sc); err != nil {
		t.Fatalf("first run: %v", err)
	}
	_, err := f.session.RunScenario(ctx, sc)
	if !errors.Is(err, store.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	asks := f.server.TotalAsks()
	if _, err := f.session.RunScenario(ctx, sc); !errors.Is(err, store.ErrPersistence) {
		t.Fatalf("expected session to stay aborted, got %v", err)
	}
	if f.server.TotalAsks() != asks {
		t.Fatalf("aborted session must not ask the backend")
	}
	history, err := f.store.History()
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(history))
	}
}

// TestRunScenarioPreconditions verifies dataset and session checks.
func TestRunScenarioPreconditions(t *testing.T) {
	f := newFixture(t, nil, testutil.RAGServerConfig{})
	ctx := testutil.Context(t, 5*time.Second)
	if _, err := f.session.RunScenario(ctx, Scenario{}); !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.session.RunScenario(ctx, Scenario{SessionID: "s"}); !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected empty dataset, got %v", err)
	}
	if _, err := f.session.RunScenario(ctx, Scenario{Questions: dataset(1)}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected no session, got %v", err)
	}
	if _, err := f.session.RunScenario(ctx, Scenario{Questions: dataset(1), SessionID: "s", Tags: []string{"@layer1", "@faithfulness"}}); !errors.Is(err, ErrNoMetrics) {
		t.Fatalf("expected no metrics, got %v", err)
	}
}

// TestRunQuestionJobsCancelled verifies cancellation stops the workers.
func TestRunQuestionJobsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assignments := []metric.Assignment{{Index: 0}, {Index: 1}}
	err := runQuestionJobs(ctx, assignments, 2, func(ctx context.Context, a metric.Assignment) results.QuestionResult {
		return results.QuestionResult{Index: a.Index}
	}, func(results.QuestionResult) {})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

// TestCanTransition verifies the lifecycle graph.
func TestCanTransition(t *testing.T) {
	if !CanTransition(StateTrendComputed, StateSelecting) || !CanTransition(StateAborted, StateSelecting) {
		t.Fatalf("scenarios should be able to follow each other")
	}
	if CanTransition(StateInit, StateEvaluating) || CanTransition(StateTrendComputed, StatePersisted) {
		t.Fatalf("illegal transition allowed")
	}
}

var _ eval.Scorer = (*evaltest.ScriptedScorer)(nil)
