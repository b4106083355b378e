package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"rageval/internal/backend"
	"rageval/internal/eval"
	"rageval/internal/metric"
	"rageval/internal/question"
	"rageval/internal/results"
	"rageval/internal/spec"
	"rageval/internal/store"
	"rageval/internal/telemetry"
	"rageval/internal/trend"
	"rageval/internal/warehouse"
)

// Scenario errors.
var (
	ErrNoMetrics       = errors.New("no metrics selected from tags or parameters")
	ErrEmptyDataset    = errors.New("dataset is empty; load a dataset before evaluation")
	ErrNoSession       = errors.New("no backend session; upload documents before evaluation")
	ErrNoDocuments     = errors.New("no uploaded document; upload documents before evaluation")
	ErrSessionNotReady = errors.New("session not started")
)

// HealthChecker verifies the backend answers before any scenario runs.
type HealthChecker interface {
	CheckReachable(ctx context.Context) error
}

// Options wires a Session.
type Options struct {
	Backend   backend.Backend
	Health    HealthChecker
	Scorer    eval.Scorer
	Store     *store.Store
	Warehouse *warehouse.Warehouse
	Observer  RunObserver
	Logger    *slog.Logger
	Metrics   *telemetry.Metrics
	Now       func() time.Time
	RunID     func(time.Time) string
}

// Scenario is one evaluation request, usually built by the BDD steps.
type Scenario struct {
	Feature string
	Name    string
	Tags    []string
	// Metrics is an explicit metric list or tag expression; it overrides Tags.
	Metrics string
	// SessionID is the backend session created by the upload step.
	SessionID string
	// Documents are the uploaded document paths, re-uploaded per question in
	// fresh-session mode.
	Documents []string
	Questions []question.Question
}

// Report is everything a finished scenario produced.
type Report struct {
	Run       results.RunResult
	Entry     results.IndexEntry
	Trend     trend.Summary
	TrendPath string
}

// Session evaluates scenarios against one backend with one resolved config. The
// backend health check and the current-session index reset happen once, in Start.
type Session struct {
	cfg       spec.Config
	registry  *metric.Registry
	cache     *backend.Cache
	health    HealthChecker
	evaluator *eval.Evaluator
	store     *store.Store
	warehouse *warehouse.Warehouse
	engine    *trend.Engine
	rule      trend.Rule
	observer  RunObserver
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	now       func() time.Time
	runID     func(time.Time) string

	mu       sync.Mutex
	state    State
	startErr error
}

// NewSession wires a session from a resolved config.
func NewSession(cfg spec.Config, opts Options) (*Session, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if opts.Scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("results store is required")
	}
	rule, err := trend.RuleFor(cfg)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	runID := opts.RunID
	if runID == nil {
		runID = results.NewRunID
	}
	health := opts.Health
	if health == nil {
		if checker, ok := opts.Backend.(HealthChecker); ok {
			health = checker
		}
	}
	return &Session{
		cfg:      cfg,
		registry: metric.NewRegistry(cfg),
		cache: backend.NewCache(opts.Backend, backend.CacheOptions{
			CacheUploads: cfg.Evaluation.CacheUploadedDocuments,
			CacheAsks:    cfg.Evaluation.CacheAskResponses,
			FreshSession: cfg.Evaluation.FreshSessionPerQuestion,
			Metrics:      opts.Metrics,
			Logger:       logger,
		}),
		health: health,
		evaluator: eval.New(opts.Scorer, eval.Options{
			MaxAttempts: cfg.Evaluation.RetryMaxAttempts,
			Backoff:     time.Duration(cfg.Backend.BackoffSeconds * float64(time.Second)),
			Metrics:     opts.Metrics,
			Logger:      logger,
		}),
		store:     opts.Store,
		warehouse: opts.Warehouse,
		engine:    trend.NewEngine(rule, cfg.Reporting.KeepLastNRuns),
		rule:      rule,
		observer:  opts.Observer,
		logger:    logger,
		metrics:   opts.Metrics,
		now:       now,
		runID:     runID,
		state:     StateInit,
	}, nil
}

// Config returns the resolved configuration.
func (s *Session) Config() spec.Config { return s.cfg }

// Registry returns the metric registry bound to the configuration.
func (s *Session) Registry() *metric.Registry { return s.registry }

// Store returns the results store.
func (s *Session) Store() *store.Store { return s.store }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !CanTransition(s.state, to) {
		return &InvalidTransitionError{From: s.state, To: to}
	}
	s.state = to
	return nil
}

func (s *Session) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAborted
}

// fail aborts the whole session; later scenarios return err.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAborted
	s.startErr = err
	return err
}

// Start resets the current-session index and then checks the backend, once. The
// reset happens even when the backend is unreachable, which aborts the session.
func (s *Session) Start(ctx context.Context) error {
	if s.State() != StateInit {
		return &InvalidTransitionError{From: s.State(), To: StateConfigResolved}
	}
	if err := s.store.Reset(); err != nil {
		return s.fail(err)
	}
	if s.health != nil {
		if err := s.health.CheckReachable(ctx); err != nil {
			return s.fail(err)
		}
	}
	return s.transition(StateConfigResolved)
}

// Upload uploads a document for a scenario and returns its backend session id.
// Fresh-session mode defers uploads to evaluation time and returns "".
func (s *Session) Upload(ctx context.Context, path string) (string, error) {
	if s.cfg.Evaluation.FreshSessionPerQuestion {
		if _, err := backend.DocumentKey(path); err != nil {
			return "", err
		}
		return "", nil
	}
	return s.cache.EnsureUploaded(ctx, path)
}

// Select resolves a scenario's metric selection.
func (s *Session) Select(sc Scenario) ([]metric.Spec, error) {
	selected, err := s.registry.SelectForScenario(sc.Tags, sc.Metrics)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, ErrNoMetrics
	}
	return selected, nil
}

// RunScenario selects metrics, evaluates every question, persists the run and
// recomputes the trend. Mapping and precondition errors abort before any
// backend call.
func (s *Session) RunScenario(ctx context.Context, sc Scenario) (Report, error) {
	report, err := s.runScenario(ctx, sc)
	if err != nil {
		s.abort()
		if s.observer != nil {
			s.observer.OnScenarioAbort(sc.Name, err)
		}
		return Report{}, err
	}
	return report, nil
}

func (s *Session) runScenario(ctx context.Context, sc Scenario) (Report, error) {
	s.mu.Lock()
	state, startErr := s.state, s.startErr
	s.mu.Unlock()
	if startErr != nil {
		return Report{}, startErr
	}
	if state == StateInit {
		return Report{}, ErrSessionNotReady
	}
	if err := s.transition(StateSelecting); err != nil {
		return Report{}, err
	}
	if len(sc.Questions) == 0 {
		return Report{}, ErrEmptyDataset
	}
	fresh := s.cfg.Evaluation.FreshSessionPerQuestion
	if !fresh && sc.SessionID == "" {
		return Report{}, ErrNoSession
	}
	if fresh && len(sc.Documents) == 0 {
		return Report{}, ErrNoDocuments
	}
	selected, err := s.Select(sc)
	if err != nil {
		return Report{}, err
	}
	assignments, err := s.registry.Plan(sc.Questions, selected, s.cfg.Evaluation.MetricQuestionMappingMode)
	if err != nil {
		return Report{}, err
	}

	if err := s.transition(StateEvaluating); err != nil {
		return Report{}, err
	}
	started := s.now()
	runID := s.runID(started)
	builder := results.NewBuilder(results.Meta{
		RunID:        runID,
		StartedAt:    started,
		Mode:         s.cfg.Mode(),
		Model:        s.cfg.Model,
		Feature:      sc.Feature,
		Scenario:     sc.Name,
		ScenarioTags: sc.Tags,
		MappingMode:  s.cfg.Evaluation.MetricQuestionMappingMode,
	}, selected, len(sc.Questions))

	names := make([]string, 0, len(selected))
	for _, m := range selected {
		names = append(names, m.Name)
	}
	if s.observer != nil {
		s.observer.OnScenarioStart(ScenarioInfo{RunID: runID, Feature: sc.Feature, Scenario: sc.Name, Metrics: names, Questions: sc.Questions})
	}
	emitter := newQuestionEmitter(s.observer, runID, sc.Name, sc.Questions, s.now)
	emitter.EmitQueuedAll()

	err = runQuestionJobs(ctx, assignments, s.cfg.Evaluation.Concurrency, func(ctx context.Context, a metric.Assignment) results.QuestionResult {
		return s.evaluateQuestion(ctx, sc, a, emitter)
	}, builder.Add)
	if err != nil {
		return Report{}, err
	}

	if err := s.transition(StateAggregating); err != nil {
		return Report{}, err
	}
	run := builder.Build(s.now())
	snapshots := results.NewIndexEntry(run, "").Metrics
	run.Status = trend.RunStatus(s.rule, snapshots)

	entry, err := s.store.Persist(run)
	if err != nil {
		return Report{}, s.fail(err)
	}
	if err := s.transition(StatePersisted); err != nil {
		return Report{}, err
	}
	if s.warehouse != nil {
		if err := s.warehouse.Ingest(ctx, run); err != nil {
			s.logger.Warn("warehouse ingest failed", "run_id", run.RunID, "error", err)
		}
	}

	history, err := s.store.History()
	if err != nil {
		return Report{}, fmt.Errorf("read history: %w", err)
	}
	summary := s.engine.Compute(history)
	trendPath, err := s.store.WriteTrend(summary)
	if err != nil {
		return Report{}, err
	}
	if err := s.transition(StateTrendComputed); err != nil {
		return Report{}, err
	}
	if s.observer != nil {
		s.observer.OnScenarioEnd(run, summary)
	}
	return Report{Run: run, Entry: entry, Trend: summary, TrendPath: trendPath}, nil
}

// evaluateQuestion asks the backend once and scores every assigned metric. Ask
// failures fail every metric of the question; the run continues.
func (s *Session) evaluateQuestion(ctx context.Context, sc Scenario, a metric.Assignment, emitter *questionEmitter) results.QuestionResult {
	start := s.now()
	q := a.Question
	result := results.QuestionResult{
		Index:            a.Index,
		QuestionID:       q.ID,
		Question:         q.Text,
		ExpectedAnswer:   q.ExpectedAnswer,
		Category:         q.Category,
		RetrievalContext: []string{},
		Outcomes:         make([]results.MetricOutcome, 0, len(a.Metrics)),
	}
	emitter.Emit(QuestionEvent{QuestionIndex: a.Index, Type: QuestionAsking, Metrics: len(a.Metrics)})

	answer, sessionID, err := s.ask(ctx, sc, q.Text)
	result.SessionID = sessionID
	if err != nil {
		result.Error = err.Error()
		for _, m := range a.Metrics {
			result.Outcomes = append(result.Outcomes, results.MetricOutcome{Outcome: eval.Failed(m, err)})
			s.metrics.MetricOutcome(m.Name, "error")
		}
		emitter.Emit(QuestionEvent{QuestionIndex: a.Index, Type: QuestionFailed, Metrics: len(a.Metrics), Error: err.Error(), WallTime: s.now().Sub(start)})
		return result
	}

	flags := s.cfg.Evaluation
	result.Answer = answer.Answer
	result.RetrievalContext = eval.Trim(answer.RetrievalContext, flags.MaxContextChunks, flags.MaxContextCharsPerChunk, flags.DisableContextTrimming)

	emitter.Emit(QuestionEvent{QuestionIndex: a.Index, Type: QuestionScoring, Metrics: len(a.Metrics)})
	passed := 0
	for _, m := range a.Metrics {
		outcome := s.evaluator.Evaluate(ctx, eval.Request{
			Capability:       m.Capability,
			Question:         q.Text,
			Answer:           answer.Answer,
			ExpectedAnswer:   q.ExpectedAnswer,
			RetrievalContext: result.RetrievalContext,
			IncludeReason:    m.RequiresReason,
			Threshold:        m.Threshold,
			TruthsLimit:      flags.FaithfulnessTruthsLimit,
		})
		if outcome.Passed {
			passed++
		}
		result.Outcomes = append(result.Outcomes, results.MetricOutcome{Outcome: outcome})
	}
	emitter.Emit(QuestionEvent{QuestionIndex: a.Index, Type: QuestionDone, Metrics: len(a.Metrics), Passed: passed, WallTime: s.now().Sub(start)})
	return result
}

func (s *Session) ask(ctx context.Context, sc Scenario, text string) (backend.Answer, string, error) {
	sessionID := sc.SessionID
	if s.cache.FreshSession() {
		id, err := s.cache.EnsureUploaded(ctx, sc.Documents[0])
		if err != nil {
			return backend.Answer{}, "", fmt.Errorf("upload %s: %w", sc.Documents[0], err)
		}
		sessionID = id
	}
	answer, err := s.cache.Ask(ctx, sessionID, text)
	return answer, sessionID, err
}
