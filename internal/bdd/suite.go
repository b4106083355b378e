// Package bdd binds the evaluation harness to Gherkin feature files with godog.
package bdd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/cucumber/godog"

	"rageval/internal/runner"
)

// Paths locate the files feature steps refer to.
type Paths struct {
	// Root resolves relative document and dataset paths.
	Root string
	// Datasets is searched for bare dataset names.
	Datasets string
	// Documents is searched for relative document paths.
	Documents string
}

// Suite shares one evaluation session across every scenario of a godog run.
type Suite struct {
	session *runner.Session
	paths   Paths
	logger  *slog.Logger

	startOnce sync.Once
	startErr  error

	mu      sync.Mutex
	reports []runner.Report
}

// NewSuite binds a session to feature steps.
func NewSuite(session *runner.Session, paths Paths, logger *slog.Logger) *Suite {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Suite{session: session, paths: paths, logger: logger}
}

// Start resets the current-session index and health-checks the backend, once.
func (s *Suite) Start(ctx context.Context) error {
	s.startOnce.Do(func() {
		s.startErr = s.session.Start(ctx)
	})
	return s.startErr
}

// Reports returns every run saved so far, in completion order.
func (s *Suite) Reports() []runner.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]runner.Report(nil), s.reports...)
}

func (s *Suite) save(report runner.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
}

// RunOptions configures a godog run.
type RunOptions struct {
	Name     string
	Paths    []string
	Tags     string
	Format   string
	Output   io.Writer
	Strict   bool
	TestingT *testing.T
}

// Run executes the feature files and returns godog's exit status.
func (s *Suite) Run(ctx context.Context, opts RunOptions) int {
	format := opts.Format
	if format == "" {
		format = "pretty"
	}
	output := opts.Output
	if output == nil {
		output = io.Discard
	}
	name := opts.Name
	if name == "" {
		name = "rageval"
	}
	suite := godog.TestSuite{
		Name:                name,
		ScenarioInitializer: s.InitializeScenario,
		Options: &godog.Options{
			Format:         format,
			Paths:          opts.Paths,
			Tags:           opts.Tags,
			Output:         output,
			Strict:         opts.Strict,
			TestingT:       opts.TestingT,
			Randomize:      0,
			DefaultContext: ctx,
		},
	}
	status := suite.Run()
	s.logger.Debug("feature run finished", "status", status, "runs", len(s.Reports()))
	return status
}

// InitializeScenario wires the steps to a fresh scenario state.
func (s *Suite) InitializeScenario(ctx *godog.ScenarioContext) {
	state := &scenarioState{suite: s}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		state.reset(sc)
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if saveErr := state.saveIfPending(); saveErr != nil {
			return ctx, fmt.Errorf("save results for %q: %w", sc.Name, saveErr)
		}
		return ctx, nil
	})

	ctx.Step(`^(?:the RAG )?backend is reachable$`, state.backendIsReachable)
	ctx.Step(`^documents are uploaded from "([^"]+)"$`, state.documentsAreUploaded)
	ctx.Step(`^I load dataset "([^"]+)"$`, state.loadDataset)
	ctx.Step(`^I use inline dataset:$`, state.useInlineDataset)
	ctx.Step(`^I use inline dataset rows:$`, state.useInlineRows)
	ctx.Step(`^I evaluate all questions$`, state.evaluateAll)
	ctx.Step(`^I evaluate all questions with metrics "([^"]+)"$`, state.evaluateWithMetrics)
	ctx.Step(`^metric "([^"]+)" should be >= configured threshold$`, state.metricMeetsThreshold)
	ctx.Step(`^save results for reporting$`, state.saveResults)
}
