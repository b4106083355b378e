package bdd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"

	"rageval/internal/metric"
	"rageval/internal/question"
	"rageval/internal/runner"
)

// scenarioState holds one scenario's progress through the steps.
type scenarioState struct {
	suite *Suite

	feature   string
	name      string
	tags      []string
	sessionID string
	documents []string
	questions []question.Question
	report    *runner.Report
	saved     bool
}

// reset clears state before each scenario.
func (s *scenarioState) reset(sc *godog.Scenario) {
	s.feature = sc.Uri
	s.name = sc.Name
	s.tags = s.tags[:0]
	for _, tag := range sc.Tags {
		s.tags = append(s.tags, tag.Name)
	}
	s.sessionID = ""
	s.documents = nil
	s.questions = nil
	s.report = nil
	s.saved = false
}

func (s *scenarioState) backendIsReachable(ctx context.Context) error {
	return s.suite.Start(ctx)
}

func (s *scenarioState) documentsAreUploaded(ctx context.Context, path string) error {
	if err := s.suite.Start(ctx); err != nil {
		return err
	}
	resolved, err := s.resolveDocument(path)
	if err != nil {
		return err
	}
	sessionID, err := s.suite.session.Upload(ctx, resolved)
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	s.sessionID = sessionID
	s.documents = append(s.documents, resolved)
	return nil
}

func (s *scenarioState) resolveDocument(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	var candidates []string
	for _, dir := range []string{s.suite.paths.Root, s.suite.paths.Documents} {
		if dir != "" {
			candidates = append(candidates, filepath.Join(dir, path))
		}
	}
	candidates = append(candidates, path)
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return filepath.Abs(candidate)
		}
	}
	return "", fmt.Errorf("document not found: %s", path)
}

func (s *scenarioState) searchDirs() []string {
	var dirs []string
	for _, dir := range []string{s.suite.paths.Datasets, s.suite.paths.Root} {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func (s *scenarioState) loadDataset(ref string) error {
	questions, err := question.Load(ref, s.searchDirs()...)
	if err != nil {
		return err
	}
	s.questions = questions
	return nil
}

func (s *scenarioState) useInlineDataset(doc *godog.DocString) error {
	questions, err := question.ParseInlineTable(doc.Content)
	if err != nil {
		return err
	}
	return s.setInline(questions)
}

func (s *scenarioState) useInlineRows(table *godog.Table) error {
	if len(table.Rows) == 0 {
		return errors.New("inline dataset table is empty")
	}
	values := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cells = append(cells, cell.Value)
		}
		values = append(values, cells)
	}
	questions, err := question.FromTable(values[0], values[1:])
	if err != nil {
		return err
	}
	return s.setInline(questions)
}

func (s *scenarioState) setInline(questions []question.Question) error {
	expanded, err := question.ExpandReferences(questions, s.searchDirs()...)
	if err != nil {
		return err
	}
	s.questions = expanded
	return nil
}

func (s *scenarioState) evaluateAll(ctx context.Context) error {
	return s.evaluate(ctx, "")
}

func (s *scenarioState) evaluateWithMetrics(ctx context.Context, metrics string) error {
	return s.evaluate(ctx, metrics)
}

func (s *scenarioState) evaluate(ctx context.Context, metrics string) error {
	if err := s.suite.Start(ctx); err != nil {
		return err
	}
	report, err := s.suite.session.RunScenario(ctx, runner.Scenario{
		Feature:   s.feature,
		Name:      s.name,
		Tags:      append([]string(nil), s.tags...),
		Metrics:   metrics,
		SessionID: s.sessionID,
		Documents: s.documents,
		Questions: s.questions,
	})
	if err != nil {
		return err
	}
	s.report = &report
	return nil
}

func (s *scenarioState) metricMeetsThreshold(name string) error {
	if s.report == nil {
		return errors.New("no run result found; execute evaluation first")
	}
	canonical := metric.Normalize(name)
	agg, ok := s.report.Run.PerMetricAggregate[canonical]
	if !ok {
		return fmt.Errorf("metric %q not found in run aggregates", canonical)
	}
	threshold := s.suite.session.Registry().Spec(canonical).Threshold
	if agg.AvgScore == nil {
		return fmt.Errorf("metric %q has no average score; errors may have occurred", canonical)
	}
	if *agg.AvgScore < threshold {
		return fmt.Errorf("metric %s average %.4f < threshold %.4f (pass_rate=%.2f)", canonical, *agg.AvgScore, threshold, agg.PassRate)
	}
	return nil
}

func (s *scenarioState) saveResults() error {
	if s.report == nil {
		return errors.New("no run result to save")
	}
	return s.saveIfPending()
}

// saveIfPending records the scenario's run once, whether or not the feature
// has an explicit save step.
func (s *scenarioState) saveIfPending() error {
	if s.report == nil || s.saved {
		return nil
	}
	s.saved = true
	s.suite.save(*s.report)
	s.suite.logger.Info("results saved", "run_id", s.report.Run.RunID, "trend", s.report.TrendPath)
	return nil
}
