package bdd

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rageval/internal/backend"
	"rageval/internal/config"
	"rageval/internal/eval/evaltest"
	"rageval/internal/metric"
	"rageval/internal/runner"
	"rageval/internal/store"
	"rageval/internal/testutil"
)

type harness struct {
	server *testutil.RAGServer
	scorer *evaltest.ScriptedScorer
	store  *store.Store
	suite  *Suite
}

func newHarness(t *testing.T, defaultScore float64) *harness {
	t.Helper()
	server := testutil.StartRAGServer(t, testutil.RAGServerConfig{
		Default: testutil.RAGAnswer{
			Answer:           "Refunds are accepted within 30 days with a receipt.",
			RetrievalContext: []string{"Refunds are accepted within 30 days of purchase with a receipt."},
		},
	})
	cfg := config.Defaults()
	cfg.Backend.BaseURL = server.URL
	cfg.Backend.BackoffSeconds = 0
	cfg.Reporting.ResultsDir = t.TempDir()
	st, err := store.Open(cfg.Reporting.ResultsDir, "bdd-test", store.Options{})
	require.NoError(t, err)
	scorer := evaltest.NewScriptedScorer(defaultScore)
	session, err := runner.NewSession(cfg, runner.Options{
		Backend: backend.NewClient(cfg.Backend, backend.ClientOptions{}),
		Scorer:  scorer,
		Store:   st,
	})
	require.NoError(t, err)
	root, err := filepath.Abs("testdata")
	require.NoError(t, err)
	suite := NewSuite(session, Paths{
		Root:      root,
		Datasets:  filepath.Join(root, "datasets"),
		Documents: filepath.Join(root, "documents"),
	}, nil)
	return &harness{server: server, scorer: scorer, store: st, suite: suite}
}

// TestFeaturesPass verifies passing scenarios persist one run each.
func TestFeaturesPass(t *testing.T) {
	h := newHarness(t, 0.9)
	ctx := testutil.Context(t, 10*time.Second)

	status := h.suite.Run(ctx, RunOptions{
		Name:     "refunds",
		Paths:    []string{filepath.Join("testdata", "features", "refunds.feature")},
		Format:   "progress",
		Strict:   true,
		TestingT: t,
	})
	require.Equal(t, 0, status)

	reports := h.suite.Reports()
	require.Len(t, reports, 3)
	require.Equal(t, []string{metric.AnswerRelevancy, metric.Faithfulness, metric.Completeness}, reports[0].Run.SelectedMetrics)
	require.Equal(t, []string{metric.ContextualPrecision, metric.Faithfulness}, reports[1].Run.SelectedMetrics)
	require.Equal(t, "I1", reports[1].Run.PerQuestion[0].QuestionID)
	require.Equal(t, "T1", reports[2].Run.PerQuestion[0].QuestionID)

	index, err := h.store.CurrentIndex()
	require.NoError(t, err)
	require.Len(t, index.Runs, 3)
	require.NotEmpty(t, h.server.Uploads())
}

// TestFeatureThresholdFailure verifies a low average fails the run and is still saved.
func TestFeatureThresholdFailure(t *testing.T) {
	h := newHarness(t, 0.9)
	h.scorer.Always(metric.Faithfulness, 0.4)
	ctx := testutil.Context(t, 10*time.Second)

	var out bytes.Buffer
	status := h.suite.Run(ctx, RunOptions{
		Paths:  []string{filepath.Join("testdata", "features", "threshold.feature")},
		Format: "progress",
		Output: &out,
	})
	require.NotEqual(t, 0, status)
	require.Contains(t, out.String(), "faithfulness average 0.4000 < threshold 0.7500")

	reports := h.suite.Reports()
	require.Len(t, reports, 1)
	require.Equal(t, []string{metric.Faithfulness}, reports[0].Run.SelectedMetrics)
	require.Equal(t, "FAIL", reports[0].Run.Status)
}

// TestFeatureTagFilter verifies godog tag filters limit the scenarios run.
func TestFeatureTagFilter(t *testing.T) {
	h := newHarness(t, 0.9)
	ctx := testutil.Context(t, 10*time.Second)

	status := h.suite.Run(ctx, RunOptions{
		Paths:  []string{filepath.Join("testdata", "features")},
		Tags:   "@smoke",
		Format: "progress",
	})
	require.Equal(t, 0, status)
	require.Len(t, h.suite.Reports(), 2)
}
