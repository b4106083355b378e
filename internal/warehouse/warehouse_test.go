package warehouse

import (
	"testing"
	"time"

	"rageval/internal/eval"
	"rageval/internal/metric"
	"rageval/internal/results"
	"rageval/internal/testutil"
)

const testTimeout = 5 * time.Second

func openTestWarehouse(t *testing.T) *Warehouse {
	t.Helper()
	w, err := Open(testutil.Context(t, testTimeout), ":memory:")
	if err != nil {
		t.Fatalf("open warehouse: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func buildRun(second int, scores ...float64) results.RunResult {
	started := time.Date(2026, 3, 1, 0, 0, second, 0, time.UTC)
	selected := []metric.Spec{{Name: metric.Faithfulness, Threshold: 0.7}}
	b := results.NewBuilder(results.Meta{
		RunID:     results.FormatRunID(started, "0000000"+string(rune('0'+second))),
		StartedAt: started,
		Mode:      "custom",
		Scenario:  "refunds",
	}, selected, len(scores))
	for i, s := range scores {
		value := s
		b.Add(results.QuestionResult{
			Index:      i,
			QuestionID: "Q" + string(rune('1'+i)),
			Question:   "question " + string(rune('a'+i)),
			Outcomes: []results.MetricOutcome{{Outcome: eval.Outcome{
				Metric: metric.Faithfulness, Score: &value, Passed: value >= 0.7, Threshold: 0.7, Attempts: 1,
			}}},
		})
	}
	run := b.Build(started.Add(time.Second))
	run.Status = results.StatusPass
	return run
}

// TestIngestIsIdempotent verifies re-ingesting a run adds no rows.
func TestIngestIsIdempotent(t *testing.T) {
	w := openTestWarehouse(t)
	ctx := testutil.Context(t, testTimeout)
	run := buildRun(1, 0.9, 0.5)
	for i := 0; i < 2; i++ {
		if err := w.Ingest(ctx, run); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}
	var outcomes, runs int
	if err := w.DB().QueryRowContext(ctx, "SELECT count(*) FROM outcomes").Scan(&outcomes); err != nil {
		t.Fatalf("count outcomes: %v", err)
	}
	if err := w.DB().QueryRowContext(ctx, "SELECT count(*) FROM runs").Scan(&runs); err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if outcomes != 2 || runs != 1 {
		t.Fatalf("outcomes=%d runs=%d", outcomes, runs)
	}
}

// TestMetricHistoryOrder verifies the newest runs come back oldest first.
func TestMetricHistoryOrder(t *testing.T) {
	w := openTestWarehouse(t)
	ctx := testutil.Context(t, testTimeout)
	for i := 1; i <= 4; i++ {
		if err := w.Ingest(ctx, buildRun(i, 0.5+float64(i)/10)); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}
	history, err := w.MetricHistory(ctx, metric.Faithfulness, 3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history rows = %d", len(history))
	}
	if history[0].RunID != buildRun(2, 0).RunID || history[2].RunID != buildRun(4, 0).RunID {
		t.Fatalf("unexpected order: %s .. %s", history[0].RunID, history[2].RunID)
	}
	if history[2].AvgScore == nil || *history[2].AvgScore < 0.89 {
		t.Fatalf("latest avg = %v", history[2].AvgScore)
	}
}

// TestQuestionPassRate verifies per-question rates across runs.
func TestQuestionPassRate(t *testing.T) {
	w := openTestWarehouse(t)
	ctx := testutil.Context(t, testTimeout)
	if err := w.Ingest(ctx, buildRun(1, 0.9)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := w.Ingest(ctx, buildRun(2, 0.1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	rates, err := w.QuestionPassRate(ctx, "question  a", "")
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if rates[metric.Faithfulness] != 0.5 {
		t.Fatalf("rate = %v", rates[metric.Faithfulness])
	}
}
