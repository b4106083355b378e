package results

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"rageval/internal/eval"
	"rageval/internal/metric"
)

func score(v float64) *float64 { return &v }

func outcome(name string, value *float64, threshold float64) MetricOutcome {
	o := eval.Outcome{Metric: name, Score: value, Threshold: threshold}
	if value != nil {
		o.Passed = *value >= threshold
	} else {
		o.Reason = eval.ReasonRetriesExhausted
		o.Error = "timeout"
	}
	return MetricOutcome{Outcome: o}
}

// TestAggregateStatistics verifies counts, rates and score statistics.
func TestAggregateStatistics(t *testing.T) {
	selected := []metric.Spec{{Name: metric.Faithfulness, Threshold: 0.7}}
	questions := []QuestionResult{
		{QuestionID: "Q1", Outcomes: []MetricOutcome{outcome(metric.Faithfulness, score(0.9), 0.7)}},
		{QuestionID: "Q2", Outcomes: []MetricOutcome{outcome(metric.Faithfulness, score(0.5), 0.7)}},
		{QuestionID: "Q3", Outcomes: []MetricOutcome{outcome(metric.Faithfulness, score(0.7), 0.7)}},
		{QuestionID: "Q4", Outcomes: []MetricOutcome{outcome(metric.Faithfulness, nil, 0.7)}},
	}
	agg := Aggregate(selected, questions)[metric.Faithfulness]

	require.Equal(t, 4, agg.Count)
	require.Equal(t, 3, agg.ScoredCount)
	require.Equal(t, 2, agg.PassCount)
	require.Equal(t, 2, agg.FailCount)
	require.Equal(t, 1, agg.ErrorCount)
	require.InDelta(t, 0.5, agg.PassRate, 1e-9)
	require.NotNil(t, agg.AvgScore)
	require.InDelta(t, 0.7, *agg.AvgScore, 1e-9)
	require.InDelta(t, 0.5, *agg.Min, 1e-9)
	require.InDelta(t, 0.9, *agg.Max, 1e-9)
	require.InDelta(t, math.Sqrt(0.08/3), *agg.StdDev, 1e-9)
	require.InDelta(t, 0.7, *agg.P50, 1e-9)
	require.InDelta(t, 0.9, *agg.P90, 1e-9)
	require.Equal(t, []float64{0.9, 0.5, 0.7}, agg.ScoreDistribution)
	require.False(t, agg.NoData)
}

// TestAggregateNoData verifies selected metrics without scores are flagged.
func TestAggregateNoData(t *testing.T) {
	selected := []metric.Spec{{Name: metric.Faithfulness, Threshold: 0.7}, {Name: metric.Completeness, Threshold: 0.6}}
	questions := []QuestionResult{
		{Outcomes: []MetricOutcome{outcome(metric.Faithfulness, nil, 0.7)}},
	}
	aggs := Aggregate(selected, questions)

	require.True(t, aggs[metric.Faithfulness].NoData)
	require.Nil(t, aggs[metric.Faithfulness].AvgScore)
	require.Equal(t, 1, aggs[metric.Faithfulness].Count)

	empty := aggs[metric.Completeness]
	require.True(t, empty.NoData)
	require.Equal(t, 0, empty.Count)
	require.Zero(t, empty.PassRate)
	require.Equal(t, 0.6, empty.Threshold)
}

// TestAggregateIncludesObservedMetrics verifies row-mapped metrics outside the selection appear.
func TestAggregateIncludesObservedMetrics(t *testing.T) {
	questions := []QuestionResult{
		{Outcomes: []MetricOutcome{outcome("tone", score(0.8), 0.6)}},
	}
	aggs := Aggregate(nil, questions)
	require.Contains(t, aggs, "tone")
	require.Equal(t, 1, aggs["tone"].PassCount)
}

// TestPercentileNearestRank verifies the ceil-based rank.
func TestPercentileNearestRank(t *testing.T) {
	values := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	if got := Percentile(values, 50); got != 0.5 {
		t.Fatalf("p50 = %v", got)
	}
	if got := Percentile(values, 90); got != 0.9 {
		t.Fatalf("p90 = %v", got)
	}
	if got := Percentile([]float64{0.4}, 90); got != 0.4 {
		t.Fatalf("single p90 = %v", got)
	}
}

// TestRunIDFormat verifies the UTC prefix and 8 hex suffix.
func TestRunIDFormat(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("X", 3600))
	id := NewRunIDWithUUID(now, uuid.MustParse("deadbeef-0000-4000-8000-000000000000"))
	if id != "20260304T040607Z-deadbeef" {
		t.Fatalf("run id = %q", id)
	}
	if !ValidRunID(id) || !ValidRunID(NewRunID(now)) {
		t.Fatalf("generated run id rejected")
	}
	for _, bad := range []string{"", "../etc", "20260304T040607Z-DEADBEEF", "20260304T040607Z-deadbeef/x"} {
		if ValidRunID(bad) {
			t.Fatalf("accepted %q", bad)
		}
	}
}

// TestBuilderKeepsDatasetOrder verifies out-of-order adds land at their index.
func TestBuilderKeepsDatasetOrder(t *testing.T) {
	selected := []metric.Spec{{Name: metric.Faithfulness, Threshold: 0.7}}
	meta := Meta{RunID: "20260101T000000Z-00000000", StartedAt: time.Unix(0, 0), Mode: "custom", ScenarioTags: []string{"@layer2"}}
	b := NewBuilder(meta, selected, 3)
	b.Add(QuestionResult{Index: 2, QuestionID: "Q3", Outcomes: []MetricOutcome{outcome(metric.Faithfulness, score(1), 0.7)}})
	b.Add(QuestionResult{Index: 0, QuestionID: "Q1", Outcomes: []MetricOutcome{outcome(metric.Faithfulness, score(0), 0.7)}})

	run := b.Build(time.Unix(10, 0))
	require.Len(t, run.PerQuestion, 2)
	require.Equal(t, "Q1", run.PerQuestion[0].QuestionID)
	require.Equal(t, "Q3", run.PerQuestion[1].QuestionID)
	require.Equal(t, meta.RunID, run.PerQuestion[1].Outcomes[0].RunID)
	require.Equal(t, "Q3", run.PerQuestion[1].Outcomes[0].QuestionID)
	require.Equal(t, 3, run.DatasetSize)
	require.Equal(t, []string{metric.Faithfulness}, run.SelectedMetrics)
	require.Equal(t, 2, run.PerMetricAggregate[metric.Faithfulness].Count)

	entry := NewIndexEntry(run, "runs/"+run.RunID+"/results.json")
	require.True(t, strings.HasSuffix(entry.ArtifactPath, "results.json"))
	require.InDelta(t, 0.5, entry.Metrics[metric.Faithfulness].PassRate, 1e-9)
}
