package results

import (
	"math"
	"sort"

	"rageval/internal/metric"
)

// MetricAggregate summarizes one metric across a run. It is derived from outcomes only.
type MetricAggregate struct {
	Metric            string      `json:"metric_name"`
	Kind              metric.Kind `json:"kind"`
	Threshold         float64     `json:"threshold"`
	Count             int         `json:"count"`
	ScoredCount       int         `json:"scored_count"`
	PassCount         int         `json:"pass_count"`
	FailCount         int         `json:"fail_count"`
	ErrorCount        int         `json:"error_count"`
	PassRate          float64     `json:"pass_rate"`
	AvgScore          *float64    `json:"avg_score"`
	Min               *float64    `json:"min_score"`
	Max               *float64    `json:"max_score"`
	StdDev            *float64    `json:"std_dev"`
	P50               *float64    `json:"p50"`
	P90               *float64    `json:"p90"`
	ScoreDistribution []float64   `json:"score_distribution"`
	NoData            bool        `json:"no_data"`
}

// Aggregate computes per-metric statistics over the union of the selected metrics
// and every metric observed in outcomes. Selected metrics without outcomes are
// reported with count 0 and no_data.
func Aggregate(selected []metric.Spec, questions []QuestionResult) map[string]MetricAggregate {
	aggregates := map[string]MetricAggregate{}
	for _, spec := range selected {
		aggregates[spec.Name] = MetricAggregate{
			Metric:            spec.Name,
			Kind:              spec.Capability.Kind,
			Threshold:         spec.Threshold,
			ScoreDistribution: []float64{},
		}
	}
	scores := map[string][]float64{}
	for _, q := range questions {
		for _, outcome := range q.Outcomes {
			agg, ok := aggregates[outcome.Metric]
			if !ok {
				agg = MetricAggregate{
					Metric:            outcome.Metric,
					Kind:              outcome.Kind,
					Threshold:         outcome.Threshold,
					ScoreDistribution: []float64{},
				}
			}
			agg.Count++
			if outcome.Passed {
				agg.PassCount++
			} else {
				agg.FailCount++
			}
			if outcome.Score != nil {
				agg.ScoredCount++
				agg.ScoreDistribution = append(agg.ScoreDistribution, *outcome.Score)
				scores[outcome.Metric] = append(scores[outcome.Metric], *outcome.Score)
			} else {
				agg.ErrorCount++
			}
			aggregates[outcome.Metric] = agg
		}
	}
	for name, agg := range aggregates {
		if agg.Count > 0 {
			agg.PassRate = float64(agg.PassCount) / float64(agg.Count)
		}
		agg.NoData = agg.ScoredCount == 0
		if values := scores[name]; len(values) > 0 {
			fillStats(&agg, values)
		}
		aggregates[name] = agg
	}
	return aggregates
}

func fillStats(agg *MetricAggregate, values []float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))
	variance := 0.0
	for _, v := range sorted {
		variance += (v - mean) * (v - mean)
	}
	stddev := math.Sqrt(variance / float64(len(sorted)))
	agg.AvgScore = ptr(mean)
	agg.Min = ptr(sorted[0])
	agg.Max = ptr(sorted[len(sorted)-1])
	agg.StdDev = ptr(stddev)
	agg.P50 = ptr(Percentile(sorted, 50))
	agg.P90 = ptr(Percentile(sorted, 90))
}

// Percentile returns the nearest-rank percentile of ascending values.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	index := min(max(rank-1, 0), len(sorted)-1)
	return sorted[index]
}

func ptr(v float64) *float64 {
	return &v
}
