package trend

import (
	"sort"
	"time"

	"rageval/internal/metric"
	"rageval/internal/results"
)

// Point is one metric in one run of the window.
type Point struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	AvgScore  *float64  `json:"avg_score"`
	PassRate  float64   `json:"pass_rate"`
	Threshold float64   `json:"threshold"`
	Count     int       `json:"count"`
	Status    string    `json:"status"`
}

// Series is the history of one metric across the window, oldest first.
type Series struct {
	Metric string  `json:"metric_name"`
	Points []Point `json:"points"`
	Status string  `json:"status"`
	Latest *Point  `json:"latest,omitempty"`
	// Delta is the latest avg score minus the first scored avg in the window.
	Delta *float64 `json:"delta,omitempty"`
}

// Summary is the trend artifact.
type Summary struct {
	GeneratedAt   time.Time `json:"generated_at"`
	Rule          string    `json:"rule"`
	Window        int       `json:"window"`
	RunIDs        []string  `json:"run_ids"`
	Metrics       []Series  `json:"metrics"`
	OverallStatus string    `json:"overall_status"`
}

// Engine computes trend summaries with a fixed rule and window size.
type Engine struct {
	rule   Rule
	window int
}

// NewEngine returns an engine keeping the last window runs.
func NewEngine(rule Rule, window int) *Engine {
	return &Engine{rule: rule, window: max(window, 1)}
}

// Compute summarizes the last window runs of history. History is sorted by
// timestamp, so callers may pass index lines in file order.
func (e *Engine) Compute(history []results.IndexEntry) Summary {
	runs := append([]results.IndexEntry(nil), history...)
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	if len(runs) > e.window {
		runs = runs[len(runs)-e.window:]
	}

	summary := Summary{
		Rule:          e.rule.Name(),
		Window:        e.window,
		RunIDs:        []string{},
		Metrics:       []Series{},
		OverallStatus: results.StatusNoData,
	}
	if len(runs) == 0 {
		return summary
	}
	summary.GeneratedAt = runs[len(runs)-1].Timestamp

	var names []string
	seen := map[string]struct{}{}
	for _, run := range runs {
		summary.RunIDs = append(summary.RunIDs, run.RunID)
		for name := range run.Metrics {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	names = metric.OrderNames(names)

	var statuses []string
	for _, name := range names {
		series := e.series(name, runs)
		statuses = append(statuses, series.Status)
		summary.Metrics = append(summary.Metrics, series)
	}
	summary.OverallStatus = overall(statuses)
	return summary
}

func (e *Engine) series(name string, runs []results.IndexEntry) Series {
	series := Series{Metric: name, Points: []Point{}}
	var statuses []string
	var first *float64
	for _, run := range runs {
		snapshot, ok := run.Metrics[name]
		if !ok {
			continue
		}
		point := Point{
			RunID:     run.RunID,
			Timestamp: run.Timestamp,
			AvgScore:  snapshot.AvgScore,
			PassRate:  snapshot.PassRate,
			Threshold: snapshot.Threshold,
			Count:     snapshot.Count,
			Status:    e.rule.Status(snapshot),
		}
		if first == nil && point.AvgScore != nil {
			first = point.AvgScore
		}
		series.Points = append(series.Points, point)
		statuses = append(statuses, point.Status)
	}
	series.Status = WindowStatus(statuses)
	if n := len(series.Points); n > 0 {
		latest := series.Points[n-1]
		series.Latest = &latest
		if first != nil && latest.AvgScore != nil {
			delta := *latest.AvgScore - *first
			series.Delta = &delta
		}
	}
	return series
}

// overall ranks metric window statuses: FAIL, then WARN, then PASS; NO_DATA only
// when every metric lacks data.
func overall(statuses []string) string {
	rank := map[string]int{results.StatusNoData: 0, results.StatusPass: 1, results.StatusWarn: 2, results.StatusFail: 3}
	best := results.StatusNoData
	for _, status := range statuses {
		if rank[status] > rank[best] {
			best = status
		}
	}
	return best
}
