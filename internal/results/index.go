package results

import "time"

// MetricSnapshot is the slice of an aggregate kept in the run indices, enough to
// compute trends without reading artifacts.
type MetricSnapshot struct {
	AvgScore    *float64 `json:"avg_score"`
	PassRate    float64  `json:"pass_rate"`
	Threshold   float64  `json:"threshold"`
	Count       int      `json:"count"`
	ScoredCount int      `json:"scored_count"`
	NoData      bool     `json:"no_data"`
}

// IndexEntry is one line of the historical index and one element of the
// current-session index.
type IndexEntry struct {
	RunID         string                    `json:"run_id"`
	Timestamp     time.Time                 `json:"timestamp"`
	FinishedAt    time.Time                 `json:"finished_at"`
	Feature       string                    `json:"feature,omitempty"`
	Scenario      string                    `json:"scenario,omitempty"`
	Mode          string                    `json:"mode"`
	DatasetSize   int                       `json:"dataset_size"`
	ArtifactPath  string                    `json:"artifact_path"`
	Metrics       map[string]MetricSnapshot `json:"metrics"`
	OverallStatus string                    `json:"overall_status"`
}

// NewIndexEntry summarizes run for the indices. artifactPath is relative to the
// results directory.
func NewIndexEntry(run RunResult, artifactPath string) IndexEntry {
	metrics := make(map[string]MetricSnapshot, len(run.PerMetricAggregate))
	for name, agg := range run.PerMetricAggregate {
		metrics[name] = MetricSnapshot{
			AvgScore:    agg.AvgScore,
			PassRate:    agg.PassRate,
			Threshold:   agg.Threshold,
			Count:       agg.Count,
			ScoredCount: agg.ScoredCount,
			NoData:      agg.NoData,
		}
	}
	return IndexEntry{
		RunID:         run.RunID,
		Timestamp:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
		Feature:       run.Feature,
		Scenario:      run.Scenario,
		Mode:          run.Mode,
		DatasetSize:   run.DatasetSize,
		ArtifactPath:  artifactPath,
		Metrics:       metrics,
		OverallStatus: run.Status,
	}
}
