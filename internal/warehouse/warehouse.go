// Package warehouse mirrors persisted runs into DuckDB for ad-hoc analysis and
// history queries. The JSON artifacts stay the source of truth.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"rageval/internal/results"
)

// Warehouse is a DuckDB database of run aggregates and outcomes.
type Warehouse struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema. Use
// ":memory:" or "" for an in-memory database.
func Open(ctx context.Context, path string) (*Warehouse, error) {
	if path == ":memory:" {
		path = ""
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply warehouse schema: %w", err)
	}
	return &Warehouse{db: db}, nil
}

// DB exposes the connection for queries outside this package.
func (w *Warehouse) DB() *sql.DB { return w.db }

// Close releases the database.
func (w *Warehouse) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// Ingest mirrors one run. Ingesting the same run twice is a no-op.
func (w *Warehouse) Ingest(ctx context.Context, run results.RunResult) error {
	if w == nil || w.db == nil {
		return errors.New("warehouse: db is nil")
	}
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ingest: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, finished_at, mode, model, feature, scenario, mapping_mode, dataset_size, overall_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id) DO NOTHING`,
		run.RunID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Mode, run.Model, run.Feature, run.Scenario,
		run.MappingMode, run.DatasetSize, run.Status,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, name := range run.MetricNames() {
		agg, ok := run.PerMetricAggregate[name]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metric_aggregates (run_id, metric_name, kind, threshold, count, scored_count, pass_count, error_count, pass_rate, avg_score, p50, p90, no_data)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (run_id, metric_name) DO NOTHING`,
			run.RunID, name, agg.Kind.String(), agg.Threshold, agg.Count, agg.ScoredCount, agg.PassCount, agg.ErrorCount,
			agg.PassRate, nullable(agg.AvgScore), nullable(agg.P50), nullable(agg.P90), agg.NoData,
		); err != nil {
			return fmt.Errorf("insert aggregate %s: %w", name, err)
		}
	}

	for _, q := range run.PerQuestion {
		key := QuestionKey(q.Question, q.ExpectedAnswer)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (question_key, question, expected_answer) VALUES (?, ?, ?)
			 ON CONFLICT (question_key) DO NOTHING`,
			key, q.Question, q.ExpectedAnswer,
		); err != nil {
			return fmt.Errorf("insert question %s: %w", q.QuestionID, err)
		}
		for _, outcome := range q.Outcomes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO outcomes (run_id, question_index, question_id, question_key, metric_name, score, passed, reason, error, attempts)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (run_id, question_index, metric_name) DO NOTHING`,
				run.RunID, q.Index, q.QuestionID, key, outcome.Metric, nullable(outcome.Score), outcome.Passed,
				outcome.Reason, outcome.Error, outcome.Attempts,
			); err != nil {
				return fmt.Errorf("insert outcome %s/%s: %w", q.QuestionID, outcome.Metric, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ingest: %w", err)
	}
	return nil
}

// HistoryRow is one run of one metric.
type HistoryRow struct {
	RunID     string
	StartedAt time.Time
	Scenario  string
	AvgScore  *float64
	PassRate  float64
	Threshold float64
	Count     int
	NoData    bool
}

// MetricHistory returns the newest limit runs of a metric, oldest first.
func (w *Warehouse) MetricHistory(ctx context.Context, metricName string, limit int) ([]HistoryRow, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := w.db.QueryContext(ctx,
		`SELECT run_id, started_at, COALESCE(scenario, ''), avg_score, pass_rate, threshold, count, no_data
		 FROM (
		   SELECT * FROM v_metric_history WHERE metric_name = ? ORDER BY started_at DESC, run_id DESC LIMIT ?
		 )
		 ORDER BY started_at ASC, run_id ASC`,
		metricName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query metric history: %w", err)
	}
	defer rows.Close()
	var out []HistoryRow
	for rows.Next() {
		var row HistoryRow
		var avg sql.NullFloat64
		if err := rows.Scan(&row.RunID, &row.StartedAt, &row.Scenario, &avg, &row.PassRate, &row.Threshold, &row.Count, &row.NoData); err != nil {
			return nil, fmt.Errorf("scan metric history: %w", err)
		}
		if avg.Valid {
			value := avg.Float64
			row.AvgScore = &value
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// QuestionPassRate returns, per metric, the pass rate of one question across all
// ingested runs.
func (w *Warehouse) QuestionPassRate(ctx context.Context, question, expectedAnswer string) (map[string]float64, error) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT metric_name, avg(CASE WHEN passed THEN 1.0 ELSE 0.0 END)
		 FROM outcomes WHERE question_key = ? GROUP BY metric_name`,
		QuestionKey(question, expectedAnswer),
	)
	if err != nil {
		return nil, fmt.Errorf("query question pass rate: %w", err)
	}
	defer rows.Close()
	out := map[string]float64{}
	for rows.Next() {
		var name string
		var rate float64
		if err := rows.Scan(&name, &rate); err != nil {
			return nil, fmt.Errorf("scan question pass rate: %w", err)
		}
		out[name] = rate
	}
	return out, rows.Err()
}

func nullable(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}
