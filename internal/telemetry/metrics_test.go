package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetricsCounters verifies counters increment per label set.
func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.BackendCall("ask", "ok", 20*time.Millisecond)
	m.BackendCall("ask", "ok", 10*time.Millisecond)
	m.CacheLookup("ask", "hit")
	m.MetricOutcome("faithfulness", "pass")

	if got := testutil.ToFloat64(m.BackendCalls.WithLabelValues("ask", "ok")); got != 2 {
		t.Fatalf("expected 2 ask calls, got %v", got)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("ask", "hit")); got != 1 {
		t.Fatalf("expected 1 cache hit, got %v", got)
	}
	if got := testutil.ToFloat64(m.MetricOutcomes.WithLabelValues("faithfulness", "pass")); got != 1 {
		t.Fatalf("expected 1 outcome, got %v", got)
	}
}

// TestNilMetricsIsNoop verifies a nil receiver never panics.
func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.BackendCall("ask", "ok", time.Second)
	m.CacheLookup("upload", "miss")
	m.MetricOutcome("faithfulness", "fail")
	m.ScorerAttempt("faithfulness")
	m.RunPersisted("pass")
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "metrics.prom")); err != nil {
		t.Fatalf("expected nil metrics write to be a no-op, got %v", err)
	}
}

// TestWriteTextfile verifies the textfile export contains recorded series.
func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RunPersisted("pass")
	path := filepath.Join(t.TempDir(), "metrics.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `rageval_runs_persisted_total{status="pass"} 1`) {
		t.Fatalf("expected persisted run series, got:\n%s", data)
	}
}
