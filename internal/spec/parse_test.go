package spec

import "testing"

// TestParseConfigValid verifies valid config parsing succeeds.
func TestParseConfigValid(t *testing.T) {
	data := []byte(`version: 1
backend:
  base_url: "http://localhost:8000"
thresholds:
  faithfulness: 0.8
evaluation:
  metric_question_mapping_mode: row
`)
	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}
	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Fatalf("unexpected base url %q", cfg.Backend.BaseURL)
	}
	if cfg.Thresholds["faithfulness"] != 0.8 {
		t.Fatalf("unexpected threshold %v", cfg.Thresholds["faithfulness"])
	}
}

// TestParseConfigUnknownField verifies unknown fields are rejected.
func TestParseConfigUnknownField(t *testing.T) {
	data := []byte(`version: 1
unknown: true
`)
	if _, err := ParseConfig(data); err == nil {
		t.Fatalf("expected parse error for unknown field")
	}
}

// TestParseConfigRejectsMultipleDocs verifies multiple YAML docs are rejected.
func TestParseConfigRejectsMultipleDocs(t *testing.T) {
	data := []byte("version: 1\n---\nversion: 1\n")
	if _, err := ParseConfig(data); err == nil {
		t.Fatalf("expected parse error for multiple documents")
	}
}

// TestParseConfigIntoKeepsExistingValues verifies layering over defaults.
func TestParseConfigIntoKeepsExistingValues(t *testing.T) {
	cfg := Config{
		Model:      "gpt-4.1-mini",
		Thresholds: map[string]float64{"faithfulness": 0.75, "completeness": 0.7},
	}
	if err := ParseConfigInto([]byte("thresholds:\n  faithfulness: 0.9\n"), &cfg); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Model != "gpt-4.1-mini" {
		t.Fatalf("expected model to survive, got %q", cfg.Model)
	}
	if cfg.Thresholds["faithfulness"] != 0.9 || cfg.Thresholds["completeness"] != 0.7 {
		t.Fatalf("unexpected thresholds %v", cfg.Thresholds)
	}
}

// TestConfigMode verifies mode derivation.
func TestConfigMode(t *testing.T) {
	cfg := Config{Evaluation: EvaluationConfig{CostOptimized: true}}
	if cfg.Mode() != ModeCostOptimized {
		t.Fatalf("expected cost-optimized, got %s", cfg.Mode())
	}
	cfg.Evaluation.NotebookParityMode = true
	if cfg.Mode() != ModeNotebookParity {
		t.Fatalf("expected notebook-parity, got %s", cfg.Mode())
	}
	cfg.Evaluation = EvaluationConfig{}
	if cfg.Mode() != ModeCustom {
		t.Fatalf("expected custom, got %s", cfg.Mode())
	}
}
