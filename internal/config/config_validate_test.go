package config

import (
	"errors"
	"strings"
	"testing"

	"rageval/internal/spec"
)

// validConfig returns a minimal config used by validation tests.
func validConfig() spec.Config {
	cfg := Defaults()
	cfg.Backend.BaseURL = "http://localhost:8000"
	return cfg
}

// TestValidateAcceptsDefaults verifies defaults plus a base URL are valid.
func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

// TestValidateCollectsAllIssues verifies multiple problems are reported together.
func TestValidateCollectsAllIssues(t *testing.T) {
	cfg := validConfig()
	cfg.Thresholds["faithfulness"] = 1.5
	cfg.Evaluation.RetryMaxAttempts = 0
	cfg.Evaluation.MetricQuestionMappingMode = "diagonal"
	cfg.Reporting.TrendStatusPassRule = "median"
	cfg.Reporting.KeepLastNRuns = 0

	err := Validate(&cfg)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	if len(cfgErr.Issues) != 5 {
		t.Fatalf("expected 5 issues, got %d: %v", len(cfgErr.Issues), cfgErr)
	}
	for _, field := range []string{
		"thresholds.faithfulness",
		"evaluation.deepeval_retry_max_attempts",
		"evaluation.metric_question_mapping_mode",
		"reporting.trend_status_pass_rate_rule",
		"reporting.keep_last_n_runs",
	} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("expected %s in %q", field, err.Error())
		}
	}
}

// TestValidateRejectsRelativeBaseURL verifies base URLs need a scheme and host.
func TestValidateRejectsRelativeBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Backend.BaseURL = "localhost"
	if err := Validate(&cfg); err == nil || !strings.Contains(err.Error(), "backend.base_url") {
		t.Fatalf("expected base_url error, got %v", err)
	}
}

// TestNormalizeThresholdKeys verifies threshold names are canonicalized.
func TestNormalizeThresholdKeys(t *testing.T) {
	cfg := validConfig()
	cfg.Thresholds = map[string]float64{"Answer-Relevancy": 0.6}
	Normalize(&cfg)
	if cfg.Thresholds["answer_relevancy"] != 0.6 {
		t.Fatalf("expected normalized key, got %v", cfg.Thresholds)
	}
}

// TestParseBool verifies accepted boolean spellings.
func TestParseBool(t *testing.T) {
	for _, value := range []string{"1", "true", "YES", "on"} {
		if got, err := ParseBool(value); err != nil || !got {
			t.Fatalf("expected %q to be true, got %v %v", value, got, err)
		}
	}
	for _, value := range []string{"0", "false", "no", "OFF"} {
		if got, err := ParseBool(value); err != nil || got {
			t.Fatalf("expected %q to be false, got %v %v", value, got, err)
		}
	}
	if _, err := ParseBool("perhaps"); err == nil {
		t.Fatalf("expected error for invalid bool")
	}
}
