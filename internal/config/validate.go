package config

import (
	"fmt"
	"net/url"
	"strings"

	"rageval/internal/spec"
)

// Validate checks the effective settings and reports every issue at once.
func Validate(cfg *spec.Config) error {
	collector := &issueCollector{}

	if cfg.Version != 1 {
		collector.add("version", fmt.Sprintf("unsupported version %d", cfg.Version))
	}

	validateBackend(cfg.Backend, collector.add)
	validateThresholds(cfg.Thresholds, collector.add)
	validateEvaluation(cfg.Evaluation, collector.add)
	validateReporting(cfg.Reporting, collector.add)

	if strings.TrimSpace(cfg.Model) == "" {
		collector.add("model", "is required")
	}

	return collector.result()
}

func validateBackend(backend spec.BackendConfig, add issueAdder) {
	if backend.BaseURL == "" {
		add("backend.base_url", "is required (set it in the config file or "+EnvBaseURL+")")
	} else if parsed, err := url.Parse(backend.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		add("backend.base_url", fmt.Sprintf("invalid URL %q", backend.BaseURL))
	}
	if backend.UploadEndpoint == "" {
		add("backend.upload_endpoint", "is required")
	}
	if backend.AskEndpoint == "" {
		add("backend.ask_endpoint", "is required")
	}
	if backend.TimeoutSeconds <= 0 {
		add("backend.timeout_seconds", "must be > 0")
	}
	if backend.Retries < 0 {
		add("backend.retries", "must be >= 0")
	}
	if backend.BackoffSeconds < 0 {
		add("backend.backoff_seconds", "must be >= 0")
	}
}

func validateThresholds(thresholds map[string]float64, add issueAdder) {
	for name, value := range thresholds {
		if value < 0 || value > 1 {
			add("thresholds."+name, fmt.Sprintf("must be within [0, 1], got %v", value))
		}
	}
}

func validateEvaluation(eval spec.EvaluationConfig, add issueAdder) {
	if eval.RetryMaxAttempts < 1 {
		add("evaluation.deepeval_retry_max_attempts", "must be >= 1")
	}
	if eval.MaxContextChunks < 0 {
		add("evaluation.max_retrieval_context_chunks", "must be >= 0")
	}
	if eval.MaxContextCharsPerChunk < 0 {
		add("evaluation.max_retrieval_context_chars_per_chunk", "must be >= 0")
	}
	switch eval.MetricQuestionMappingMode {
	case spec.MappingAll, spec.MappingPositional, spec.MappingRow:
	default:
		add("evaluation.metric_question_mapping_mode", fmt.Sprintf("unknown mode %q (expected all|positional|row)", eval.MetricQuestionMappingMode))
	}
}

func validateReporting(rep spec.ReportingConfig, add issueAdder) {
	if strings.TrimSpace(rep.ResultsDir) == "" {
		add("reporting.results_dir", "is required")
	}
	if rep.KeepLastNRuns < 1 {
		add("reporting.keep_last_n_runs", "must be >= 1")
	}
	switch rep.TrendStatusPassRule {
	case spec.RuleNone, spec.RuleMinPassRate, spec.RuleThresholdBased:
	default:
		add("reporting.trend_status_pass_rate_rule", fmt.Sprintf("unknown rule %q (expected none|min_pass_rate|threshold_based)", rep.TrendStatusPassRule))
	}
	if rep.TrendStatusMinPassRate < 0 || rep.TrendStatusMinPassRate > 1 {
		add("reporting.trend_status_min_pass_rate", "must be within [0, 1] or [0, 100]")
	}
}
