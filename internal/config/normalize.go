package config

import (
	"strings"

	"rageval/internal/spec"
)

// Normalize trims and canonicalizes free-form fields.
func Normalize(cfg *spec.Config) {
	cfg.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Backend.BaseURL), "/")
	cfg.Backend.UploadEndpoint = normalizeEndpoint(cfg.Backend.UploadEndpoint)
	cfg.Backend.AskEndpoint = normalizeEndpoint(cfg.Backend.AskEndpoint)
	for i, endpoint := range cfg.Backend.HealthEndpoints {
		if strings.TrimSpace(endpoint) == "" {
			cfg.Backend.HealthEndpoints[i] = ""
			continue
		}
		cfg.Backend.HealthEndpoints[i] = normalizeEndpoint(endpoint)
	}
	cfg.Model = strings.TrimSpace(cfg.Model)

	if len(cfg.Thresholds) > 0 {
		normalized := make(map[string]float64, len(cfg.Thresholds))
		for name, value := range cfg.Thresholds {
			key := strings.ToLower(strings.TrimSpace(name))
			key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
			normalized[key] = value
		}
		cfg.Thresholds = normalized
	}

	eval := &cfg.Evaluation
	eval.MetricQuestionMappingMode = strings.ToLower(strings.TrimSpace(eval.MetricQuestionMappingMode))
	if eval.MetricQuestionMappingMode == "" {
		eval.MetricQuestionMappingMode = spec.MappingAll
	}
	if eval.Concurrency <= 0 {
		eval.Concurrency = 1
	}

	rep := &cfg.Reporting
	rep.TrendStatusPassRule = strings.ToLower(strings.TrimSpace(rep.TrendStatusPassRule))
	if rep.TrendStatusPassRule == "" {
		rep.TrendStatusPassRule = spec.RuleMinPassRate
	}
	// Percent-style values (e.g. 80) are accepted and stored as fractions.
	if rep.TrendStatusMinPassRate > 1 {
		rep.TrendStatusMinPassRate = rep.TrendStatusMinPassRate / 100
	}
	cfg.Features.Tags = strings.TrimSpace(cfg.Features.Tags)
}

// normalizeEndpoint ensures endpoint paths start with a slash.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || strings.HasPrefix(endpoint, "/") {
		return endpoint
	}
	return "/" + endpoint
}
