package config

import "rageval/internal/spec"

// ParityThreshold is the lenient threshold forced onto every metric in notebook-parity mode.
const ParityThreshold = 0.50

// Defaults returns the built-in base layer. The backend base URL has no default.
func Defaults() spec.Config {
	return spec.Config{
		Version: 1,
		Backend: spec.BackendConfig{
			UploadEndpoint:  "/upload",
			AskEndpoint:     "/ask",
			HealthEndpoints: []string{"", "/docs", "/health"},
			TimeoutSeconds:  120,
			Retries:         3,
			BackoffSeconds:  1.0,
		},
		Model:      "gpt-4.1-mini",
		EmbedModel: "text-embedding-3-small",
		Judge: spec.JudgeConfig{
			APIKeyEnv:      "OPENAI_API_KEY",
			Temperature:    0,
			TimeoutSeconds: 60,
		},
		Thresholds: map[string]float64{
			"contextual_precision":    0.70,
			"contextual_recall":       0.70,
			"contextual_relevancy":    0.70,
			"answer_relevancy":        0.75,
			"faithfulness":            0.75,
			"completeness":            0.70,
			spec.GeneralThresholdKey: 0.70,
		},
		Evaluation: spec.EvaluationConfig{
			CostOptimized:             true,
			IncludeReason:             false,
			MaxContextChunks:          2,
			MaxContextCharsPerChunk:   700,
			FaithfulnessTruthsLimit:   6,
			RetryMaxAttempts:          1,
			CacheUploadedDocuments:    true,
			CacheAskResponses:         true,
			MetricQuestionMappingMode: spec.MappingAll,
			Concurrency:               1,
		},
		Reporting: spec.ReportingConfig{
			ResultsDir:             "results",
			KeepLastNRuns:          5,
			TrendStatusPassRule:    spec.RuleMinPassRate,
			TrendStatusMinPassRate: 1.0,
		},
		Features: spec.FeaturesConfig{
			Paths:        []string{"features"},
			DatasetsDir:  "datasets",
			DocumentsDir: "documents",
		},
	}
}
