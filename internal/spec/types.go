package spec

import "strings"

// Config is the effective harness configuration after every layer is applied.
type Config struct {
	Version    int                `yaml:"version"`
	Backend    BackendConfig      `yaml:"backend"`
	Model      string             `yaml:"model"`
	EmbedModel string             `yaml:"embed_model"`
	Judge      JudgeConfig        `yaml:"judge"`
	Thresholds map[string]float64 `yaml:"thresholds"`
	Evaluation EvaluationConfig   `yaml:"evaluation"`
	Reporting  ReportingConfig    `yaml:"reporting"`
	Features   FeaturesConfig     `yaml:"features"`
}

// BackendConfig describes the RAG backend under evaluation.
type BackendConfig struct {
	BaseURL         string   `yaml:"base_url"`
	UploadEndpoint  string   `yaml:"upload_endpoint"`
	AskEndpoint     string   `yaml:"ask_endpoint"`
	HealthEndpoints []string `yaml:"health_endpoints"`
	TimeoutSeconds  float64  `yaml:"timeout_seconds"`
	Retries         int      `yaml:"retries"`
	BackoffSeconds  float64  `yaml:"backoff_seconds"`
	APIKey          string   `yaml:"api_key"`
}

// JudgeConfig configures the OpenAI-compatible endpoint used for scoring.
type JudgeConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	Temperature    float32 `yaml:"temperature"`
	TimeoutSeconds float64 `yaml:"timeout_seconds"`
}

// EvaluationConfig holds the cost, retry and trimming knobs.
type EvaluationConfig struct {
	CostOptimized             bool   `yaml:"cost_optimized"`
	IncludeReason             bool   `yaml:"include_reason"`
	MaxContextChunks          int    `yaml:"max_retrieval_context_chunks"`
	MaxContextCharsPerChunk   int    `yaml:"max_retrieval_context_chars_per_chunk"`
	FaithfulnessTruthsLimit   int    `yaml:"faithfulness_truths_extraction_limit"`
	RetryMaxAttempts          int    `yaml:"deepeval_retry_max_attempts"`
	CacheUploadedDocuments    bool   `yaml:"cache_uploaded_documents"`
	CacheAskResponses         bool   `yaml:"cache_ask_responses"`
	NotebookParityMode        bool   `yaml:"notebook_parity_mode"`
	FreshSessionPerQuestion   bool   `yaml:"fresh_session_per_question"`
	DisableContextTrimming    bool   `yaml:"disable_context_trimming"`
	MetricQuestionMappingMode string `yaml:"metric_question_mapping_mode"`
	Concurrency               int    `yaml:"concurrency"`
}

// ReportingConfig controls persistence and trend computation.
type ReportingConfig struct {
	ResultsDir             string  `yaml:"results_dir"`
	KeepLastNRuns          int     `yaml:"keep_last_n_runs"`
	TrendStatusPassRule    string  `yaml:"trend_status_pass_rate_rule"`
	TrendStatusMinPassRate float64 `yaml:"trend_status_min_pass_rate"`
	WarehousePath          string  `yaml:"warehouse_path"`
}

// FeaturesConfig locates feature files and the data they reference.
type FeaturesConfig struct {
	Paths        []string `yaml:"paths"`
	Tags         string   `yaml:"tags"`
	DatasetsDir  string   `yaml:"datasets_dir"`
	DocumentsDir string   `yaml:"documents_dir"`
}

// Evaluation modes reported on every run.
const (
	ModeCostOptimized  = "cost-optimized"
	ModeNotebookParity = "notebook-parity"
	ModeCustom         = "custom"
)

// Mapping modes for pairing metrics with dataset rows.
const (
	MappingAll        = "all"
	MappingPositional = "positional"
	MappingRow        = "row"
)

// Trend status rules.
const (
	RuleNone           = "none"
	RuleMinPassRate    = "min_pass_rate"
	RuleThresholdBased = "threshold_based"
)

// GeneralThresholdKey holds the threshold for metrics without their own entry.
const GeneralThresholdKey = "general"

// Mode derives the run mode label from the evaluation flags.
func (c Config) Mode() string {
	switch {
	case c.Evaluation.NotebookParityMode:
		return ModeNotebookParity
	case c.Evaluation.CostOptimized:
		return ModeCostOptimized
	default:
		return ModeCustom
	}
}

// Threshold returns the configured threshold for a metric, falling back to the general entry.
func (c Config) Threshold(metric string) (float64, bool) {
	if value, ok := c.Thresholds[strings.ToLower(metric)]; ok {
		return value, true
	}
	value, ok := c.Thresholds[GeneralThresholdKey]
	return value, ok
}
