package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables recognized by the environment layer.
const (
	EnvConfigPath              = "RAG_EVAL_CONFIG"
	EnvBaseURL                 = "BASE_URL"
	EnvAPIKey                  = "API_KEY"
	EnvModel                   = "MODEL"
	EnvEmbedModel              = "EMBED_MODEL"
	EnvCostOptimized           = "RAG_EVAL_COST_OPTIMIZED"
	EnvIncludeReason           = "RAG_EVAL_INCLUDE_REASON"
	EnvMaxContextChunks        = "RAG_EVAL_MAX_CONTEXT_CHUNKS"
	EnvMaxContextChars         = "RAG_EVAL_MAX_CONTEXT_CHARS_PER_CHUNK"
	EnvFaithfulnessTruthsLimit = "RAG_EVAL_FAITHFULNESS_TRUTHS_LIMIT"
	EnvRetryMaxAttempts        = "RAG_EVAL_DEEPEVAL_RETRY_MAX_ATTEMPTS"
	EnvCacheUploads            = "RAG_EVAL_CACHE_UPLOADED_DOCUMENTS"
	EnvCacheAsks               = "RAG_EVAL_CACHE_ASK_RESPONSES"
	EnvNotebookParity          = "RAG_EVAL_NOTEBOOK_PARITY_MODE"
	EnvFreshSession            = "RAG_EVAL_FRESH_SESSION_PER_QUESTION"
	EnvDisableTrimming         = "RAG_EVAL_DISABLE_CONTEXT_TRIMMING"
	EnvMappingMode             = "RAG_EVAL_METRIC_QUESTION_MAPPING_MODE"
	EnvConcurrency             = "RAG_EVAL_CONCURRENCY"
	EnvResultsDir              = "RAG_EVAL_RESULTS_DIR"
	EnvKeepLastNRuns           = "RAG_EVAL_KEEP_LAST_N_RUNS"
	EnvTrendRule               = "RAG_EVAL_TREND_STATUS_PASS_RATE_RULE"
	EnvTrendMinPassRate        = "RAG_EVAL_TREND_STATUS_MIN_PASS_RATE"
	EnvWarehousePath           = "RAG_EVAL_WAREHOUSE_PATH"
)

// Env looks up an environment variable.
type Env func(key string) (string, bool)

// OSEnv reads from the process environment.
func OSEnv() Env {
	return os.LookupEnv
}

// MapEnv serves lookups from a fixed map.
func MapEnv(values map[string]string) Env {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

// WithDotEnv layers a .env file under env; real variables always win.
// A missing file is not an error.
func WithDotEnv(env Env, path string) (Env, error) {
	if strings.TrimSpace(path) == "" {
		return env, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, fmt.Errorf("stat dotenv %q: %w", path, err)
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read dotenv %q: %w", path, err)
	}
	return func(key string) (string, bool) {
		if value, ok := env(key); ok {
			return value, true
		}
		value, ok := values[key]
		return value, ok
	}, nil
}

// lookup returns a trimmed, non-empty environment value.
func (e Env) lookup(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	value, ok := e(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// ParseBool accepts 1/true/yes/on and 0/false/no/off.
func ParseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", value)
	}
}

// envReader applies typed environment values and records parse failures.
type envReader struct {
	env Env
	add issueAdder
}

func (r envReader) str(key string, target *string) {
	if value, ok := r.env.lookup(key); ok {
		*target = value
	}
}

func (r envReader) boolean(key string, target *bool) {
	value, ok := r.env.lookup(key)
	if !ok {
		return
	}
	parsed, err := ParseBool(value)
	if err != nil {
		r.add(key, err.Error())
		return
	}
	*target = parsed
}

func (r envReader) integer(key string, target *int) {
	value, ok := r.env.lookup(key)
	if !ok {
		return
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		r.add(key, fmt.Sprintf("invalid integer %q", value))
		return
	}
	*target = parsed
}

func (r envReader) float(key string, target *float64) {
	value, ok := r.env.lookup(key)
	if !ok {
		return
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.add(key, fmt.Sprintf("invalid number %q", value))
		return
	}
	*target = parsed
}
