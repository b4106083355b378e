package config

import (
	"fmt"
	"os"
	"strings"

	"rageval/internal/spec"
)

// Layer mutates the settings being resolved. Layers run in a fixed order.
type Layer struct {
	Name  string
	Apply func(cfg *spec.Config) error
}

// Layers returns the ordered override layers applied on top of Defaults.
func Layers(path string, env Env) []Layer {
	return []Layer{
		FileLayer(path),
		EnvLayer(env),
		ParityLayer(),
	}
}

// Resolve builds the effective settings from defaults, file, env and parity layers,
// then normalizes and validates the result.
func Resolve(path string, env Env) (spec.Config, error) {
	cfg := Defaults()
	for _, layer := range Layers(path, env) {
		if err := layer.Apply(&cfg); err != nil {
			return spec.Config{}, err
		}
	}
	Normalize(&cfg)
	baseDir := "."
	if strings.TrimSpace(path) != "" {
		baseDir = BaseDirFromConfigPath(path)
	}
	ResolvePaths(&cfg, baseDir)
	if err := Validate(&cfg); err != nil {
		return spec.Config{}, err
	}
	return cfg, nil
}

// FileLayer decodes a YAML config file over the current settings. An empty path is a no-op.
func FileLayer(path string) Layer {
	return Layer{
		Name: "file",
		Apply: func(cfg *spec.Config) error {
			if strings.TrimSpace(path) == "" {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return &ConfigError{Err: fmt.Errorf("read config: %w", err)}
			}
			if err := spec.ParseConfigInto(data, cfg); err != nil {
				return &ConfigError{Err: err}
			}
			return nil
		},
	}
}

// EnvLayer applies environment overrides. Env wins over the file.
func EnvLayer(env Env) Layer {
	return Layer{
		Name: "env",
		Apply: func(cfg *spec.Config) error {
			collector := &issueCollector{}
			r := envReader{env: env, add: collector.add}

			r.str(EnvBaseURL, &cfg.Backend.BaseURL)
			r.str(EnvAPIKey, &cfg.Backend.APIKey)
			r.str(EnvModel, &cfg.Model)
			r.str(EnvEmbedModel, &cfg.EmbedModel)

			eval := &cfg.Evaluation
			r.boolean(EnvCostOptimized, &eval.CostOptimized)
			r.boolean(EnvIncludeReason, &eval.IncludeReason)
			r.integer(EnvMaxContextChunks, &eval.MaxContextChunks)
			r.integer(EnvMaxContextChars, &eval.MaxContextCharsPerChunk)
			r.integer(EnvFaithfulnessTruthsLimit, &eval.FaithfulnessTruthsLimit)
			r.integer(EnvRetryMaxAttempts, &eval.RetryMaxAttempts)
			r.boolean(EnvCacheUploads, &eval.CacheUploadedDocuments)
			r.boolean(EnvCacheAsks, &eval.CacheAskResponses)
			r.boolean(EnvNotebookParity, &eval.NotebookParityMode)
			r.boolean(EnvFreshSession, &eval.FreshSessionPerQuestion)
			r.boolean(EnvDisableTrimming, &eval.DisableContextTrimming)
			r.str(EnvMappingMode, &eval.MetricQuestionMappingMode)
			r.integer(EnvConcurrency, &eval.Concurrency)

			rep := &cfg.Reporting
			r.str(EnvResultsDir, &rep.ResultsDir)
			r.integer(EnvKeepLastNRuns, &rep.KeepLastNRuns)
			r.str(EnvTrendRule, &rep.TrendStatusPassRule)
			r.float(EnvTrendMinPassRate, &rep.TrendStatusMinPassRate)
			r.str(EnvWarehousePath, &rep.WarehousePath)

			return collector.result()
		},
	}
}

// ParityLayer forces the notebook-parity field set when the switch is on.
// It runs last and only touches these fields.
func ParityLayer() Layer {
	return Layer{
		Name: "notebook_parity",
		Apply: func(cfg *spec.Config) error {
			if !cfg.Evaluation.NotebookParityMode {
				return nil
			}
			ApplyNotebookParity(cfg)
			return nil
		},
	}
}

// ApplyNotebookParity forces lenient thresholds, fresh sessions, untrimmed context,
// reasons and positional mapping.
func ApplyNotebookParity(cfg *spec.Config) {
	if cfg.Thresholds == nil {
		cfg.Thresholds = map[string]float64{}
	}
	for name := range Defaults().Thresholds {
		cfg.Thresholds[name] = ParityThreshold
	}
	for name := range cfg.Thresholds {
		cfg.Thresholds[name] = ParityThreshold
	}
	eval := &cfg.Evaluation
	eval.CacheUploadedDocuments = false
	eval.CacheAskResponses = false
	eval.FreshSessionPerQuestion = true
	eval.DisableContextTrimming = true
	eval.IncludeReason = true
	eval.MetricQuestionMappingMode = spec.MappingPositional
}
