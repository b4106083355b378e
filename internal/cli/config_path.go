package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"rageval/internal/config"
	"rageval/internal/spec"
)

// resolveConfigPath normalizes a config path, falling back to RAG_EVAL_CONFIG and
// then to a search upward from the working directory. An empty result means no
// config file exists and defaults plus env apply.
func resolveConfigPath(configPath string) (string, error) {
	if strings.TrimSpace(configPath) == "" {
		if fromEnv, ok := lookupEnv(config.EnvConfigPath); ok && strings.TrimSpace(fromEnv) != "" {
			configPath = fromEnv
		} else {
			return config.FindConfigPath("")
		}
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return abs, nil
}

// loadSettings resolves the effective config, reading a .env file next to the project root.
func loadSettings(configPath string) (spec.Config, string, config.Env, error) {
	resolved, err := resolveConfigPath(configPath)
	if err != nil {
		return spec.Config{}, "", nil, err
	}
	baseDir := "."
	if resolved != "" {
		baseDir = config.BaseDirFromConfigPath(resolved)
	}
	baseDir, err = filepath.Abs(baseDir)
	if err != nil {
		return spec.Config{}, "", nil, fmt.Errorf("resolve base directory: %w", err)
	}
	env, err := config.WithDotEnv(lookupEnv, filepath.Join(baseDir, ".env"))
	if err != nil {
		return spec.Config{}, "", nil, err
	}
	cfg, err := config.Resolve(resolved, env)
	if err != nil {
		return spec.Config{}, "", nil, err
	}
	return cfg, baseDir, env, nil
}

// lookupEnv is the process environment; tests replace it.
var lookupEnv = config.OSEnv()
