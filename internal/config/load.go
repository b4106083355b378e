package config

import (
	"path/filepath"

	"rageval/internal/spec"
)

// Load resolves settings from a config file, a sibling .env file and the process environment.
func Load(path string) (spec.Config, error) {
	dotenvPath := ".env"
	if path != "" {
		dotenvPath = filepath.Join(filepath.Dir(path), ".env")
	}
	env, err := WithDotEnv(OSEnv(), dotenvPath)
	if err != nil {
		return spec.Config{}, &ConfigError{Err: err}
	}
	return Resolve(path, env)
}
