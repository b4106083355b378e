package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rageval/internal/spec"
)

// Config path constants used by the CLI and loaders.
const (
	ConfigDirName  = ".rageval"
	ConfigFileName = "config.yml"
)

// ConfigPath returns the full config file path under the project root.
func ConfigPath(root string) string {
	return filepath.Join(root, ConfigDirName, ConfigFileName)
}

// BaseDirFromConfigPath derives the directory relative paths resolve against.
func BaseDirFromConfigPath(configPath string) string {
	dir := filepath.Dir(configPath)
	if filepath.Base(dir) == ConfigDirName {
		return filepath.Dir(dir)
	}
	return dir
}

// ResolvePaths makes relative reporting and feature paths absolute against baseDir.
func ResolvePaths(cfg *spec.Config, baseDir string) {
	resolve := func(path string) string {
		path = strings.TrimSpace(path)
		if path == "" || filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(baseDir, path)
	}
	cfg.Reporting.ResultsDir = resolve(cfg.Reporting.ResultsDir)
	cfg.Reporting.WarehousePath = resolve(cfg.Reporting.WarehousePath)
	cfg.Features.DatasetsDir = resolve(cfg.Features.DatasetsDir)
	cfg.Features.DocumentsDir = resolve(cfg.Features.DocumentsDir)
	for i, path := range cfg.Features.Paths {
		cfg.Features.Paths[i] = resolve(path)
	}
}

// FindConfigPath searches upward from a directory for a config file.
// It returns an empty path when none exists.
func FindConfigPath(startDir string) (string, error) {
	dir := strings.TrimSpace(startDir)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve start directory: %w", err)
	}
	dir = abs

	for {
		configPath := ConfigPath(dir)
		info, err := os.Stat(configPath)
		if err == nil {
			if info.IsDir() {
				return "", fmt.Errorf("config path %q is a directory", configPath)
			}
			return configPath, nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("stat config path %q: %w", configPath, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
