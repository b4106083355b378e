package spec

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseConfigInto decodes YAML on top of an existing config so unset fields keep their values.
func ParseConfigInto(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("parse config: multiple YAML documents are not supported")
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ParseConfig decodes a standalone YAML config.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := ParseConfigInto(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
