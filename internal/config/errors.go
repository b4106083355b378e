package config

import (
	"fmt"
	"strings"
)

// Issue captures a problem with a single config field.
type Issue struct {
	Field   string
	Message string
}

// ConfigError reports why the effective settings could not be produced.
type ConfigError struct {
	Issues []Issue
	Err    error
}

// Error renders the underlying failure or the issues as a multi-line string.
func (err *ConfigError) Error() string {
	if err == nil {
		return "config error"
	}
	if err.Err != nil && len(err.Issues) == 0 {
		return err.Err.Error()
	}
	if len(err.Issues) == 0 {
		return "config validation failed"
	}
	lines := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		lines = append(lines, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return strings.Join(lines, "\n")
}

// Unwrap exposes the underlying read or parse failure.
func (err *ConfigError) Unwrap() error {
	if err == nil {
		return nil
	}
	return err.Err
}

// issueAdder adds a validation issue to a shared collector.
type issueAdder func(field, message string)

// issueCollector accumulates validation issues.
type issueCollector struct {
	issues []Issue
}

// add records a new validation issue.
func (c *issueCollector) add(field, message string) {
	c.issues = append(c.issues, Issue{Field: field, Message: message})
}

// result returns a ConfigError when issues are present.
func (c *issueCollector) result() error {
	if len(c.issues) == 0 {
		return nil
	}
	return &ConfigError{Issues: c.issues}
}
