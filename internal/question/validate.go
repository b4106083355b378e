package question

import (
	"fmt"
	"strings"
)

// Issue captures a validation problem in a dataset.
type Issue struct {
	Field   string
	Message string
}

// ValidationError reports one or more dataset issues.
type ValidationError struct {
	Source string
	Issues []Issue
}

// Error returns a readable message for validation failures.
func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return ""
	}
	parts := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	prefix := "dataset validation failed"
	if err.Source != "" {
		prefix += " (" + err.Source + ")"
	}
	return prefix + ": " + strings.Join(parts, "; ")
}

type issueCollector struct {
	source string
	issues []Issue
}

func (collector *issueCollector) add(field, message string) {
	collector.issues = append(collector.issues, Issue{Field: field, Message: message})
}

func (collector *issueCollector) result() error {
	if len(collector.issues) == 0 {
		return nil
	}
	return &ValidationError{Source: collector.source, Issues: collector.issues}
}
