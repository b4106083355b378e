package backend

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnreachable marks a failed health check. It is fatal for the session.
var ErrUnreachable = errors.New("backend unreachable")

// UnreachableError lists each health probe that failed.
type UnreachableError struct {
	BaseURL  string
	Failures []string
}

func (e *UnreachableError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("backend unreachable at %s", e.BaseURL)
	}
	return fmt.Sprintf("backend unreachable at %s: %s", e.BaseURL, strings.Join(e.Failures, "; "))
}

// Is matches ErrUnreachable.
func (e *UnreachableError) Is(target error) bool {
	return target == ErrUnreachable
}

// StatusError is a non-2xx backend response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, body)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	switch {
	case e.StatusCode == 408, e.StatusCode == 429:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}
