package store

import (
	"errors"
	"fmt"
)

// ErrPersistence marks failures writing run artifacts or indices.
var ErrPersistence = errors.New("persistence failed")

// ErrRunNotFound is returned by LoadRun for unknown run ids.
var ErrRunNotFound = errors.New("run not found")

// Persistence steps, in the order Persist performs them.
const (
	StepArtifact     = "artifact"
	StepHistory      = "history"
	StepCurrentIndex = "current_index"
)

// PersistenceError reports which step of Persist failed.
type PersistenceError struct {
	Step  string
	RunID string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist run %s: %s: %v", e.RunID, e.Step, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is matches ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
