// Package store persists run artifacts and maintains the historical and
// current-session run indices under the results directory.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"rageval/internal/results"
	"rageval/internal/telemetry"
	"rageval/internal/trend"
)

const (
	runsDirName      = "runs"
	trendsDirName    = "trends"
	artifactName     = "results.json"
	historyName      = "history.jsonl"
	currentIndexName = "current_index.json"
	trendName        = "trend.json"
)

// Options configures a Store.
type Options struct {
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// CurrentIndex is the current-session index document.
type CurrentIndex struct {
	SessionID string               `json:"session_id"`
	Runs      []results.IndexEntry `json:"runs"`
}

// Store owns one results directory for one session.
type Store struct {
	dir       string
	sessionID string
	logger    *slog.Logger
	metrics   *telemetry.Metrics

	mu      sync.Mutex
	entries []results.IndexEntry
}

// Open prepares dir for a session. It does not touch existing indices; call Reset
// once at session start.
func Open(dir, sessionID string, opts Options) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("results dir is required")
	}
	for _, sub := range []string{runsDirName, trendsDirName} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create results dir: %w", err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{dir: dir, sessionID: sessionID, logger: logger, metrics: opts.Metrics}, nil
}

// Dir returns the results directory.
func (s *Store) Dir() string { return s.dir }

// SessionID returns the session this store writes the current index for.
func (s *Store) SessionID() string { return s.sessionID }

// ArtifactPath returns the relative artifact path for a run id.
func ArtifactPath(runID string) string {
	return filepath.ToSlash(filepath.Join(runsDirName, runID, artifactName))
}

// Reset clears the current-session index.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	if err := writeJSONAtomic(filepath.Join(s.dir, currentIndexName), CurrentIndex{SessionID: s.sessionID, Runs: []results.IndexEntry{}}); err != nil {
		return fmt.Errorf("reset current index: %w", err)
	}
	return nil
}

// Persist writes the run artifact, appends it to the historical index and
// rewrites the current-session index, in that order. An artifact failure leaves
// both indices untouched.
func (s *Store) Persist(run results.RunResult) (results.IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fail := func(step string, err error) (results.IndexEntry, error) {
		s.metrics.RunPersisted("error")
		s.logger.Error("persist run failed", "run_id", run.RunID, "step", step, "error", err)
		return results.IndexEntry{}, &PersistenceError{Step: step, RunID: run.RunID, Err: err}
	}

	if !results.ValidRunID(run.RunID) {
		return fail(StepArtifact, fmt.Errorf("invalid run id %q", run.RunID))
	}
	runDir := filepath.Join(s.dir, runsDirName, run.RunID)
	if err := os.MkdirAll(filepath.Dir(runDir), 0o755); err != nil {
		return fail(StepArtifact, err)
	}
	if err := os.Mkdir(runDir, 0o755); err != nil {
		return fail(StepArtifact, err)
	}
	if err := writeJSONAtomic(filepath.Join(runDir, artifactName), run); err != nil {
		_ = os.RemoveAll(runDir)
		return fail(StepArtifact, err)
	}

	entry := results.NewIndexEntry(run, ArtifactPath(run.RunID))
	if err := appendLine(filepath.Join(s.dir, historyName), entry); err != nil {
		return fail(StepHistory, err)
	}

	entries := append(append([]results.IndexEntry(nil), s.entries...), entry)
	if err := writeJSONAtomic(filepath.Join(s.dir, currentIndexName), CurrentIndex{SessionID: s.sessionID, Runs: entries}); err != nil {
		return fail(StepCurrentIndex, err)
	}
	s.entries = entries

	s.metrics.RunPersisted(run.Status)
	s.logger.Info("run persisted", "run_id", run.RunID, "status", run.Status, "artifact", entry.ArtifactPath)
	return entry, nil
}

// SessionEntries returns the runs persisted in this session.
func (s *Store) SessionEntries() []results.IndexEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]results.IndexEntry(nil), s.entries...)
}

// CurrentIndex reads the current-session index from disk.
func (s *Store) CurrentIndex() (CurrentIndex, error) {
	var index CurrentIndex
	if err := readJSON(filepath.Join(s.dir, currentIndexName), &index); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return CurrentIndex{Runs: []results.IndexEntry{}}, nil
		}
		return CurrentIndex{}, err
	}
	return index, nil
}

// History reads the historical index in file order. A torn final line, left by
// an interrupted append, is skipped.
func (s *Store) History() ([]results.IndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, historyName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}
	var entries []results.IndexEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var lines [][]byte
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	for i, line := range lines {
		var entry results.IndexEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			if i == len(lines)-1 {
				s.logger.Warn("skipping torn history line", "line", i+1, "error", err)
				break
			}
			return nil, fmt.Errorf("history line %d: %w", i+1, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LoadRun reads a persisted artifact.
func (s *Store) LoadRun(runID string) (results.RunResult, error) {
	if !results.ValidRunID(runID) {
		return results.RunResult{}, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	var run results.RunResult
	if err := readJSON(filepath.Join(s.dir, runsDirName, runID, artifactName), &run); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return results.RunResult{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return results.RunResult{}, err
	}
	return run, nil
}

// WriteTrend replaces the latest trend artifact.
func (s *Store) WriteTrend(summary trend.Summary) (string, error) {
	path := filepath.Join(s.dir, trendsDirName, trendName)
	if err := writeJSONAtomic(path, summary); err != nil {
		return "", fmt.Errorf("write trend: %w", err)
	}
	return path, nil
}

// ReadTrend loads the latest trend artifact.
func (s *Store) ReadTrend() (trend.Summary, error) {
	var summary trend.Summary
	err := readJSON(filepath.Join(s.dir, trendsDirName, trendName), &summary)
	return summary, err
}
