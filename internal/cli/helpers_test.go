package cli

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"rageval/internal/config"
	"rageval/internal/eval"
	"rageval/internal/eval/evaltest"
	"rageval/internal/spec"
)

// project is a temporary rageval project with config, features and data.
type project struct {
	root   string
	config string
}

func writeProjectFile(t *testing.T, root, rel, body string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return path
}

const sampleFeature = `Feature: Refunds

  @faithfulness
  Scenario: Refund window
    Given the RAG backend is reachable
    And documents are uploaded from "refunds.txt"
    When I load dataset "refunds.json"
    And I evaluate all questions
    Then metric "faithfulness" should be >= configured threshold
    And save results for reporting
`

func newProject(t *testing.T, baseURL string, extraConfig string) project {
	t.Helper()
	root := t.TempDir()
	cfgPath := writeProjectFile(t, root, filepath.Join(config.ConfigDirName, config.ConfigFileName), `version: 1
backend:
  base_url: "`+baseURL+`"
  backoff_seconds: 0
  retries: 0
reporting:
  results_dir: results
  warehouse_path: results/warehouse.duckdb
`+extraConfig)
	writeProjectFile(t, root, "features/refunds.feature", sampleFeature)
	writeProjectFile(t, root, "datasets/refunds.json", `[{"id": "R1", "question": "How long is the refund window?", "expected_output": "30 days"}]`)
	writeProjectFile(t, root, "documents/refunds.txt", "Refunds are accepted within 30 days.")
	return project{root: root, config: cfgPath}
}

// isolate pins env lookups, TTY detection and the scorer for one test.
func isolate(t *testing.T, env map[string]string, scorer eval.Scorer) {
	t.Helper()
	originalEnv, originalTTY, originalScorer := lookupEnv, isTerminal, newScorer
	t.Cleanup(func() {
		lookupEnv, isTerminal, newScorer = originalEnv, originalTTY, originalScorer
	})
	lookupEnv = config.MapEnv(env)
	isTerminal = func(io.Writer) bool { return false }
	if scorer != nil {
		newScorer = func(spec.Config, config.Env) (eval.Scorer, error) { return scorer, nil }
	}
}

func scripted(value float64) *evaltest.ScriptedScorer {
	return evaltest.NewScriptedScorer(value)
}
