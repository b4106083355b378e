package cli

import (
	"bytes"
	"strings"
	"testing"
)

// TestValidateCommandPrintsEffectiveSettings verifies env overrides show up and secrets are masked.
func TestValidateCommandPrintsEffectiveSettings(t *testing.T) {
	proj := newProject(t, "http://rag.internal:8000", "")
	isolate(t, map[string]string{
		"API_KEY":                       "secret-token",
		"RAG_EVAL_NOTEBOOK_PARITY_MODE": "true",
	}, nil)

	var out, errOut bytes.Buffer
	code := Run([]string{"validate", "--config", proj.config}, &out, &errOut)
	if code != ExitOK {
		t.Fatalf("expected exit %d, got %d (stderr %q)", ExitOK, code, errOut.String())
	}
	output := out.String()
	for _, want := range []string{"# mode: notebook-parity", "base_url: http://rag.internal:8000", "api_key:", redacted, "Config OK"} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in output, got %q", want, output)
		}
	}
	if strings.Contains(output, "secret-token") {
		t.Fatalf("api key leaked into output")
	}
}

// TestValidateCommandUsesConfigEnv verifies RAG_EVAL_CONFIG locates the file.
func TestValidateCommandUsesConfigEnv(t *testing.T) {
	proj := newProject(t, "http://rag.internal:8000", "")
	isolate(t, map[string]string{"RAG_EVAL_CONFIG": proj.config}, nil)

	var out, errOut bytes.Buffer
	if code := Run([]string{"validate", "--quiet"}, &out, &errOut); code != ExitOK {
		t.Fatalf("expected exit %d, got %d (stderr %q)", ExitOK, code, errOut.String())
	}
	if strings.TrimSpace(out.String()) != "Config OK" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

// TestValidateCommandFailure verifies every issue is reported.
func TestValidateCommandFailure(t *testing.T) {
	proj := newProject(t, "not a url", `thresholds:
  faithfulness: 1.5
`)
	isolate(t, map[string]string{}, nil)

	var out, errOut bytes.Buffer
	code := Run([]string{"validate", "--config", proj.config}, &out, &errOut)
	if code != ExitError {
		t.Fatalf("expected exit %d, got %d", ExitError, code)
	}
	message := errOut.String()
	if !strings.Contains(message, "Validation failed") || !strings.Contains(message, "backend.base_url") || !strings.Contains(message, "thresholds.faithfulness") {
		t.Fatalf("expected both issues, got %q", message)
	}
}

// TestValidateCommandRejectsArgs verifies stray positional arguments are usage errors.
func TestValidateCommandRejectsArgs(t *testing.T) {
	isolate(t, map[string]string{}, nil)
	var out, errOut bytes.Buffer
	if code := Run([]string{"validate", "extra"}, &out, &errOut); code != ExitUsage {
		t.Fatalf("expected exit %d, got %d", ExitUsage, code)
	}
}
