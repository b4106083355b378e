package cli

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestReportCommandRecomputesTrend verifies report reads history and prints warehouse rows.
func TestReportCommandRecomputesTrend(t *testing.T) {
	server := defaultServer(t)
	proj := newProject(t, server.URL, "")
	isolate(t, map[string]string{}, scripted(0.9))

	for i := 0; i < 2; i++ {
		var out, errOut bytes.Buffer
		code := Run([]string{"run", "--config", proj.config, "--ui", "plain", "--format", "progress"}, &out, &errOut)
		require.Equal(t, ExitOK, code, "stderr: %s", errOut.String())
	}

	var out, errOut bytes.Buffer
	code := Run([]string{"report", "--config", proj.config, "--metric", "Faithful"}, &out, &errOut)
	require.Equal(t, ExitOK, code, "stderr: %s", errOut.String())
	output := out.String()
	require.Contains(t, output, "rule=min_pass_rate window=5 runs=2")
	require.Contains(t, output, "faithfulness")
	require.Contains(t, output, "delta=0.000")
	require.Contains(t, output, "Overall: PASS")
	require.Contains(t, output, "History of faithfulness:")
	require.Contains(t, output, "avg=0.900 pass_rate=1.00")

	out.Reset()
	errOut.Reset()
	code = Run([]string{"report", "--config", proj.config, "--question", "How long is the  refund window?", "--expected", "30 days"}, &out, &errOut)
	require.Equal(t, ExitOK, code, "stderr: %s", errOut.String())
	require.Contains(t, out.String(), "faithfulness pass_rate=1.00")
}

// TestReportCommandQuestionNeedsWarehouse verifies --question without a warehouse is a usage error.
func TestReportCommandQuestionNeedsWarehouse(t *testing.T) {
	proj := newProject(t, "http://127.0.0.1:1", "")
	require.NoError(t, os.WriteFile(proj.config, []byte(`version: 1
backend:
  base_url: "http://127.0.0.1:1"
reporting:
  results_dir: results
`), 0o644))
	isolate(t, map[string]string{}, nil)

	var out, errOut bytes.Buffer
	code := Run([]string{"report", "--config", proj.config, "--question", "anything"}, &out, &errOut)
	require.Equal(t, ExitUsage, code)
	require.Contains(t, errOut.String(), "require reporting.warehouse_path")
}

// TestReportCommandEmptyHistory verifies an empty results dir yields NO_DATA.
func TestReportCommandEmptyHistory(t *testing.T) {
	proj := newProject(t, "http://127.0.0.1:1", "")
	isolate(t, map[string]string{}, nil)

	var out, errOut bytes.Buffer
	code := Run([]string{"report", "--config", proj.config}, &out, &errOut)
	require.Equal(t, ExitOK, code, "stderr: %s", errOut.String())
	require.Contains(t, out.String(), "Overall: NO_DATA")
}
