package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"rageval/internal/results"
	"rageval/internal/runner"
	"rageval/internal/trend"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// printRunSummary prints one block per saved run.
func printRunSummary(w io.Writer, reports []runner.Report, noColor bool) {
	if len(reports) == 0 {
		fmt.Fprintln(w, styled(mutedStyle, "No runs were saved.", noColor))
		return
	}
	for _, report := range reports {
		run := report.Run
		fmt.Fprintf(w, "%s %s [%s]\n",
			styled(headingStyle, "Run "+run.RunID, noColor),
			run.Scenario,
			status(run.Status, noColor))
		for _, name := range run.MetricNames() {
			agg := run.PerMetricAggregate[name]
			fmt.Fprintf(w, "  %-22s avg=%s pass_rate=%.2f threshold=%.2f n=%d\n",
				name, score(agg.AvgScore), agg.PassRate, agg.Threshold, agg.Count)
		}
		fmt.Fprintln(w, styled(mutedStyle, "  artifact: "+report.Entry.ArtifactPath, noColor))
		if report.TrendPath != "" {
			fmt.Fprintln(w, styled(mutedStyle, "  trend: "+report.TrendPath, noColor))
		}
	}
	last := reports[len(reports)-1].Trend
	fmt.Fprintf(w, "Trend over %d runs: %s\n", len(last.RunIDs), status(last.OverallStatus, noColor))
}

// printTrend prints a trend summary table.
func printTrend(w io.Writer, summary trend.Summary, noColor bool) {
	fmt.Fprintf(w, "%s rule=%s window=%d runs=%d\n",
		styled(headingStyle, "Trend", noColor), summary.Rule, summary.Window, len(summary.RunIDs))
	for _, series := range summary.Metrics {
		latest := "n/a"
		if series.Latest != nil {
			latest = score(series.Latest.AvgScore)
		}
		delta := "n/a"
		if series.Delta != nil {
			delta = strconv.FormatFloat(*series.Delta, 'f', 3, 64)
			if *series.Delta > 0 {
				delta = "+" + delta
			}
		}
		fmt.Fprintf(w, "  %-22s latest=%s delta=%s points=%d %s\n",
			series.Metric, latest, delta, len(series.Points), status(series.Status, noColor))
	}
	fmt.Fprintf(w, "Overall: %s\n", status(summary.OverallStatus, noColor))
}

func score(value *float64) string {
	if value == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*value, 'f', 3, 64)
}

func status(value string, noColor bool) string {
	if noColor {
		return value
	}
	color := lipgloss.Color("244")
	switch value {
	case results.StatusPass:
		color = lipgloss.Color("42")
	case results.StatusWarn:
		color = lipgloss.Color("220")
	case results.StatusFail:
		color = lipgloss.Color("196")
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(value)
}

func styled(style lipgloss.Style, text string, noColor bool) string {
	if noColor {
		return text
	}
	return style.Render(text)
}
