package live

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the scenario header line.
func renderHeader(state State, now time.Time, noColor bool) string {
	if state.RunID == "" {
		return stylize("Waiting for scenarios...", noColor, lipgloss.Color("244"))
	}
	line := "Run " + state.RunID + " | " + state.Scenario
	if state.Feature != "" {
		line += " (" + state.Feature + ")"
	}
	if !state.StartedAt.IsZero() {
		line += " | Elapsed: " + now.Sub(state.StartedAt).Round(100*time.Millisecond).String()
	}
	return stylize(line, noColor, lipgloss.Color("33"))
}

// renderSummary renders the status counts line.
func renderSummary(state State, noColor bool) string {
	counts := state.Counts
	line := "Queued: " + strconv.Itoa(counts.Queued) +
		" Asking: " + strconv.Itoa(counts.Asking) +
		" Scoring: " + strconv.Itoa(counts.Scoring) +
		" Done: " + strconv.Itoa(counts.Done) +
		" Failed: " + strconv.Itoa(counts.Failed)
	if len(state.Metrics) > 0 {
		line += " | Metrics: " + strings.Join(state.Metrics, ", ")
	}
	return stylize(line, noColor, lipgloss.Color("242"))
}

// renderResults renders the metric summary of the last finished scenario.
func renderResults(state State, noColor bool) string {
	if state.Overall == "" {
		return ""
	}
	lines := []string{"Overall: " + verdict(state.Overall, noColor)}
	for _, line := range state.Finished {
		lines = append(lines, "  "+line.Metric+
			" avg="+formatScore(line.AvgScore)+
			" pass_rate="+strconv.FormatFloat(line.PassRate, 'f', 2, 64)+
			" trend="+verdict(line.Status, noColor))
	}
	return strings.Join(lines, "\n")
}

// renderFooter renders the last event line.
func renderFooter(state State, noColor bool) string {
	if state.LastEvent == "" {
		return ""
	}
	return stylize("Last event: "+state.LastEvent, noColor, lipgloss.Color("244"))
}

func verdict(status string, noColor bool) string {
	if noColor {
		return status
	}
	return verdictStyle(status).Render(status)
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
