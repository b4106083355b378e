package live

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"rageval/internal/results"
	"rageval/internal/runner"
)

// formatQuestionID returns the display id for a question row.
func formatQuestionID(row QuestionRow) string {
	if row.ID != "" {
		return row.ID
	}
	return formatIndex(row.Index)
}

// formatIndex formats a question index.
func formatIndex(index int) string {
	return "Q" + pad2(index+1)
}

// pad2 left-pads a number to two digits when needed.
func pad2(value int) string {
	if value >= 10 {
		return strconv.Itoa(value)
	}
	return "0" + strconv.Itoa(value)
}

// formatQuestionText truncates question text for display.
func formatQuestionText(text string, limit int) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if limit < 4 {
		limit = 4
	}
	runes := []rune(normalized)
	if len(runes) <= limit {
		return normalized
	}
	return string(runes[:limit-3]) + "..."
}

// formatStatus renders a status string for a row.
func formatStatus(row QuestionRow, noColor bool) string {
	text := string(row.Status)
	if row.Status == runner.QuestionDone && row.Metrics > 0 {
		text += " " + strconv.Itoa(row.Passed) + "/" + strconv.Itoa(row.Metrics)
	}
	if noColor {
		return text
	}
	return statusStyle(row).Render(text)
}

// formatRowDuration returns elapsed or total time for a row.
func formatRowDuration(row QuestionRow, now time.Time) string {
	if !row.FinishedAt.IsZero() && !row.StartedAt.IsZero() {
		return row.FinishedAt.Sub(row.StartedAt).Round(100 * time.Millisecond).String()
	}
	if !row.StartedAt.IsZero() {
		return now.Sub(row.StartedAt).Round(100 * time.Millisecond).String()
	}
	return ""
}

// formatScore renders an optional average score.
func formatScore(value *float64) string {
	if value == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*value, 'f', 3, 64)
}

// statusStyle selects a style for a row.
func statusStyle(row QuestionRow) lipgloss.Style {
	color := lipgloss.Color("246")
	switch row.Status {
	case runner.QuestionAsking:
		color = lipgloss.Color("33")
	case runner.QuestionScoring:
		color = lipgloss.Color("201")
	case runner.QuestionFailed:
		color = lipgloss.Color("196")
	case runner.QuestionDone:
		color = lipgloss.Color("42")
		if row.Passed < row.Metrics {
			color = lipgloss.Color("220")
		}
	}
	return lipgloss.NewStyle().Foreground(color)
}

// verdictStyle colors run and trend statuses.
func verdictStyle(status string) lipgloss.Style {
	color := lipgloss.Color("244")
	switch status {
	case results.StatusPass:
		color = lipgloss.Color("42")
	case results.StatusWarn:
		color = lipgloss.Color("220")
	case results.StatusFail, "ABORTED":
		color = lipgloss.Color("196")
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}
