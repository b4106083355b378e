package live

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

const minQuestionWidth = 20

// defaultColumns returns the columns for an unknown terminal width.
func defaultColumns() []table.Column {
	return columnsForWidth(100)
}

// columnsForWidth gives the question text whatever width the fixed columns leave.
func columnsForWidth(width int) []table.Column {
	fixed := 6 + 14 + 10 + 8
	question := max(width-fixed, minQuestionWidth)
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Question", Width: question},
		{Title: "Status", Width: 14},
		{Title: "Elapsed", Width: 10},
	}
}

// tableStyles returns table styles for the UI.
func tableStyles(noColor bool) table.Styles {
	styles := table.DefaultStyles()
	if noColor {
		return styles
	}
	styles.Header = styles.Header.Foreground(lipgloss.Color("252"))
	return styles
}

// rowsForState converts UI state into table rows.
func rowsForState(state State, now time.Time, noColor bool, questionWidth int) []table.Row {
	rows := make([]table.Row, 0, len(state.Rows))
	for _, row := range state.Rows {
		rows = append(rows, table.Row{
			formatQuestionID(row),
			formatQuestionText(row.Text, questionWidth),
			formatStatus(row, noColor),
			formatRowDuration(row, now),
		})
	}
	return rows
}
