package question

import (
	"fmt"
	"strings"
)

// ParseInlineTable reads a Gherkin-style pipe table with a header row.
func ParseInlineTable(text string) ([]Question, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") && len(line) > 1 {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("inline dataset table must contain a header and at least one row")
	}
	split := func(line string) []string {
		parts := strings.Split(strings.Trim(line, "|"), "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	rows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rows = append(rows, split(line))
	}
	return FromTable(split(lines[0]), rows)
}

// FromTable builds questions from a header row and value rows.
func FromTable(headers []string, rows [][]string) ([]Question, error) {
	records, err := recordsFromTable(headers, rows)
	if err != nil {
		return nil, fmt.Errorf("inline dataset: %w", err)
	}
	return FromRecords(records, "inline")
}
