package question

import (
	"fmt"
	"strings"
)

// FromRecords normalizes raw rows into questions. Rows are numbered from 1;
// rows without an id get "Q<n>". Duplicate ids and empty questions are rejected.
func FromRecords(records []Record, source string) ([]Question, error) {
	collector := &issueCollector{source: source}
	questions := make([]Question, 0, len(records))
	seen := map[string]struct{}{}

	for i, record := range records {
		index := i + 1
		prefix := fmt.Sprintf("rows[%d]", index)
		q := Question{ID: fmt.Sprintf("Q%d", index)}
		for key, value := range record {
			canonical, ok := headerAliases[strings.ToLower(strings.TrimSpace(key))]
			if !ok {
				if isEmptyValue(value) {
					continue
				}
				if q.Metadata == nil {
					q.Metadata = map[string]any{}
				}
				q.Metadata[key] = value
				continue
			}
			text := optionalString(value)
			switch canonical {
			case "id":
				if text != "" {
					q.ID = text
				}
			case "question":
				q.Text = text
			case "expected_answer":
				q.ExpectedAnswer = text
			case "category":
				q.Category = text
			case "dataset_file":
				q.DatasetFile = text
			case "source_reference":
				q.SourceReference = text
			}
		}
		if q.Text == "" && q.DatasetFile == "" {
			collector.add(prefix+".question", "is required")
		}
		if _, exists := seen[q.ID]; exists {
			collector.add(prefix+".id", fmt.Sprintf("duplicate id %q", q.ID))
		}
		seen[q.ID] = struct{}{}
		questions = append(questions, q)
	}
	if err := collector.result(); err != nil {
		return nil, err
	}
	return questions, nil
}

func optionalString(value any) string {
	if value == nil {
		return ""
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func isEmptyValue(value any) bool {
	if value == nil {
		return true
	}
	text, ok := value.(string)
	return ok && strings.TrimSpace(text) == ""
}
