package question

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a dataset by extension: .json, .yaml/.yml, .csv, .txt or .md.
func LoadFile(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	records, err := parseRecords(data, path)
	if err != nil {
		return nil, err
	}
	return FromRecords(records, path)
}

func parseRecords(data []byte, path string) ([]Record, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return parseJSONRecords(data, path)
	case ".yaml", ".yml":
		return parseYAMLRecords(data)
	case ".csv":
		return parseCSVRecords(data)
	case ".txt", ".md":
		return parseLineRecords(data), nil
	default:
		return nil, fmt.Errorf("unsupported dataset format %q: %s", ext, path)
	}
}

func parseJSONRecords(data []byte, path string) ([]Record, error) {
	var doc any
	decoder := json.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("parse json: multiple documents are not supported")
		}
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if err := validateSchema(doc, path); err != nil {
		return nil, err
	}
	return recordsFromDocument(doc)
}

func parseYAMLRecords(data []byte) ([]Record, error) {
	var doc any
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("parse yaml: multiple documents are not supported")
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return recordsFromDocument(doc)
}

// recordsFromDocument accepts a list of rows or an object with a "questions" list.
func recordsFromDocument(doc any) ([]Record, error) {
	if object, ok := doc.(map[string]any); ok {
		doc = object["questions"]
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("dataset must be a list or contain a \"questions\" list")
	}
	records := make([]Record, 0, len(items))
	for i, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("dataset row %d is not an object", i+1)
		}
		records = append(records, Record(row))
	}
	return records, nil
}

func parseCSVRecords(data []byte) ([]Record, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return recordsFromTable(rows[0], rows[1:])
}

func parseLineRecords(data []byte) []Record {
	var records []Record
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		records = append(records, Record{"question": line})
	}
	return records
}

// recordsFromTable zips a header row with value rows.
func recordsFromTable(headers []string, rows [][]string) ([]Record, error) {
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(headers) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", i+1, len(row), len(headers))
		}
		record := Record{}
		for col, header := range headers {
			record[strings.TrimSpace(header)] = strings.TrimSpace(row[col])
		}
		records = append(records, record)
	}
	return records, nil
}
