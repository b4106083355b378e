package question

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveReference finds a dataset by absolute path, relative to each search dir,
// or as a bare name with a .json/.yaml/.yml/.csv extension under each search dir.
func ResolveReference(ref string, searchDirs ...string) (string, error) {
	if filepath.IsAbs(ref) {
		if fileExists(ref) {
			return ref, nil
		}
		return "", fmt.Errorf("dataset reference not found: %s", ref)
	}
	for _, dir := range searchDirs {
		candidate := filepath.Join(dir, ref)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	for _, dir := range searchDirs {
		for _, ext := range []string{".json", ".yaml", ".yml", ".csv"} {
			candidate := filepath.Join(dir, ref+ext)
			if fileExists(candidate) {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("dataset reference not found: %s", ref)
}

// Load resolves a reference and loads it, expanding nested dataset_file rows.
func Load(ref string, searchDirs ...string) ([]Question, error) {
	path, err := ResolveReference(ref, searchDirs...)
	if err != nil {
		return nil, err
	}
	questions, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return ExpandReferences(questions, append([]string{filepath.Dir(path)}, searchDirs...)...)
}

// ExpandReferences replaces rows that point at another dataset with that dataset's rows.
// Nesting is one level deep.
func ExpandReferences(questions []Question, searchDirs ...string) ([]Question, error) {
	expanded := make([]Question, 0, len(questions))
	for _, q := range questions {
		if q.DatasetFile == "" {
			expanded = append(expanded, q)
			continue
		}
		path, err := ResolveReference(q.DatasetFile, searchDirs...)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", q.ID, err)
		}
		nested, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		expanded = append(expanded, nested...)
	}
	seen := map[string]struct{}{}
	for _, q := range expanded {
		if _, ok := seen[q.ID]; ok {
			return nil, &ValidationError{Source: "expanded dataset", Issues: []Issue{{Field: "id", Message: fmt.Sprintf("duplicate id %q", q.ID)}}}
		}
		seen[q.ID] = struct{}{}
	}
	return expanded, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
