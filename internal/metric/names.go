// Package metric resolves metric names, compiles scenario tags into metric
// selections and plans which metrics run against which dataset rows.
package metric

import "strings"

// Canonical metric names.
const (
	ContextualPrecision = "contextual_precision"
	ContextualRecall    = "contextual_recall"
	ContextualRelevancy = "contextual_relevancy"
	AnswerRelevancy     = "answer_relevancy"
	Faithfulness        = "faithfulness"
	Completeness        = "completeness"
)

// Layer tags group metrics by what they measure.
const (
	// Layer1 covers retrieval quality.
	Layer1 = "layer1"
	// Layer2 covers generation quality.
	Layer2 = "layer2"
)

// order is the canonical evaluation and reporting order.
var order = []string{
	ContextualPrecision,
	ContextualRecall,
	ContextualRelevancy,
	AnswerRelevancy,
	Faithfulness,
	Completeness,
}

var layers = map[string]string{
	ContextualPrecision: Layer1,
	ContextualRecall:    Layer1,
	ContextualRelevancy: Layer1,
	AnswerRelevancy:     Layer2,
	Faithfulness:        Layer2,
	Completeness:        Layer2,
}

var aliases = map[string]string{
	"context_precision":   ContextualPrecision,
	"contextualprecision": ContextualPrecision,
	"context_recall":      ContextualRecall,
	"contextualrecall":    ContextualRecall,
	"context_relevance":   ContextualRelevancy,
	"context_relevancy":   ContextualRelevancy,
	"contextualrelevancy": ContextualRelevancy,
	"answerrelevancy":     AnswerRelevancy,
	"answer_relevance":    AnswerRelevancy,
	"faithful":            Faithfulness,
}

// Normalize lowercases a name, maps '-' and spaces to '_', strips a leading '@'
// and resolves aliases.
func Normalize(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "@")
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	return key
}

// Names returns the native metrics in canonical order.
func Names() []string {
	return append([]string(nil), order...)
}

// Known reports whether name is a native metric after normalization.
func Known(name string) bool {
	_, ok := layers[Normalize(name)]
	return ok
}

// LayerOf returns the layer tag for a native metric, or "" when unknown.
func LayerOf(name string) string {
	return layers[Normalize(name)]
}

// IsLayer reports whether a normalized tag names a layer.
func IsLayer(tag string) bool {
	return tag == Layer1 || tag == Layer2
}

// rank orders native metrics canonically; unknown metrics sort last.
func rank(name string) int {
	for i, candidate := range order {
		if candidate == name {
			return i
		}
	}
	return len(order)
}
