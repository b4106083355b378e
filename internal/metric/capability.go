package metric

import "strings"

// Kind tags how a metric is scored.
type Kind int

const (
	// Native metrics have a dedicated scoring prompt.
	Native Kind = iota
	// FallbackGeneral metrics are graded by a general LLM rubric.
	FallbackGeneral
)

func (k Kind) String() string {
	if k == FallbackGeneral {
		return "fallback_general"
	}
	return "native"
}

// MarshalText renders the kind in artifacts.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a persisted kind.
func (k *Kind) UnmarshalText(text []byte) error {
	if string(text) == "fallback_general" {
		*k = FallbackGeneral
	} else {
		*k = Native
	}
	return nil
}

// Param names a test-case field a metric reads.
type Param string

// Test-case fields passed to scorers.
const (
	ParamInput            Param = "input"
	ParamActualOutput     Param = "actual_output"
	ParamExpectedOutput   Param = "expected_output"
	ParamRetrievalContext Param = "retrieval_context"
)

// Capability describes how to score one metric.
type Capability struct {
	Kind   Kind
	Metric string
	// Label is the human-readable rubric name for fallback metrics.
	Label    string
	Criteria []string
	Params   []Param
}

var contextRelevanceCriteria = []string{
	"Review the user question and the retrieval context.",
	"Decide whether the retrieval context is relevant to answering the question.",
	"Assign a score from 0 to 1 where 1 means highly relevant and 0 means irrelevant.",
	"Provide a short reason for the score.",
}

var completenessCriteria = []string{
	"Check whether the response answers all parts of the user question.",
	"Check whether important specifics asked in the question are present.",
	"Give a score from 0 to 1 where 1 means fully complete.",
	"Provide a short reason for the score.",
}

// Lookup resolves a metric name to its scoring capability. Unknown names fall back
// to a general rubric named after the metric instead of failing.
func Lookup(name string, costOptimized bool) Capability {
	name = Normalize(name)
	switch name {
	case ContextualPrecision, ContextualRecall:
		return Capability{Kind: Native, Metric: name, Params: []Param{ParamInput, ParamActualOutput, ParamExpectedOutput, ParamRetrievalContext}}
	case AnswerRelevancy:
		return Capability{Kind: Native, Metric: name, Params: []Param{ParamInput, ParamActualOutput}}
	case Faithfulness:
		return Capability{Kind: Native, Metric: name, Params: []Param{ParamActualOutput, ParamRetrievalContext}}
	case ContextualRelevancy:
		if costOptimized {
			return Capability{
				Kind:     FallbackGeneral,
				Metric:   name,
				Label:    "Context Relevance",
				Criteria: contextRelevanceCriteria,
				Params:   []Param{ParamInput, ParamRetrievalContext},
			}
		}
		return Capability{Kind: Native, Metric: name, Params: []Param{ParamInput, ParamRetrievalContext}}
	case Completeness:
		return Capability{
			Kind:     FallbackGeneral,
			Metric:   name,
			Label:    "Completeness",
			Criteria: completenessCriteria,
			Params:   []Param{ParamInput, ParamActualOutput},
		}
	default:
		label := strings.ReplaceAll(name, "_", " ")
		return Capability{
			Kind:   FallbackGeneral,
			Metric: name,
			Label:  label,
			Criteria: []string{
				"Review the user question, the response and any expected answer or retrieval context.",
				"Judge how well the response satisfies the quality named \"" + label + "\".",
				"Assign a score from 0 to 1 where 1 fully satisfies it and 0 does not at all.",
				"Provide a short reason for the score.",
			},
			Params: []Param{ParamInput, ParamActualOutput, ParamExpectedOutput, ParamRetrievalContext},
		}
	}
}
