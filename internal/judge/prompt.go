package judge

import (
	"fmt"
	"strings"

	"rageval/internal/eval"
	"rageval/internal/metric"
)

const systemPrompt = "You are a strict evaluator of retrieval-augmented answers. " +
	"Reply with a JSON object {\"score\": <number between 0 and 1>, \"reason\": <string>} and nothing else."

var nativeInstructions = map[string]string{
	metric.ContextualPrecision: "Judge whether the retrieval context chunks relevant to the expected answer are ranked above irrelevant ones. " +
		"1 means every relevant chunk comes first.",
	metric.ContextualRecall: "Judge how much of the expected answer can be attributed to the retrieval context. " +
		"1 means every statement in the expected answer is supported by the context.",
	metric.ContextualRelevancy: "Judge what fraction of the retrieval context is relevant to the question. " +
		"1 means all of it is relevant.",
	metric.AnswerRelevancy: "Judge how directly the response addresses the question. " +
		"1 means every statement in the response is relevant to the question.",
	metric.Faithfulness: "Extract the factual claims of the response and check each against the retrieval context. " +
		"1 means no claim contradicts or goes beyond the context.",
}

// BuildPrompt renders the user message for one test case, including only the
// fields the metric reads.
func BuildPrompt(req eval.Request) string {
	capability := req.Capability
	var sb strings.Builder

	switch capability.Kind {
	case metric.FallbackGeneral:
		fmt.Fprintf(&sb, "Metric: %s\n", capability.Label)
		sb.WriteString("Evaluation steps:\n")
		for i, step := range capability.Criteria {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
		}
	default:
		fmt.Fprintf(&sb, "Metric: %s\n", capability.Metric)
		sb.WriteString(nativeInstructions[capability.Metric])
		sb.WriteString("\n")
		if capability.Metric == metric.Faithfulness && req.TruthsLimit > 0 {
			fmt.Fprintf(&sb, "Extract at most %d truths from the retrieval context.\n", req.TruthsLimit)
		}
	}
	sb.WriteString("\n")

	for _, param := range capability.Params {
		switch param {
		case metric.ParamInput:
			fmt.Fprintf(&sb, "Question:\n%s\n\n", req.Question)
		case metric.ParamActualOutput:
			fmt.Fprintf(&sb, "Response:\n%s\n\n", req.Answer)
		case metric.ParamExpectedOutput:
			fmt.Fprintf(&sb, "Expected answer:\n%s\n\n", req.Expected())
		case metric.ParamRetrievalContext:
			sb.WriteString("Retrieval context:\n")
			if len(req.RetrievalContext) == 0 {
				sb.WriteString("(none)\n")
			}
			for i, chunk := range req.RetrievalContext {
				fmt.Fprintf(&sb, "[%d] %s\n", i+1, chunk)
			}
			sb.WriteString("\n")
		}
	}
	if req.IncludeReason {
		sb.WriteString("Give a one-sentence reason.\n")
	} else {
		sb.WriteString("Leave reason empty.\n")
	}
	return sb.String()
}
