package eval

const (
	minTrimChunks = 1
	minTrimChars  = 100
)

// Trim bounds the retrieval context sent to the scorer: at most max(1, chunks)
// chunks, each cut to max(100, chars) characters. Disabled trimming returns a copy.
func Trim(context []string, chunks, chars int, disabled bool) []string {
	if disabled {
		return append([]string(nil), context...)
	}
	chunks = max(minTrimChunks, chunks)
	chars = max(minTrimChars, chars)
	if len(context) > chunks {
		context = context[:chunks]
	}
	trimmed := make([]string, 0, len(context))
	for _, chunk := range context {
		runes := []rune(chunk)
		if len(runes) > chars {
			chunk = string(runes[:chars])
		}
		trimmed = append(trimmed, chunk)
	}
	return trimmed
}
