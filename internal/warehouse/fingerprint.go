package warehouse

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// QuestionKey returns a stable fingerprint for a question so the same question
// can be followed across runs and datasets.
func QuestionKey(question, expectedAnswer string) string {
	payload, _ := json.Marshal(map[string]string{
		"expected_answer": strings.TrimSpace(expectedAnswer),
		"question":        strings.Join(strings.Fields(question), " "),
	})
	hash := sha256.Sum256(payload)
	return hex.EncodeToString(hash[:])
}
