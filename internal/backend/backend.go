// Package backend talks to the RAG service under evaluation and reuses its
// replies within one session.
package backend

import "context"

// Answer is the backend's reply to one question.
type Answer struct {
	Answer           string   `json:"answer"`
	RetrievalContext []string `json:"retrieval_context"`
}

// clone returns a copy that does not share the context slice.
func (a Answer) clone() Answer {
	a.RetrievalContext = append([]string(nil), a.RetrievalContext...)
	return a
}

// Backend uploads documents and answers questions against an uploaded session.
type Backend interface {
	Upload(ctx context.Context, path string) (string, error)
	Ask(ctx context.Context, sessionID, question string) (Answer, error)
}
