package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// RAGAnswer is a canned backend reply for one question.
type RAGAnswer struct {
	Answer           string   `json:"answer"`
	RetrievalContext []string `json:"retrieval_context"`
}

// RAGServerConfig scripts the fake RAG backend.
type RAGServerConfig struct {
	// Answers maps trimmed question text to a reply.
	Answers map[string]RAGAnswer
	// Default is returned for questions missing from Answers.
	Default RAGAnswer
	// HealthStatus is returned by the health endpoints; zero means 200.
	HealthStatus int
	// FailAsks makes the first N ask calls return 503.
	FailAsks int
	// APIKey, when set, is required as a bearer token.
	APIKey string
}

// RAGServer is a running fake backend that records its traffic.
type RAGServer struct {
	URL string

	mu        sync.Mutex
	cfg       RAGServerConfig
	uploads   []string
	asks      map[string]int
	askTotal  int
	sessionNo int
	server    *httptest.Server
}

type askRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

// StartRAGServer launches an httptest server with upload, ask and health endpoints.
func StartRAGServer(t testing.TB, cfg RAGServerConfig) *RAGServer {
	t.Helper()
	srv := &RAGServer{cfg: cfg, asks: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.handleHealth)
	mux.HandleFunc("/docs", srv.handleHealth)
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/upload", srv.handleUpload)
	mux.HandleFunc("/ask", srv.handleAsk)
	srv.server = httptest.NewServer(mux)
	srv.URL = srv.server.URL
	t.Cleanup(srv.server.Close)
	return srv
}

// Close stops the server early.
func (s *RAGServer) Close() {
	s.server.Close()
}

// Uploads returns the file names uploaded so far.
func (s *RAGServer) Uploads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uploads...)
}

// AskCount returns how many ask calls carried the question.
func (s *RAGServer) AskCount(question string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asks[strings.TrimSpace(question)]
}

// TotalAsks returns the number of ask calls received.
func (s *RAGServer) TotalAsks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.askTotal
}

func (s *RAGServer) authorized(w http.ResponseWriter, r *http.Request) bool {
	if s.cfg.APIKey == "" {
		return true
	}
	if r.Header.Get("Authorization") == "Bearer "+s.cfg.APIKey {
		return true
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
	return false
}

func (s *RAGServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.cfg.HealthStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func (s *RAGServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(w, r) {
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.sessionNo++
	sessionID := fmt.Sprintf("session-%d", s.sessionNo)
	s.uploads = append(s.uploads, header.Filename)
	s.mu.Unlock()
	writeJSON(w, map[string]string{"session_id": sessionID})
}

func (s *RAGServer) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(w, r) {
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	question := strings.TrimSpace(req.Question)
	s.mu.Lock()
	s.askTotal++
	s.asks[question]++
	fail := s.askTotal <= s.cfg.FailAsks
	s.mu.Unlock()
	if fail {
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}
	answer, ok := s.cfg.Answers[question]
	if !ok {
		answer = s.cfg.Default
	}
	writeJSON(w, answer)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
