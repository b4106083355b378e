package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rageval/internal/retry"
	"rageval/internal/spec"
	"rageval/internal/telemetry"
)

// ClientOptions wires optional collaborators into a Client.
type ClientOptions struct {
	HTTPClient *http.Client
	Metrics    *telemetry.Metrics
	Logger     *slog.Logger
}

// Client is an HTTP implementation of Backend.
type Client struct {
	cfg     spec.BackendConfig
	http    *http.Client
	retry   retry.Config
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// NewClient builds a client for the configured backend.
func NewClient(cfg spec.BackendConfig, opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds * float64(time.Second))}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		cfg:  cfg,
		http: httpClient,
		retry: retry.Config{
			MaxAttempts:  cfg.Retries + 1,
			InitialDelay: time.Duration(cfg.BackoffSeconds * float64(time.Second)),
			MaxDelay:     30 * time.Second,
			Factor:       2,
		},
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// url joins an endpoint onto the base URL unless it is already absolute.
func (c *Client) url(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.cfg.BaseURL + endpoint
}

// CheckReachable probes the base URL and health endpoints. Any response below
// 500 counts as reachable.
func (c *Client) CheckReachable(ctx context.Context) error {
	endpoints := c.cfg.HealthEndpoints
	if len(endpoints) == 0 {
		endpoints = []string{""}
	}
	var failures []string
	for _, endpoint := range endpoints {
		target := c.url(endpoint)
		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", target, err))
			continue
		}
		c.authorize(req)
		resp, err := c.http.Do(req)
		if err != nil {
			c.metrics.BackendCall("health", "error", time.Since(start))
			failures = append(failures, fmt.Sprintf("%s: %v", target, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode < http.StatusInternalServerError {
			c.metrics.BackendCall("health", "ok", time.Since(start))
			c.logger.Debug("backend reachable", "url", target, "status", resp.StatusCode)
			return nil
		}
		c.metrics.BackendCall("health", "error", time.Since(start))
		failures = append(failures, fmt.Sprintf("%s: status %d", target, resp.StatusCode))
	}
	return &UnreachableError{BaseURL: c.cfg.BaseURL, Failures: failures}
}

// Upload sends a document as multipart field "file" and returns the session id.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document %q: %w", path, err)
	}
	var payload struct {
		SessionID string `json:"session_id"`
	}
	err = c.do(ctx, "upload", func() (*http.Request, error) {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, err := writer.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(content); err != nil {
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(c.cfg.UploadEndpoint), &body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req, nil
	}, &payload)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		return "", fmt.Errorf("upload %q: response does not contain session_id", path)
	}
	return payload.SessionID, nil
}

// Ask posts a question against a session.
func (c *Client) Ask(ctx context.Context, sessionID, question string) (Answer, error) {
	data, err := json.Marshal(map[string]string{"session_id": sessionID, "question": question})
	if err != nil {
		return Answer{}, fmt.Errorf("encode ask request: %w", err)
	}
	var payload struct {
		Answer           string            `json:"answer"`
		RetrievalContext []json.RawMessage `json:"retrieval_context"`
	}
	err = c.do(ctx, "ask", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(c.cfg.AskEndpoint), bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, &payload)
	if err != nil {
		return Answer{}, err
	}
	answer := Answer{Answer: payload.Answer, RetrievalContext: make([]string, 0, len(payload.RetrievalContext))}
	for _, raw := range payload.RetrievalContext {
		answer.RetrievalContext = append(answer.RetrievalContext, chunkText(raw))
	}
	return answer, nil
}

// chunkText renders a retrieval chunk; non-string chunks keep their JSON form.
func chunkText(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return string(raw)
}

// do sends a request with bounded retries and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, op string, build func() (*http.Request, error), out any) error {
	result := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		start := time.Now()
		req, err := build()
		if err != nil {
			return retry.Permanent(fmt.Errorf("%s: build request: %w", op, err))
		}
		c.authorize(req)
		resp, err := c.http.Do(req)
		if err != nil {
			c.metrics.BackendCall(op, "error", time.Since(start))
			return fmt.Errorf("%s: %w", op, err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			c.metrics.BackendCall(op, "error", time.Since(start))
			return fmt.Errorf("%s: read response: %w", op, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.metrics.BackendCall(op, "error", time.Since(start))
			statusErr := &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
			if statusErr.Transient() {
				return statusErr
			}
			return retry.Permanent(statusErr)
		}
		c.metrics.BackendCall(op, "ok", time.Since(start))
		if err := json.Unmarshal(body, out); err != nil {
			return retry.Permanent(fmt.Errorf("%s: decode response: %w", op, err))
		}
		return nil
	})
	if result.Err != nil {
		c.logger.Warn("backend call failed", "op", op, "attempts", result.Attempts, "error", result.Err)
		var permanent *retry.PermanentError
		if errors.As(result.Err, &permanent) {
			return permanent.Err
		}
		return result.Err
	}
	if result.Attempts > 1 {
		c.logger.Debug("backend call recovered", "op", op, "attempts", result.Attempts)
	}
	return nil
}

// authorize adds the bearer token when configured.
func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}
