// Package judge scores evaluation test cases with an OpenAI-compatible chat model.
package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"rageval/internal/eval"
	"rageval/internal/spec"
)

const defaultScoreTokens = 512

var scorePattern = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+`)

// ErrMissingAPIKey is returned when no judge credentials are configured.
var ErrMissingAPIKey = errors.New("judge api key is not set")

// Config configures a Judge.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
	MaxTokens   int
}

// Judge implements eval.Scorer with chat completions.
type Judge struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	maxTokens   int
}

// New builds a Judge.
func New(cfg Config) (*Judge, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientConfig.BaseURL = strings.TrimRight(base, "/")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultScoreTokens
	}
	return &Judge{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		maxTokens:   maxTokens,
	}, nil
}

// FromSettings builds a Judge from resolved settings, reading the key from the
// environment variable named by judge.api_key_env.
func FromSettings(cfg spec.Config, lookup func(string) (string, bool)) (*Judge, error) {
	key, _ := lookup(cfg.Judge.APIKeyEnv)
	judge, err := New(Config{
		BaseURL:     cfg.Judge.BaseURL,
		APIKey:      key,
		Model:       cfg.Model,
		Temperature: cfg.Judge.Temperature,
		Timeout:     time.Duration(cfg.Judge.TimeoutSeconds * float64(time.Second)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set %s)", err, cfg.Judge.APIKeyEnv)
	}
	return judge, nil
}

// Score implements eval.Scorer.
func (j *Judge) Score(ctx context.Context, req eval.Request) (eval.Score, error) {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       j.model,
		Temperature: j.temperature,
		MaxTokens:   j.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
	})
	if err != nil {
		return eval.Score{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return eval.Score{}, eval.Transient(errors.New("judge returned no choices"))
	}
	return ParseVerdict(resp.Choices[0].Message.Content)
}

// classify marks rate limits, server errors and timeouts as transient.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && retryableStatus(apiErr.HTTPStatusCode) {
		return eval.Transient(err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && retryableStatus(reqErr.HTTPStatusCode) {
		return eval.Transient(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return eval.Transient(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return eval.Transient(err)
	}
	return err
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

type verdict struct {
	Score  json.RawMessage `json:"score"`
	Reason string          `json:"reason"`
}

// ParseVerdict reads a judge reply. JSON objects with score and reason are
// preferred; otherwise the first number in the text is the score.
func ParseVerdict(text string) (eval.Score, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	if start, end := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}"); start >= 0 && end > start {
		var v verdict
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &v); err == nil && len(v.Score) > 0 {
			value, err := parseScore(strings.Trim(string(v.Score), `"`))
			if err != nil {
				return eval.Score{}, err
			}
			return eval.Score{Value: value, Reason: strings.TrimSpace(v.Reason)}, nil
		}
	}
	value, err := parseScore(trimmed)
	if err != nil {
		return eval.Score{}, err
	}
	return eval.Score{Value: value}, nil
}

func parseScore(text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, fmt.Errorf("empty judge response")
	}
	match := scorePattern.FindString(trimmed)
	if match == "" {
		return 0, fmt.Errorf("no numeric score in response: %q", trimmed)
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score %q: %w", match, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("score out of range: %v", val)
	}
	if val > 1 {
		if val <= 100 && strings.Contains(trimmed, "%") {
			val = val / 100
		} else {
			return 0, fmt.Errorf("score out of range: %v", val)
		}
	}
	return val, nil
}

var _ eval.Scorer = (*Judge)(nil)
