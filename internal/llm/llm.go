// Package llm wraps the external generation service behind a small
// client whose failures are typed values, never panics, so the practice
// pipeline can deterministically fall back.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// FailureKind classifies why a generation attempt failed.
type FailureKind string

const (
	// FailureNoAPIKey means no credential was configured; no network
	// call is made in that case.
	FailureNoAPIKey FailureKind = "no_api_key"
	// FailureQuotaExceeded covers quota and billing rejections.
	FailureQuotaExceeded FailureKind = "quota_exceeded"
	// FailureTransport covers every other network or service error,
	// including timeouts.
	FailureTransport FailureKind = "transport_or_service_error"
)

// GenerationError is the typed failure returned by Client.Generate.
type GenerationError struct {
	Kind FailureKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator is the interface the pipeline depends on, so tests can
// substitute a double for the real service.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Config holds the explicit client configuration. The credential is
// injected here rather than read from the environment at load time.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = openai.GPT4oMini
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.Timeout == 0 {
		c.Timeout = 45 * time.Second
	}
	return c
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api *openai.Client
	cfg Config
}

// New creates a generation client. A client without an API key is still
// usable; every Generate call returns FailureNoAPIKey immediately.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api: openai.NewClientWithConfig(apiCfg),
		cfg: cfg,
	}
}

// Generate performs a single chat completion call. There is no internal
// retry loop; one practice generation means one service call.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", &GenerationError{Kind: FailureNoAPIKey, Err: errors.New("no API key configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		genErr := classifyAPIError(err)
		slog.Warn("generation call failed", "kind", genErr.Kind, "error", err)
		return "", genErr
	}

	if len(resp.Choices) == 0 {
		return "", &GenerationError{Kind: FailureTransport, Err: errors.New("service returned no choices")}
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("generation response", "chars", len(raw))
	return raw, nil
}

// quotaMarkers are the substrings that identify quota or billing
// failures in service error messages. The service exposes no structured
// code for these, so sniffing stays isolated here.
var quotaMarkers = []string{"quota", "billing", "exceeded"}

// classifyAPIError maps a service error onto a failure kind. Only the
// message of an actual service response is sniffed; transport errors
// like "context deadline exceeded" must not trip the "exceeded" marker.
func classifyAPIError(err error) *GenerationError {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return &GenerationError{Kind: FailureTransport, Err: err}
	}

	if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &GenerationError{Kind: FailureQuotaExceeded, Err: err}
	}
	lower := strings.ToLower(apiErr.Message)
	for _, marker := range quotaMarkers {
		if strings.Contains(lower, marker) {
			return &GenerationError{Kind: FailureQuotaExceeded, Err: err}
		}
	}
	return &GenerationError{Kind: FailureTransport, Err: err}
}
