package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fjacquet/card-expenses/internal/parsererror"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewOpenAIClient validates the endpoint and builds a client.
func NewOpenAIClient(endpoint, apiKey string, timeout time.Duration) (*OpenAIClient, error) {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("llm: endpoint must be an http(s) URL, got %q", endpoint)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{endpoint: endpoint, apiKey: apiKey, http: &http.Client{Timeout: timeout}}, nil
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete posts the request. Every failure comes back as a
// *parsererror.LLMError so the orchestrator can retry it.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &parsererror.LLMError{Provider: ProviderOpenAI, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", &parsererror.LLMError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &parsererror.LLMError{
			Provider:   ProviderOpenAI,
			StatusCode: resp.StatusCode,
			Err:        errors.New(snippet(string(raw))),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &parsererror.LLMError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Err: fmt.Errorf("undecodable body: %w", err)}
	}
	if parsed.Error != nil {
		return "", &parsererror.LLMError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Err: errors.New(parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", &parsererror.LLMError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Err: errors.New("empty completion")}
	}
	return parsed.Choices[0].Message.Content, nil
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
