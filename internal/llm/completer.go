// Package llm wraps the chat-completion services used to read statements.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

//go:generate mockgen -destination=mocks/mock_completer.go -source=completer.go Completer

// Completer sends one prompt and returns the raw text of the reply.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles understood by every provider.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Request is a provider-neutral completion request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ClientConfig carries everything a provider client needs. It is built from
// configuration; nothing here has a default secret.
type ClientConfig struct {
	Provider string
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// New builds the client for cfg.Provider.
func New(ctx context.Context, cfg ClientConfig) (Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm: api key is required")
	}
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg.Endpoint, cfg.APIKey, cfg.Timeout)
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg.APIKey)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
