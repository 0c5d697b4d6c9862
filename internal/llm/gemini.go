package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"fjacquet/card-expenses/internal/parsererror"
)

// GeminiClient sends completions through the Gemini API. System messages are
// sent as a leading text part because the model has no chat roles here.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient opens a Gemini client. Close must be called when done.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

func (g *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	model := g.client.GenerativeModel(req.Model)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens)) // #nosec G115 -- bounded by config validation
	}

	parts := make([]genai.Part, 0, len(req.Messages))
	for _, m := range req.Messages {
		parts = append(parts, genai.Text(m.Content))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", &parsererror.LLMError{Provider: ProviderGemini, Err: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &parsererror.LLMError{Provider: ProviderGemini, Err: errors.New("no candidates returned")}
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", &parsererror.LLMError{Provider: ProviderGemini, Err: errors.New("empty completion")}
	}
	return b.String(), nil
}

// Close releases the underlying connection.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}
