package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/card-expenses/internal/parsererror"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"transactions\":[]}"}}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(srv.URL, "secret", time.Second)
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), Request{
		Model:       "gpt-4o-mini",
		Messages:    []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}},
		Temperature: 0.1,
		MaxTokens:   512,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"transactions":[]}`, out)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 512, got.MaxTokens)
	require.Len(t, got.Messages, 2)
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{name: "server error", status: http.StatusBadGateway, body: "upstream down", wantStatus: http.StatusBadGateway},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":{"message":"slow down"}}`, wantStatus: http.StatusTooManyRequests},
		{name: "empty choices", status: http.StatusOK, body: `{"choices":[]}`, wantStatus: http.StatusOK},
		{name: "api error payload", status: http.StatusOK, body: `{"error":{"message":"bad model"}}`, wantStatus: http.StatusOK},
		{name: "garbage body", status: http.StatusOK, body: `<html>`, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewOpenAIClient(srv.URL, "k", time.Second)
			require.NoError(t, err)

			_, err = c.Complete(context.Background(), Request{Model: "m"})
			var llmErr *parsererror.LLMError
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, tt.wantStatus, llmErr.StatusCode)
		})
	}
}

func TestNew(t *testing.T) {
	_, err := New(context.Background(), ClientConfig{Provider: ProviderOpenAI, Endpoint: "https://example.test/v1/chat/completions"})
	assert.ErrorContains(t, err, "api key is required")

	_, err = New(context.Background(), ClientConfig{Provider: "mystery", APIKey: "k"})
	assert.ErrorContains(t, err, "unknown provider")

	_, err = New(context.Background(), ClientConfig{Provider: ProviderOpenAI, APIKey: "k", Endpoint: "ftp://nope"})
	assert.ErrorContains(t, err, "http(s) URL")

	c, err := New(context.Background(), ClientConfig{Provider: ProviderOpenAI, APIKey: "k", Endpoint: "https://example.test/v1/chat/completions"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)
}
