package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidesmith/internal/config"
)

func TestAnthropicClient_CompleteWithSystem(t *testing.T) {
	var gotAuth, gotVersion string
	var gotReq anthropicRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "  local deck = 1  "}},
		})
	}))
	defer srv.Close()

	c := NewAnthropicClient(ClientConfig{APIKey: "key-123", BaseURL: srv.URL, Model: "claude-test"})
	out, err := c.CompleteWithSystem(context.Background(), "be terse", "write a deck")
	require.NoError(t, err)

	assert.Equal(t, "local deck = 1", out)
	assert.Equal(t, "key-123", gotAuth)
	assert.Equal(t, "2023-06-01", gotVersion)
	assert.Equal(t, "be terse", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestAnthropicClient_APIErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"type": "invalid_request_error", "message": "model overloaded"},
		})
	}))
	defer srv.Close()

	c := NewAnthropicClient(ClientConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := c.CompleteWithSystem(context.Background(), "", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestOpenAIClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "plan text"}},
			},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient(ClientConfig{APIKey: "k", BaseURL: srv.URL, Timeout: 10 * time.Second})
	out, err := c.Complete(context.Background(), "plan it")
	require.NoError(t, err)
	assert.Equal(t, "plan text", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIClient_NonOKFailsWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewOpenAIClient(ClientConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClients_RequireAPIKey(t *testing.T) {
	_, err := NewAnthropicClient(ClientConfig{}).Complete(context.Background(), "x")
	assert.Error(t, err)

	_, err = NewOpenAIClient(ClientConfig{}).Complete(context.Background(), "x")
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	c, err := NewFromConfig(config.LLMConfig{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)

	c, err = NewFromConfig(config.LLMConfig{Provider: "openai", APIKey: "k", Timeout: "30s"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	_, err = NewFromConfig(config.LLMConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}
