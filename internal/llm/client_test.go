package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/MimeLyc/srt-editor/internal/translator"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okResponse = `{
	"id": "test-id",
	"object": "chat.completion",
	"created": 1234567890,
	"model": "test-model",
	"choices": [{
		"index": 0,
		"message": {
			"role": "assistant",
			"content": "Bonjour\nle monde"
		},
		"finish_reason": "stop"
	}],
	"usage": {
		"prompt_tokens": 10,
		"completion_tokens": 20,
		"total_tokens": 30
	}
}`

func testConfig(url string) *Config {
	return &Config{
		APIKey:      "server-key",
		APIURL:      url,
		Model:       "test-model",
		MaxTokens:   1000,
		Temperature: 0.3,
		Timeout:     30,
	}
}

func TestNewClient(t *testing.T) {
	config := testConfig("https://api.example.com")

	client, err := NewClient(config)
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, config, client.config)
	assert.Equal(t, config.APIURL, client.BaseURL())
	assert.NotNil(t, client.httpClient)

	_, err = NewClient(&Config{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestConfig_APIKeyOptional(t *testing.T) {
	config := testConfig("https://api.example.com")
	config.APIKey = ""
	require.NoError(t, config.Validate())
}

func TestClient_SetBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client, err := NewClient(testConfig("http://127.0.0.1:1"))
	require.NoError(t, err)
	client.SetBaseURL(server.URL)

	text, err := client.Complete(context.Background(), "Hello", translator.ModelRef{Model: "m"}, "k")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour\nle monde", text)
}

func TestClientWithMockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer server-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	response, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "Hello"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "test-id", response.ID)
	assert.Len(t, response.Choices, 1)
	assert.Equal(t, 30, response.Usage.TotalTokens)
}

func TestClient_Complete_UsesRequestCredentialAndModel(t *testing.T) {
	var got ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "Translate...",
		translator.ModelRef{Provider: "openai", Model: "gpt-4o-mini"}, "user-key")
	require.NoError(t, err)

	assert.Equal(t, "Bonjour\nle monde", text)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "Translate...", got.Messages[0].Content)
	assert.Equal(t, 1000, got.MaxTokens)
	assert.InDelta(t, 0.3, got.Temperature, 1e-9)
}

func TestClient_Complete_UnauthorizedWrapsCredentialRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API key","type":"authentication_error","code":"401"}}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "p", translator.ModelRef{Model: "m"}, "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, translator.ErrCredentialRejected)
	assert.Contains(t, err.Error(), "401")
}

func TestClientErrorHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	response, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "Hello"}}, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, translator.ErrCredentialRejected)
	assert.Contains(t, err.Error(), "Rate limit reached")
	require.NotNil(t, response)
	require.NotNil(t, response.Error)
	assert.Equal(t, "rate_limit_exceeded", response.Error.Code)
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "Hello", translator.ModelRef{Model: "m"}, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "upstream down")
}

func TestInvalidJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "Hello", translator.ModelRef{Model: "m"}, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestClient_Complete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "Hello", translator.ModelRef{Model: "m"}, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestClientConcurrentRequests(t *testing.T) {
	var mu sync.Mutex
	keys := make(map[string]int)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys[r.Header.Get("Authorization")]++
		mu.Unlock()
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "a"
			if i%2 == 1 {
				key = "b"
			}
			_, err := client.Complete(context.Background(), "p", translator.ModelRef{Model: "m"}, key)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, keys["Bearer a"])
	assert.Equal(t, 5, keys["Bearer b"])
}

func TestClient_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Complete(ctx, "p", translator.ModelRef{Model: "m"}, "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestIntegration_Translate talks to a real endpoint.
// Skipped unless LLM_API_KEY is set (optionally via ./.env).
func TestIntegration_Translate(t *testing.T) {
	_ = godotenv.Load("./.env")
	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		t.Skip("Set LLM_API_KEY environment variable to run this test")
	}

	apiURL := os.Getenv("LLM_API_URL")
	if apiURL == "" {
		apiURL = "https://api.openai.com/v1"
	}
	model := os.Getenv("LLM_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	client, err := NewClient(testConfig(apiURL))
	require.NoError(t, err)

	h := translator.NewHandler(client, translator.ModelRef{Provider: "openai", Model: model})
	text, err := h.Translate(context.Background(), translator.Request{
		Text:           "Good morning\nmy friend",
		TargetLanguage: "es",
	}, apiKey)
	require.NoError(t, err)
	assert.Equal(t, 2, len(strings.Split(strings.TrimSpace(text), "\n")))
}
