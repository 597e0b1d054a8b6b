package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chineduoko/exam-rag/internal/exam"
)

func testConfig(provider exam.LLMProvider) exam.LLMConfig {
	return exam.LLMConfig{
		Provider:    provider,
		ModelName:   "test-model",
		Temperature: 0.7,
		MaxTokens:   512,
	}
}

func TestChatCompletionExtractsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "generated text"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{}, nil)
	out, err := c.chatCompletion(context.Background(), srv.URL, "sk-test", "a prompt", testConfig(exam.ProviderOpenAI))
	require.NoError(t, err)
	assert.Equal(t, "generated text", out)
}

func TestChatCompletionMissingEnvelopeField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewClient(Options{}, nil)
	_, err := c.chatCompletion(context.Background(), srv.URL, "sk-test", "a prompt", testConfig(exam.ProviderOpenAI))
	require.Error(t, err)
	assert.ErrorIs(t, err, exam.ErrProviderCall)
}

func TestAnthropicHeadersAndEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		_, _ = w.Write([]byte(`{"content": [{"text": "claude says hi"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{AnthropicKey: "sk-ant"}, nil)
	body, err := c.post(context.Background(), srv.URL, map[string]string{
		"x-api-key":         "sk-ant",
		"anthropic-version": anthropicVersion,
	}, map[string]any{"model": "test"})
	require.NoError(t, err)
	assert.Contains(t, string(body), "claude says hi")
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		_, _ = w.Write([]byte(`{"response": "local answer"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{OllamaBaseURL: srv.URL}, nil)
	out, err := c.GenerateText(context.Background(), "a prompt", testConfig(exam.ProviderLocalOllama))
	require.NoError(t, err)
	assert.Equal(t, "local answer", out)
}

func TestLlamaCPPGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/completion", r.URL.Path)
		_, _ = w.Write([]byte(`{"content": "llama answer"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{LlamaCPPBaseURL: srv.URL}, nil)
	cfg := testConfig(exam.ProviderLocalLlamaCPP)
	cfg.ModelName = "" // llama.cpp serves a single model, none is named
	out, err := c.GenerateText(context.Background(), "a prompt", cfg)
	require.NoError(t, err)
	assert.Equal(t, "llama answer", out)
}

func TestGenerateTextMissingCredential(t *testing.T) {
	c := NewClient(Options{}, nil)
	ctx := context.Background()

	for _, provider := range []exam.LLMProvider{
		exam.ProviderOpenAI,
		exam.ProviderDeepSeek,
		exam.ProviderAnthropic,
		exam.ProviderGemini,
	} {
		_, err := c.GenerateText(ctx, "a prompt", testConfig(provider))
		require.Error(t, err, "provider %s", provider)
		assert.ErrorIs(t, err, exam.ErrConfiguration, "provider %s", provider)
	}
}

func TestGenerateTextMissingModel(t *testing.T) {
	c := NewClient(Options{OpenAIKey: "sk-test"}, nil)
	cfg := testConfig(exam.ProviderOpenAI)
	cfg.ModelName = ""

	_, err := c.GenerateText(context.Background(), "a prompt", cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, exam.ErrConfiguration)
}

func TestGenerateTextUnknownProvider(t *testing.T) {
	c := NewClient(Options{}, nil)
	_, err := c.GenerateText(context.Background(), "a prompt", testConfig("mystery"))
	require.Error(t, err)
	assert.ErrorIs(t, err, exam.ErrConfiguration)
}

func TestPostRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"response": "recovered"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{
		OllamaBaseURL: srv.URL,
		Retry:         RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
	}, nil)

	out, err := c.GenerateText(context.Background(), "a prompt", testConfig(exam.ProviderLocalOllama))
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPostDoesNotRetryTerminalStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Options{
		OllamaBaseURL: srv.URL,
		Retry:         RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
	}, nil)

	_, err := c.GenerateText(context.Background(), "a prompt", testConfig(exam.ProviderLocalOllama))
	require.Error(t, err)
	assert.ErrorIs(t, err, exam.ErrProviderCall)
	assert.Equal(t, int32(1), calls.Load(), "4xx other than 429 is terminal")
}

func TestPostExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Options{
		OllamaBaseURL: srv.URL,
		Retry:         RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond},
	}, nil)

	_, err := c.GenerateText(context.Background(), "a prompt", testConfig(exam.ProviderLocalOllama))
	require.Error(t, err)
	assert.ErrorIs(t, err, exam.ErrProviderCall)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"embedding": [0.25, -0.5, 1.0]}`))
	}))
	defer srv.Close()

	e := NewEmbeddings(nil, srv.URL, "nomic-embed-text", time.Second, RetryPolicy{})
	vec, err := e.Embed(context.Background(), exam.EmbeddingLocalOllama, "some text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1.0}, vec)
}

func TestOllamaEmbedRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embedding": [0.5]}`))
	}))
	defer srv.Close()

	e := NewEmbeddings(nil, srv.URL, "nomic-embed-text", time.Second,
		RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond})
	vec, err := e.Embed(context.Background(), exam.EmbeddingLocalOllama, "some text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, vec)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOllamaEmbedDoesNotRetryTerminalStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewEmbeddings(nil, srv.URL, "nomic-embed-text", time.Second,
		RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond})
	_, err := e.Embed(context.Background(), exam.EmbeddingLocalOllama, "some text")
	require.Error(t, err)
	assert.ErrorIs(t, err, exam.ErrProviderCall)
	assert.Equal(t, int32(1), calls.Load(), "4xx other than 429 is terminal")
}

func TestEmbedGeminiWithoutKey(t *testing.T) {
	e := NewEmbeddings(nil, "", "", time.Second, RetryPolicy{})
	_, err := e.Embed(context.Background(), exam.EmbeddingGemini, "some text")
	require.Error(t, err)
	assert.ErrorIs(t, err, exam.ErrConfiguration)
}

func TestEmbedUnknownProvider(t *testing.T) {
	e := NewEmbeddings(nil, "", "", time.Second, RetryPolicy{})
	_, err := e.Embed(context.Background(), "word2vec", "some text")
	require.Error(t, err)
	assert.ErrorIs(t, err, exam.ErrConfiguration)
}
