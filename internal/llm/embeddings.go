package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chineduoko/exam-rag/internal/exam"
)

// Embeddings dispatches embed calls to the selected backend: Gemini
// (credentialed) or a local Ollama instance (no credential). There is
// no fallback between the two.
type Embeddings struct {
	gemini        *GeminiClient // nil when no Gemini key is configured
	ollamaBaseURL string
	ollamaModel   string
	retry         RetryPolicy
	http          *http.Client
}

func NewEmbeddings(gemini *GeminiClient, ollamaBaseURL, ollamaModel string, timeout time.Duration, retry RetryPolicy) *Embeddings {
	if ollamaBaseURL == "" {
		ollamaBaseURL = "http://localhost:11434"
	}
	if ollamaModel == "" {
		ollamaModel = "nomic-embed-text"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Embeddings{
		gemini:        gemini,
		ollamaBaseURL: ollamaBaseURL,
		ollamaModel:   ollamaModel,
		retry:         retry,
		http:          &http.Client{Timeout: timeout},
	}
}

func (e *Embeddings) Embed(ctx context.Context, provider exam.EmbeddingProvider, text string) ([]float32, error) {
	switch provider {
	case exam.EmbeddingGemini:
		if e.gemini == nil {
			return nil, fmt.Errorf("%w: missing GOOGLE_API_KEY or GEMINI_API_KEY", exam.ErrConfiguration)
		}
		return e.gemini.Embed(ctx, text)

	case exam.EmbeddingLocalOllama:
		return e.ollamaEmbed(ctx, text)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", exam.ErrConfiguration, provider)
	}
}

func (e *Embeddings) ollamaEmbed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]any{
		"model":  e.ollamaModel,
		"prompt": text,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %v", exam.ErrProviderCall, err)
	}

	endpoint := strings.TrimRight(e.ollamaBaseURL, "/") + "/api/embeddings"

	var data []byte
	err = e.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("%w: build request: %v", exam.ErrProviderCall, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.http.Do(req)
		if err != nil {
			return transient(fmt.Errorf("%w: ollama embed: %v", exam.ErrProviderCall, err))
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return transient(fmt.Errorf("%w: read response: %v", exam.ErrProviderCall, err))
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			err := fmt.Errorf("%w: ollama embed: status %d: %s", exam.ErrProviderCall, resp.StatusCode, snippet(body))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return transient(err)
			}
			return err
		}

		data = body
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", exam.ErrProviderCall, err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: ollama embed: empty embedding", exam.ErrProviderCall)
	}
	return out.Embedding, nil
}

var _ exam.EmbeddingsClient = (*Embeddings)(nil)
var _ exam.TextGenerator = (*Client)(nil)
