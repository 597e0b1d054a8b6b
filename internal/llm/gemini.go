package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/chineduoko/exam-rag/internal/exam"
)

const (
	geminiEmbeddingModel = "models/text-embedding-004"
	geminiEmbedDim       = 768
)

// GeminiClient wraps the genai SDK for embeddings and generation.
// Transient SDK failures are retried per the policy.
type GeminiClient struct {
	client *genai.Client
	retry  RetryPolicy
}

func NewGeminiClient(ctx context.Context, apiKey string, retry RetryPolicy) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing GOOGLE_API_KEY or GEMINI_API_KEY", exam.ErrConfiguration)
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{client: c, retry: retry}, nil
}

func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	clean := normalizeWhitespace(text)
	if clean == "" {
		return nil, fmt.Errorf("%w: empty text for embedding", exam.ErrValidation)
	}

	var resp *genai.EmbedContentResponse
	err := g.retry.Do(ctx, func() error {
		r, err := g.client.Models.EmbedContent(
			ctx,
			geminiEmbeddingModel,
			genai.Text(clean),
			&genai.EmbedContentConfig{
				OutputDimensionality: genai.Ptr(int32(geminiEmbedDim)),
			},
		)
		if err != nil {
			return classifyGenAIErr(err)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: gemini embed: %v", exam.ErrProviderCall, err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: gemini embed: no embeddings returned", exam.ErrProviderCall)
	}

	values := resp.Embeddings[0].Values
	if len(values) != geminiEmbedDim {
		return nil, fmt.Errorf("%w: gemini embed: unexpected embedding size %d (expected %d)", exam.ErrProviderCall, len(values), geminiEmbedDim)
	}

	out := make([]float32, geminiEmbedDim)
	copy(out, values)
	return out, nil
}

func (g *GeminiClient) GenerateText(ctx context.Context, prompt string, cfg exam.LLMConfig) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(cfg.Temperature)),
		MaxOutputTokens: int32(cfg.MaxTokens),
	}

	var resp *genai.GenerateContentResponse
	err := g.retry.Do(ctx, func() error {
		r, err := g.client.Models.GenerateContent(ctx, cfg.ModelName, genai.Text(prompt), genCfg)
		if err != nil {
			return classifyGenAIErr(err)
		}
		resp = r
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: gemini generateContent: %v", exam.ErrProviderCall, err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: empty response from gemini", exam.ErrProviderCall)
	}

	txt := strings.TrimSpace(resp.Text())
	if txt == "" {
		return "", fmt.Errorf("%w: gemini returned empty text", exam.ErrProviderCall)
	}

	return txt, nil
}

// classifyGenAIErr marks retryable SDK failures: rate limiting, server
// errors, and transport failures that never produced an API error.
func classifyGenAIErr(err error) error {
	var code int
	var vErr genai.APIError
	var pErr *genai.APIError
	switch {
	case errors.As(err, &pErr):
		code = pErr.Code
	case errors.As(err, &vErr):
		code = vErr.Code
	default:
		// no API error means the call never got a response
		return transient(err)
	}

	if code == http.StatusTooManyRequests || code >= 500 {
		return transient(err)
	}
	return err
}

func normalizeWhitespace(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			if !space {
				b.WriteRune(' ')
				space = true
			}
		} else {
			b.WriteRune(r)
			space = false
		}
	}
	return b.String()
}
