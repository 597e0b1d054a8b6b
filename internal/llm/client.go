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

const (
	openAIEndpoint    = "https://api.openai.com/v1/chat/completions"
	deepSeekEndpoint  = "https://api.deepseek.com/v1/chat/completions"
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"

	anthropicVersion = "2023-06-01"
)

// Options carries the credentials and knobs for every provider the
// client can target. Keys may be empty; using a provider without its
// key fails with a configuration error at call time.
type Options struct {
	OpenAIKey    string
	DeepSeekKey  string
	AnthropicKey string

	OllamaBaseURL   string // default http://localhost:11434
	LlamaCPPBaseURL string // default http://localhost:8080

	// Timeout bounds each GenerateText call end to end, retries included.
	Timeout time.Duration
	Retry   RetryPolicy
}

// Client maps the abstract generate-text call onto each provider's
// authentication scheme, endpoint and body shapes. It performs no
// response post-processing beyond extracting the generated-text field.
type Client struct {
	opts   Options
	gemini *GeminiClient // nil when no Gemini key is configured
	http   *http.Client
}

func NewClient(opts Options, gemini *GeminiClient) *Client {
	if opts.OllamaBaseURL == "" {
		opts.OllamaBaseURL = "http://localhost:11434"
	}
	if opts.LlamaCPPBaseURL == "" {
		opts.LlamaCPPBaseURL = "http://localhost:8080"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Client{opts: opts, gemini: gemini, http: &http.Client{}}
}

func (c *Client) GenerateText(ctx context.Context, prompt string, cfg exam.LLMConfig) (string, error) {
	if cfg.Provider != exam.ProviderLocalLlamaCPP && cfg.ModelName == "" {
		return "", fmt.Errorf("%w: model_name is required for provider %q", exam.ErrConfiguration, cfg.Provider)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	switch cfg.Provider {
	case exam.ProviderOpenAI:
		if c.opts.OpenAIKey == "" {
			return "", fmt.Errorf("%w: missing OPENAI_API_KEY", exam.ErrConfiguration)
		}
		return c.chatCompletion(ctx, openAIEndpoint, c.opts.OpenAIKey, prompt, cfg)

	case exam.ProviderDeepSeek:
		if c.opts.DeepSeekKey == "" {
			return "", fmt.Errorf("%w: missing DEEPSEEK_API_KEY", exam.ErrConfiguration)
		}
		return c.chatCompletion(ctx, deepSeekEndpoint, c.opts.DeepSeekKey, prompt, cfg)

	case exam.ProviderAnthropic:
		return c.anthropic(ctx, prompt, cfg)

	case exam.ProviderGemini:
		if c.gemini == nil {
			return "", fmt.Errorf("%w: missing GOOGLE_API_KEY or GEMINI_API_KEY", exam.ErrConfiguration)
		}
		return c.gemini.GenerateText(ctx, prompt, cfg)

	case exam.ProviderLocalOllama:
		return c.ollama(ctx, prompt, cfg)

	case exam.ProviderLocalLlamaCPP:
		return c.llamaCPP(ctx, prompt, cfg)

	default:
		return "", fmt.Errorf("%w: unsupported llm provider %q", exam.ErrConfiguration, cfg.Provider)
	}
}

// chatCompletion covers the OpenAI-compatible providers.
func (c *Client) chatCompletion(ctx context.Context, endpoint, key, prompt string, cfg exam.LLMConfig) (string, error) {
	payload := map[string]any{
		"model":       cfg.ModelName,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": cfg.Temperature,
		"max_tokens":  cfg.MaxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + key}

	body, err := c.post(ctx, endpoint, headers, payload)
	if err != nil {
		return "", err
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", exam.ErrProviderCall, err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: response missing choices[0].message.content", exam.ErrProviderCall)
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) anthropic(ctx context.Context, prompt string, cfg exam.LLMConfig) (string, error) {
	if c.opts.AnthropicKey == "" {
		return "", fmt.Errorf("%w: missing ANTHROPIC_API_KEY", exam.ErrConfiguration)
	}

	payload := map[string]any{
		"model":       cfg.ModelName,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": cfg.Temperature,
		"max_tokens":  cfg.MaxTokens,
	}
	headers := map[string]string{
		"x-api-key":         c.opts.AnthropicKey,
		"anthropic-version": anthropicVersion,
	}

	body, err := c.post(ctx, anthropicEndpoint, headers, payload)
	if err != nil {
		return "", err
	}

	var out struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", exam.ErrProviderCall, err)
	}
	if len(out.Content) == 0 || out.Content[0].Text == "" {
		return "", fmt.Errorf("%w: response missing content[0].text", exam.ErrProviderCall)
	}
	return out.Content[0].Text, nil
}

func (c *Client) ollama(ctx context.Context, prompt string, cfg exam.LLMConfig) (string, error) {
	payload := map[string]any{
		"model":  cfg.ModelName,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": cfg.Temperature,
			"num_predict": cfg.MaxTokens,
		},
	}

	body, err := c.post(ctx, strings.TrimRight(c.opts.OllamaBaseURL, "/")+"/api/generate", nil, payload)
	if err != nil {
		return "", err
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", exam.ErrProviderCall, err)
	}
	if out.Response == "" {
		return "", fmt.Errorf("%w: response missing response field", exam.ErrProviderCall)
	}
	return out.Response, nil
}

func (c *Client) llamaCPP(ctx context.Context, prompt string, cfg exam.LLMConfig) (string, error) {
	payload := map[string]any{
		"prompt":      prompt,
		"temperature": cfg.Temperature,
		"n_predict":   cfg.MaxTokens,
		"stop":        []string{"</s>"},
	}

	body, err := c.post(ctx, strings.TrimRight(c.opts.LlamaCPPBaseURL, "/")+"/completion", nil, payload)
	if err != nil {
		return "", err
	}

	var out struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", exam.ErrProviderCall, err)
	}
	if out.Content == "" {
		return "", fmt.Errorf("%w: response missing content field", exam.ErrProviderCall)
	}
	return out.Content, nil
}

// post sends the JSON payload and returns the response body, retrying
// transient failures per the retry policy.
func (c *Client) post(ctx context.Context, endpoint string, headers map[string]string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %v", exam.ErrProviderCall, err)
	}

	var body []byte
	err = c.opts.Retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("%w: build request: %v", exam.ErrProviderCall, err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return transient(fmt.Errorf("%w: %s: %v", exam.ErrProviderCall, endpoint, err))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return transient(fmt.Errorf("%w: read response: %v", exam.ErrProviderCall, err))
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			err := fmt.Errorf("%w: %s: status %d: %s", exam.ErrProviderCall, endpoint, resp.StatusCode, snippet(data))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return transient(err)
			}
			return err
		}

		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
