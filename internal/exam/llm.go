package exam

import "context"

// TextGenerator is the abstract "generate text from prompt" call. One
// adapter per provider; selection happens via cfg.Provider.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, cfg LLMConfig) (string, error)
}

// EmbeddingsClient converts text into a numeric vector using the
// selected backend.
type EmbeddingsClient interface {
	Embed(ctx context.Context, provider EmbeddingProvider, text string) ([]float32, error)
}

// MaterialQuerier retrieves course-scoped grounding context. An empty
// slice is a valid outcome meaning "no context available".
type MaterialQuerier interface {
	Query(ctx context.Context, courseID, text string) ([]RetrievedChunk, error)
}
