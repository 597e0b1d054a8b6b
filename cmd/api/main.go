package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/chineduoko/exam-rag/internal/config"
	"github.com/chineduoko/exam-rag/internal/db"
	"github.com/chineduoko/exam-rag/internal/exam"
	apphttp "github.com/chineduoko/exam-rag/internal/http"
	"github.com/chineduoko/exam-rag/internal/llm"
	"github.com/chineduoko/exam-rag/internal/material"
)

func main() {
	ctx := context.Background()

	cfg := config.Load()
	pool := db.NewPool(ctx, cfg.DatabaseURL)
	defer pool.Close()

	retry := llm.RetryPolicy{MaxAttempts: cfg.LLMMaxAttempts, BaseDelay: 500 * time.Millisecond}

	// Gemini is optional: without a key the provider is simply
	// unavailable and calls targeting it fail with a config error.
	var gemini *llm.GeminiClient
	if cfg.GeminiAPIKey != "" {
		var err error
		gemini, err = llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, retry)
		if err != nil {
			log.Fatalf("failed to init Gemini client: %v", err)
		}
	}

	llmClient := llm.NewClient(llm.Options{
		OpenAIKey:       cfg.OpenAIAPIKey,
		DeepSeekKey:     cfg.DeepSeekAPIKey,
		AnthropicKey:    cfg.AnthropicAPIKey,
		OllamaBaseURL:   cfg.OllamaBaseURL,
		LlamaCPPBaseURL: cfg.LlamaCPPBaseURL,
		Timeout:         cfg.LLMTimeout,
		Retry:           retry,
	}, gemini)

	embeddings := llm.NewEmbeddings(gemini, cfg.OllamaBaseURL, cfg.OllamaEmbedModel, cfg.LLMTimeout, retry)

	repo := material.NewPgRepository(pool)
	store := material.NewStore(repo, embeddings, cfg.FetchTimeout)

	generator := exam.NewGenerator(llmClient, store)
	grader := exam.NewGradingService(llmClient, store)

	h := apphttp.NewHandler(generator, grader, store)
	router := apphttp.NewRouter(h)

	handler := corsMiddleware(router)

	addr := ":" + cfg.Port
	log.Printf("API listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, handler))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin == "http://localhost:3000" || origin == "http://127.0.0.1:3000" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
