package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/chineduoko/exam-rag/internal/config"
	"github.com/chineduoko/exam-rag/internal/db"
	"github.com/chineduoko/exam-rag/internal/exam"
	"github.com/chineduoko/exam-rag/internal/llm"
	"github.com/chineduoko/exam-rag/internal/material"
)

func main() {
	_ = godotenv.Load()

	courseFlag := flag.String("course", "", "course id to ingest into")
	providerFlag := flag.String("embedding-provider", string(exam.EmbeddingGemini), "embedding backend (gemini, local_ollama)")
	pathFlag := flag.String("path", "", "directory with local files (.pdf/.md/.txt/.html)")
	urlsFlag := flag.String("urls", "", "comma-separated document URLs")
	flag.Parse()

	if *courseFlag == "" {
		log.Fatal("required: --course")
	}
	if *pathFlag == "" && *urlsFlag == "" {
		log.Fatal("use at least one of --path or --urls")
	}
	provider := exam.EmbeddingProvider(*providerFlag)

	ctx := context.Background()
	cfg := config.Load()
	pool := db.NewPool(ctx, cfg.DatabaseURL)
	defer pool.Close()

	retry := llm.RetryPolicy{MaxAttempts: cfg.LLMMaxAttempts, BaseDelay: 500 * time.Millisecond}

	var gemini *llm.GeminiClient
	if cfg.GeminiAPIKey != "" {
		var err error
		gemini, err = llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, retry)
		if err != nil {
			log.Fatalf("failed to init Gemini client: %v", err)
		}
	}

	embeddings := llm.NewEmbeddings(gemini, cfg.OllamaBaseURL, cfg.OllamaEmbedModel, cfg.LLMTimeout, retry)
	repo := material.NewPgRepository(pool)
	store := material.NewStore(repo, embeddings, cfg.FetchTimeout)

	if *pathFlag != "" {
		if err := importFromFiles(ctx, store, *courseFlag, *pathFlag, provider); err != nil {
			log.Fatalf("error importing files: %v", err)
		}
	}

	if *urlsFlag != "" {
		urls := splitURLs(*urlsFlag)
		result, err := store.Ingest(ctx, *courseFlag, urls, provider)
		if err != nil {
			log.Fatalf("error importing urls (stored %d of %d): %v", len(result.StoredURLs), len(urls), err)
		}
		log.Printf("imported %d urls, %d chunks, course=%s", len(result.StoredURLs), result.ChunkCount, *courseFlag)
	}

	log.Println("import finished")
}

func importFromFiles(ctx context.Context, store *material.Store, courseID, rootPath string, provider exam.EmbeddingProvider) error {
	log.Printf("importing local materials from %s into course=%s", rootPath, courseID)
	start := time.Now()
	files, chunks := 0, 0

	err := filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !material.IsSupportedURL(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		text, err := material.ExtractText(path, data)
		if err != nil {
			return err
		}
		if text == "" {
			return nil
		}

		n, err := store.IngestText(ctx, courseID, path, text, provider)
		if err != nil {
			return err
		}

		log.Printf("imported %s chunks=%d", path, n)
		files++
		chunks += n
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("imported %d files, %d chunks in %s", files, chunks, time.Since(start).Round(time.Millisecond))
	return nil
}

func splitURLs(s string) []string {
	var urls []string
	for _, u := range strings.Split(s, ",") {
		u = strings.TrimSpace(u)
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
