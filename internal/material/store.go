package material

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chineduoko/exam-rag/internal/exam"
)

const defaultTopK = 5

// Store is the course-scoped semantic memory behind retrieval-augmented
// prompting. It is constructed once at process start and passed to
// every component that needs it; concurrent ingestion into the same
// course is serialized so chunk indexes stay consistent.
type Store struct {
	repo       Repository
	embeddings exam.EmbeddingsClient
	client     *http.Client
	topK       int

	mu          sync.Mutex
	courseLocks map[string]*sync.Mutex
}

func NewStore(repo Repository, embeddings exam.EmbeddingsClient, fetchTimeout time.Duration) *Store {
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	return &Store{
		repo:        repo,
		embeddings:  embeddings,
		client:      &http.Client{Timeout: fetchTimeout},
		topK:        defaultTopK,
		courseLocks: map[string]*sync.Mutex{},
	}
}

// IngestResult reports what a (possibly partial) ingestion stored.
type IngestResult struct {
	CourseID   string   `json:"course_id"`
	StoredURLs []string `json:"stored_urls"`
	ChunkCount int      `json:"chunk_count"`
}

// Ingest downloads, extracts, chunks, embeds and stores every URL for
// the course. A failure on URL k aborts the remaining URLs; what was
// stored for URLs 1..k-1 stays (no rollback) and is reported in the
// result alongside the error.
func (s *Store) Ingest(ctx context.Context, courseID string, urls []string, provider exam.EmbeddingProvider) (*IngestResult, error) {
	unlock := s.lockCourse(courseID)
	defer unlock()

	result := &IngestResult{CourseID: courseID, StoredURLs: []string{}}

	if err := s.checkProvider(ctx, courseID, provider); err != nil {
		return result, err
	}

	for _, rawURL := range urls {
		n, err := s.ingestURL(ctx, courseID, rawURL, provider)
		if err != nil {
			return result, fmt.Errorf("after storing %d of %d urls: %w", len(result.StoredURLs), len(urls), err)
		}
		result.StoredURLs = append(result.StoredURLs, rawURL)
		result.ChunkCount += n
	}

	return result, nil
}

// IngestText chunks, embeds and stores already-extracted text under the
// given source reference. Used by the import CLI for local files.
func (s *Store) IngestText(ctx context.Context, courseID, sourceURL, text string, provider exam.EmbeddingProvider) (int, error) {
	unlock := s.lockCourse(courseID)
	defer unlock()

	if err := s.checkProvider(ctx, courseID, provider); err != nil {
		return 0, err
	}
	return s.storeChunks(ctx, courseID, sourceURL, text, provider)
}

// Query embeds the text with the course's pinned backend and returns
// the nearest chunks for the course. An empty course yields an empty
// result, not an error.
func (s *Store) Query(ctx context.Context, courseID, text string) ([]exam.RetrievedChunk, error) {
	provider, ok, err := s.repo.CourseEmbeddingProvider(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil // nothing ingested for this course
	}

	vec, err := s.embeddings.Embed(ctx, provider, text)
	if err != nil {
		return nil, err
	}

	return s.repo.SearchSimilar(ctx, courseID, vec, s.topK)
}

// Delete removes every record of the course. Deleting a course with no
// records succeeds silently.
func (s *Store) Delete(ctx context.Context, courseID string) error {
	_, err := s.repo.DeleteCourse(ctx, courseID)
	return err
}

// Update replaces a single document: delete then re-ingest. Not atomic;
// if the re-ingest half fails the document stays absent until retried.
func (s *Store) Update(ctx context.Context, courseID, rawURL string, provider exam.EmbeddingProvider) (*IngestResult, error) {
	unlock := s.lockCourse(courseID)
	defer unlock()

	result := &IngestResult{CourseID: courseID, StoredURLs: []string{}}

	if err := s.checkProvider(ctx, courseID, provider); err != nil {
		return result, err
	}
	if _, err := s.repo.DeleteDocument(ctx, courseID, rawURL); err != nil {
		return result, err
	}

	n, err := s.ingestURL(ctx, courseID, rawURL, provider)
	if err != nil {
		return result, err
	}
	result.StoredURLs = append(result.StoredURLs, rawURL)
	result.ChunkCount = n
	return result, nil
}

func (s *Store) ingestURL(ctx context.Context, courseID, rawURL string, provider exam.EmbeddingProvider) (int, error) {
	if !IsSupportedURL(rawURL) {
		return 0, fmt.Errorf("%w: unsupported document url %q (accepted: pdf, md, txt, html)", exam.ErrValidation, rawURL)
	}

	data, err := FetchDocument(ctx, s.client, rawURL)
	if err != nil {
		return 0, err
	}

	text, err := ExtractText(rawURL, data)
	if err != nil {
		return 0, err
	}

	return s.storeChunks(ctx, courseID, rawURL, text, provider)
}

func (s *Store) storeChunks(ctx context.Context, courseID, sourceURL, text string, provider exam.EmbeddingProvider) (int, error) {
	chunks := SplitText(text, MaxChunkLen)

	stored := 0
	for i, chunk := range chunks {
		vec, err := s.embeddings.Embed(ctx, provider, chunk)
		if err != nil {
			return stored, err
		}

		err = s.repo.InsertChunk(ctx, &Chunk{
			CourseID:          courseID,
			PDFURL:            sourceURL,
			ChunkIndex:        i,
			Content:           chunk,
			EmbeddingProvider: provider,
			Embedding:         vec,
		})
		if err != nil {
			return stored, fmt.Errorf("insert chunk %d of %s: %w", i, sourceURL, err)
		}
		stored++
	}

	return stored, nil
}

// checkProvider enforces the course's pinned embedding backend. Mixed
// embedding spaces would silently degrade retrieval, so a mismatch is
// rejected up front.
func (s *Store) checkProvider(ctx context.Context, courseID string, provider exam.EmbeddingProvider) error {
	switch provider {
	case exam.EmbeddingGemini, exam.EmbeddingLocalOllama:
	default:
		return fmt.Errorf("%w: unsupported embedding provider %q", exam.ErrValidation, provider)
	}

	pinned, ok, err := s.repo.CourseEmbeddingProvider(ctx, courseID)
	if err != nil {
		return err
	}
	if ok && pinned != provider {
		return fmt.Errorf("%w: course %s is pinned to embedding provider %q, got %q", exam.ErrValidation, courseID, pinned, provider)
	}
	return nil
}

func (s *Store) lockCourse(courseID string) func() {
	s.mu.Lock()
	lock, ok := s.courseLocks[courseID]
	if !ok {
		lock = &sync.Mutex{}
		s.courseLocks[courseID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
