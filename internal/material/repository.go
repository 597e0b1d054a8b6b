package material

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/chineduoko/exam-rag/internal/exam"
)

// Chunk is the persisted unit of course material: one embedded slice
// of one document, keyed by (course_id, pdf_url, chunk_index).
type Chunk struct {
	CourseID          string
	PDFURL            string
	ChunkIndex        int
	Content           string
	EmbeddingProvider exam.EmbeddingProvider
	Embedding         []float32
}

// ChunkID builds the record id the same way for every writer. The full
// URL goes in, not just the filename, so two documents that share a
// basename never collide within a course.
func ChunkID(courseID, pdfURL string, index int) string {
	return fmt.Sprintf("%s_%s_%d", courseID, pdfURL, index)
}

type Repository interface {
	InsertChunk(ctx context.Context, c *Chunk) error
	SearchSimilar(ctx context.Context, courseID string, embedding []float32, limit int) ([]exam.RetrievedChunk, error)
	DeleteCourse(ctx context.Context, courseID string) (int64, error)
	DeleteDocument(ctx context.Context, courseID, pdfURL string) (int64, error)
	// CourseEmbeddingProvider returns the provider the course's existing
	// records were embedded with, or ok=false for an empty course.
	CourseEmbeddingProvider(ctx context.Context, courseID string) (exam.EmbeddingProvider, bool, error)
}

type PgRepository struct {
	db *pgxpool.Pool
}

func NewPgRepository(db *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: db}
}

func (r *PgRepository) InsertChunk(ctx context.Context, c *Chunk) error {
	vec := pgvector.NewVector(c.Embedding)

	_, err := r.db.Exec(ctx, `
		INSERT INTO course_chunk (id, course_id, pdf_url, chunk_index, content, embedding_provider, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		ChunkID(c.CourseID, c.PDFURL, c.ChunkIndex),
		c.CourseID,
		c.PDFURL,
		c.ChunkIndex,
		c.Content,
		c.EmbeddingProvider,
		vec,
	)
	return err
}

// SearchSimilar faz a busca vetorial filtrando por course_id.
func (r *PgRepository) SearchSimilar(ctx context.Context, courseID string, embedding []float32, limit int) ([]exam.RetrievedChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.db.Query(ctx, `
		SELECT content, pdf_url, chunk_index, embedding <-> $2 AS distance
		FROM course_chunk
		WHERE course_id = $1
		ORDER BY embedding <-> $2
		LIMIT $3
	`, courseID, vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []exam.RetrievedChunk
	for rows.Next() {
		var c exam.RetrievedChunk
		if err := rows.Scan(&c.Content, &c.PDFURL, &c.ChunkIndex, &c.Distance); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}

	return chunks, rows.Err()
}

func (r *PgRepository) DeleteCourse(ctx context.Context, courseID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM course_chunk WHERE course_id = $1`, courseID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) DeleteDocument(ctx context.Context, courseID, pdfURL string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM course_chunk WHERE course_id = $1 AND pdf_url = $2
	`, courseID, pdfURL)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) CourseEmbeddingProvider(ctx context.Context, courseID string) (exam.EmbeddingProvider, bool, error) {
	var provider string
	err := r.db.QueryRow(ctx, `
		SELECT embedding_provider FROM course_chunk WHERE course_id = $1 LIMIT 1
	`, courseID).Scan(&provider)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return exam.EmbeddingProvider(provider), true, nil
}
