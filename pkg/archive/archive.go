// Package archive maintains a semantic index of source content from
// completed research runs. The chat agent searches it to answer questions
// with material already gathered, without re-running a research loop.
package archive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/mikeboe/company-researcher/pkg/embeddings"
	"github.com/mikeboe/company-researcher/pkg/research"
	"github.com/mikeboe/company-researcher/pkg/splitter"
	"github.com/mikeboe/company-researcher/pkg/store"
)

const chunksTable = "source_chunks"

// Archive embeds and stores source content chunks in pgvector.
type Archive struct {
	db       *store.PostgresDB
	embedder *embeddings.GoogleEmbedder
	splitter *splitter.TextSplitter
	logger   *slog.Logger
}

// Hit is one semantic search match.
type Hit struct {
	Subject  string  `json:"subject"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Content  string  `json:"content"`
	Distance float64 `json:"distance"`
}

// New prepares the archive table. chunkSize/chunkOverlap control how source
// content is split before embedding.
func New(ctx context.Context, db *store.PostgresDB, embedder *embeddings.GoogleEmbedder, chunkSize, chunkOverlap int, logger *slog.Logger) (*Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.EnsureVectorExtension(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure vector extension: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			run_id UUID NOT NULL,
			subject TEXT NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, chunksTable, embeddings.EmbeddingDimension)
	if _, err := db.Pool.Exec(ctx, query); err != nil {
		return nil, fmt.Errorf("failed to create %s table: %w", chunksTable, err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s USING hnsw (embedding vector_cosine_ops)
	`, chunksTable, chunksTable)
	if _, err := db.Pool.Exec(ctx, indexQuery); err != nil {
		return nil, fmt.Errorf("failed to create index on %s: %w", chunksTable, err)
	}

	return &Archive{
		db:       db,
		embedder: embedder,
		splitter: splitter.NewRecursiveCharacterTextSplitter(chunkSize, chunkOverlap),
		logger:   logger,
	}, nil
}

// IndexRun splits, embeds, and stores every source of a completed run.
// Sources without content are skipped.
func (a *Archive) IndexRun(ctx context.Context, runID uuid.UUID, subject string, sources []research.SearchResult) error {
	for _, src := range sources {
		if src.Content == "" {
			continue
		}
		chunks, err := a.splitter.SplitText(src.Content)
		if err != nil {
			a.logger.Warn("Failed to split source content", "url", src.URL, "error", err)
			continue
		}
		vectors, err := a.embedder.EmbedTexts(ctx, chunks)
		if err != nil {
			return fmt.Errorf("failed to embed source %s: %w", src.URL, err)
		}
		for i, chunk := range chunks {
			_, err := a.db.Pool.Exec(ctx, fmt.Sprintf(`
				INSERT INTO %s (run_id, subject, title, url, content, embedding)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, chunksTable), runID, subject, src.Title, src.URL, chunk, pgvector.NewVector(vectors[i]))
			if err != nil {
				return fmt.Errorf("failed to store chunk: %w", err)
			}
		}
	}
	return nil
}

// Search returns the topK chunks nearest to the query, optionally filtered
// to one subject.
func (a *Archive) Search(ctx context.Context, query string, topK int, subject string) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}
	vec, err := a.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	sql := fmt.Sprintf(`
		SELECT subject, title, url, content, embedding <=> $1 AS distance
		FROM %s
	`, chunksTable)
	args := []any{pgvector.NewVector(vec)}
	if subject != "" {
		sql += " WHERE LOWER(subject) = LOWER($2)"
		args = append(args, subject)
	}
	sql += fmt.Sprintf(" ORDER BY distance ASC LIMIT %d", topK)

	rows, err := a.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("archive search failed: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Subject, &h.Title, &h.URL, &h.Content, &h.Distance); err != nil {
			continue
		}
		hits = append(hits, h)
	}
	return hits, nil
}
