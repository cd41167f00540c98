package storage

import (
	"context"
	"fmt"

	"watchdog/internal/models"

	"github.com/google/uuid"
)

type ChunkRecord struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Text       string
	TokenCount int
	PageStart  *int
	PageEnd    *int
}

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// InsertChunks writes one document's chunks in a single transaction so a
// partially chunked document is never observable.
func (r *ChunkRepo) InsertChunks(ctx context.Context, chunks []ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx insert chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := tx.Exec(ctx, `
INSERT INTO chunks (id, document_id, chunk_index, text, token_count, page_start, page_end)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, c.DocumentID, c.ChunkIndex, c.Text, c.TokenCount, c.PageStart, c.PageEnd)
		if err != nil {
			return fmt.Errorf("insert chunk %d of document %s: %w", c.ChunkIndex, c.DocumentID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (r *ChunkRepo) HasChunks(ctx context.Context, documentID string) (bool, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count chunks: %w", err)
	}
	return n > 0, nil
}

func (r *ChunkRepo) ListByDocument(ctx context.Context, documentID string) ([]models.Chunk, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id, document_id, chunk_index, text, COALESCE(filtered_text,''), token_count, page_start, page_end, created_at
FROM chunks
WHERE document_id = $1
ORDER BY chunk_index ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks by document: %w", err)
	}
	defer rows.Close()
	out := make([]models.Chunk, 0, 32)
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Text, &c.FilteredText, &c.TokenCount, &c.PageStart, &c.PageEnd, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func (r *ChunkRepo) Get(ctx context.Context, id string) (models.Chunk, error) {
	var c models.Chunk
	err := r.db.Pool.QueryRow(ctx, `
SELECT id, document_id, chunk_index, text, COALESCE(filtered_text,''), token_count, page_start, page_end, created_at
FROM chunks WHERE id = $1`, id).
		Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Text, &c.FilteredText, &c.TokenCount, &c.PageStart, &c.PageEnd, &c.CreatedAt)
	if err != nil {
		return models.Chunk{}, fmt.Errorf("get chunk %s: %w", id, err)
	}
	return c, nil
}

// ListMissingEmbeddings returns chunk ids and display text for chunks that
// have not been embedded yet.
func (r *ChunkRepo) ListMissingEmbeddings(ctx context.Context, documentID string, limit int) ([]models.Chunk, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT id, document_id, chunk_index, text, COALESCE(filtered_text,''), token_count, page_start, page_end, created_at
FROM chunks
WHERE document_id = $1 AND embedding IS NULL
ORDER BY chunk_index ASC
LIMIT $2`, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chunks missing embeddings: %w", err)
	}
	defer rows.Close()
	out := make([]models.Chunk, 0, 32)
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Text, &c.FilteredText, &c.TokenCount, &c.PageStart, &c.PageEnd, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

// SetEmbeddings stores vectors for the given chunk ids. Vectors arrive as
// pgvector literals.
func (r *ChunkRepo) SetEmbeddings(ctx context.Context, chunkIDs []string, vectors []string) error {
	if len(chunkIDs) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunkIDs), len(vectors))
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx set embeddings: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	for i, id := range chunkIDs {
		if _, err := tx.Exec(ctx, `UPDATE chunks SET embedding = $2::vector, updated_at = NOW() WHERE id = $1`, id, vectors[i]); err != nil {
			return fmt.Errorf("set embedding for chunk %s: %w", id, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit embeddings tx: %w", err)
	}
	return nil
}
