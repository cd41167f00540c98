package vector

import (
	"context"
	"fmt"
	"strings"

	"watchdog/internal/models"

	"github.com/jackc/pgx/v5"
)

const maxLimit = 50

type Searcher struct {
	q Queryer
}

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func NewSearcher(q Queryer) *Searcher {
	return &Searcher{q: q}
}

// SearchChunks ranks embedded chunks by cosine distance to queryVec.
// Chunks without an embedding are excluded.
func (s *Searcher) SearchChunks(ctx context.Context, queryVec []float32, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	vecLiteral := ToLiteral(queryVec)

	query := `
SELECT c.id,
       c.document_id,
       COALESCE(NULLIF(c.filtered_text, ''), c.text) AS text,
       c.token_count,
       c.page_start,
       d.filename,
       1 - (c.embedding <=> $1::vector) AS score
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE c.embedding IS NOT NULL
ORDER BY c.embedding <=> $1::vector
LIMIT $2`

	rows, err := s.q.Query(ctx, query, vecLiteral, limit)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	results := make([]models.SearchResult, 0, limit)
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Text, &r.TokenCount, &r.PageStart, &r.Filename, &r.Score); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, fmt.Sprintf("%f", x))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
