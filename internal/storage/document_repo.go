package storage

import (
	"context"
	"errors"
	"fmt"

	"watchdog/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = `id, COALESCE(source_url,''), source_type, filename, COALESCE(file_path,''), sha256,
page_count, COALESCE(ocr_method,''), status, priority_score, created_at, updated_at`

func scanDocument(row pgx.Row) (models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.SourceURL, &d.SourceType, &d.Filename, &d.FilePath, &d.SHA256,
		&d.PageCount, &d.OCRMethod, &d.Status, &d.PriorityScore, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (r *DocumentRepo) Insert(ctx context.Context, d models.Document) (string, error) {
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO documents (id, source_url, source_type, filename, file_path, sha256, ocr_text, ocr_method, status)
VALUES ($1, NULLIF($2,''), $3, $4, NULLIF($5,''), $6, NULLIF($7,''), NULLIF($8,''), $9)`,
		id, d.SourceURL, d.SourceType, d.Filename, d.FilePath, d.SHA256, d.OCRText, d.OCRMethod, d.Status)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

// ExistsBySHA256 backs idempotent archive ingestion.
func (r *DocumentRepo) ExistsBySHA256(ctx context.Context, sha string) (bool, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx, `SELECT id FROM documents WHERE sha256 = $1`, sha).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup document by sha256: %w", err)
	}
	return true, nil
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (models.Document, error) {
	d, err := scanDocument(r.db.Pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if err != nil {
		return models.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return d, nil
}

func (r *DocumentRepo) GetText(ctx context.Context, id string) (string, error) {
	var text *string
	if err := r.db.Pool.QueryRow(ctx, `SELECT ocr_text FROM documents WHERE id = $1`, id).Scan(&text); err != nil {
		return "", fmt.Errorf("get document text %s: %w", id, err)
	}
	if text == nil {
		return "", nil
	}
	return *text, nil
}

func (r *DocumentRepo) ListByStatus(ctx context.Context, status string, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT `+documentColumns+` FROM documents WHERE status = $1 ORDER BY created_at ASC LIMIT $2`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents by status: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// List returns documents for the API, optionally filtered by status, sorted
// by created_at desc or priority desc (nulls last).
func (r *DocumentRepo) List(ctx context.Context, status, sort string, limit, offset int) ([]models.Document, int, error) {
	order := "created_at DESC"
	if sort == "priority" {
		order = "priority_score DESC NULLS LAST"
	}
	query := `SELECT ` + documentColumns + ` FROM documents`
	countQuery := `SELECT COUNT(*) FROM documents`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		countQuery += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY %s LIMIT %d OFFSET %d`, order, limit, offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	return docs, total, nil
}

func collectDocuments(rows pgx.Rows) ([]models.Document, error) {
	out := make([]models.Document, 0, 32)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepo) SetExtracted(ctx context.Context, id, text, method string, pageCount int) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE documents SET ocr_text = $2, ocr_method = $3, page_count = $4, status = $5, updated_at = NOW()
WHERE id = $1`, id, text, method, pageCount, models.StatusOCRDone)
	if err != nil {
		return fmt.Errorf("mark document extracted: %w", err)
	}
	return nil
}

func (r *DocumentRepo) SetStatus(ctx context.Context, id, status string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE documents SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set document status: %w", err)
	}
	return nil
}

// SetTriaged marks the document triaged. priority is nil when no chunk
// produced a score; priority_score is left untouched in that case.
func (r *DocumentRepo) SetTriaged(ctx context.Context, id string, priority *float64) error {
	var err error
	if priority != nil {
		_, err = r.db.Pool.Exec(ctx, `
UPDATE documents SET status = $2, priority_score = $3, updated_at = NOW() WHERE id = $1`,
			id, models.StatusTriaged, *priority)
	} else {
		_, err = r.db.Pool.Exec(ctx, `
UPDATE documents SET status = $2, updated_at = NOW() WHERE id = $1`, id, models.StatusTriaged)
	}
	if err != nil {
		return fmt.Errorf("mark document triaged: %w", err)
	}
	return nil
}
