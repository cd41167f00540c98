package storage

import (
	"context"
	"fmt"

	"watchdog/internal/models"
	"watchdog/internal/triage"
	"watchdog/internal/util"

	"github.com/google/uuid"
)

type AnomalyRepo struct {
	db *DB
}

func NewAnomalyRepo(db *DB) *AnomalyRepo {
	return &AnomalyRepo{db: db}
}

func (r *AnomalyRepo) Insert(ctx context.Context, a models.Anomaly) error {
	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO anomalies (id, document_id, anomaly_type, description, severity, confidence, evidence)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''))`,
		id, a.DocumentID, a.AnomalyType, a.Description, a.Severity, a.Confidence,
		util.Truncate(a.Evidence, triage.MaxEvidenceChars))
	if err != nil {
		return fmt.Errorf("insert anomaly: %w", err)
	}
	return nil
}

func (r *AnomalyRepo) ListByDocument(ctx context.Context, documentID string) ([]models.Anomaly, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id, document_id, anomaly_type, description, severity, confidence, COALESCE(evidence,''), created_at
FROM anomalies
WHERE document_id = $1
ORDER BY confidence DESC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document anomalies: %w", err)
	}
	defer rows.Close()
	out := make([]models.Anomaly, 0, 8)
	for rows.Next() {
		var a models.Anomaly
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.AnomalyType, &a.Description, &a.Severity, &a.Confidence, &a.Evidence, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate anomalies: %w", err)
	}
	return out, nil
}

func (r *AnomalyRepo) List(ctx context.Context, severity, anomalyType string, limit, offset int) ([]models.Anomaly, int, error) {
	where := ""
	args := []any{}
	if severity != "" {
		args = append(args, severity)
		where = fmt.Sprintf(" WHERE severity = $%d", len(args))
	}
	if anomalyType != "" {
		args = append(args, anomalyType)
		if where == "" {
			where = fmt.Sprintf(" WHERE anomaly_type = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND anomaly_type = $%d", len(args))
		}
	}

	query := `SELECT id, document_id, anomaly_type, description, severity, confidence, COALESCE(evidence,''), created_at FROM anomalies` +
		where + fmt.Sprintf(` ORDER BY confidence DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list anomalies: %w", err)
	}
	defer rows.Close()
	out := make([]models.Anomaly, 0, limit)
	for rows.Next() {
		var a models.Anomaly
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.AnomalyType, &a.Description, &a.Severity, &a.Confidence, &a.Evidence, &a.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan anomaly: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate anomalies: %w", err)
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM anomalies`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count anomalies: %w", err)
	}
	return out, total, nil
}
