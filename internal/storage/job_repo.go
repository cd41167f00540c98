package storage

import (
	"context"
	"fmt"

	"watchdog/internal/models"

	"github.com/google/uuid"
)

type JobRepo struct {
	db *DB
}

func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

// Start records a running job and returns its id.
func (r *JobRepo) Start(ctx context.Context, jobType, documentID string) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO processing_jobs (id, job_type, status, document_id, started_at)
VALUES ($1, $2, 'running', NULLIF($3,''), NOW())`,
		id, jobType, documentID)
	if err != nil {
		return "", fmt.Errorf("start job: %w", err)
	}
	return id, nil
}

// Finish marks a job completed or failed. errMessage is stored only when
// status is failed.
func (r *JobRepo) Finish(ctx context.Context, jobID, status, errMessage string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE processing_jobs
SET status = $2, error_message = NULLIF($3,''), completed_at = NOW()
WHERE id = $1`,
		jobID, status, errMessage)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return nil
}

func (r *JobRepo) ListRecent(ctx context.Context, limit int) ([]models.ProcessingJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT id, job_type, status, COALESCE(document_id::text, ''), COALESCE(error_message, ''), started_at, completed_at, created_at
FROM processing_jobs
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.ProcessingJob
	for rows.Next() {
		var j models.ProcessingJob
		if err := rows.Scan(&j.ID, &j.JobType, &j.Status, &j.DocumentID, &j.ErrorMessage, &j.StartedAt, &j.CompletedAt, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
