package storage

import (
	"context"
	"fmt"
)

type StatsRepo struct {
	db *DB
}

func NewStatsRepo(db *DB) *StatsRepo {
	return &StatsRepo{db: db}
}

type EntityCount struct {
	Name         string `json:"name"`
	EntityType   string `json:"entity_type"`
	MentionCount int    `json:"mention_count"`
}

type Stats struct {
	Documents        int64            `json:"documents"`
	DocumentsByState map[string]int64 `json:"documents_by_status"`
	Chunks           int64            `json:"chunks"`
	ChunksEmbedded   int64            `json:"chunks_embedded"`
	Entities         int64            `json:"entities"`
	Relationships    int64            `json:"relationships"`
	Anomalies        int64            `json:"anomalies"`
	AnomaliesBySev   map[string]int64 `json:"anomalies_by_severity"`
	TopEntities      []EntityCount    `json:"top_entities"`
	Cost             CostTotals       `json:"cost"`
}

func (r *StatsRepo) Collect(ctx context.Context) (Stats, error) {
	s := Stats{
		DocumentsByState: map[string]int64{},
		AnomaliesBySev:   map[string]int64{},
	}

	err := r.db.Pool.QueryRow(ctx, `
SELECT
  (SELECT COUNT(*) FROM documents),
  (SELECT COUNT(*) FROM chunks),
  (SELECT COUNT(*) FROM chunks WHERE embedding IS NOT NULL),
  (SELECT COUNT(*) FROM entities),
  (SELECT COUNT(*) FROM entity_relationships),
  (SELECT COUNT(*) FROM anomalies)`).
		Scan(&s.Documents, &s.Chunks, &s.ChunksEmbedded, &s.Entities, &s.Relationships, &s.Anomalies)
	if err != nil {
		return Stats{}, fmt.Errorf("collect counts: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM documents GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("status breakdown: %w", err)
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return Stats{}, fmt.Errorf("scan status count: %w", err)
		}
		s.DocumentsByState[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	rows, err = r.db.Pool.Query(ctx, `SELECT severity, COUNT(*) FROM anomalies GROUP BY severity`)
	if err != nil {
		return Stats{}, fmt.Errorf("severity breakdown: %w", err)
	}
	for rows.Next() {
		var sev string
		var n int64
		if err := rows.Scan(&sev, &n); err != nil {
			rows.Close()
			return Stats{}, fmt.Errorf("scan severity count: %w", err)
		}
		s.AnomaliesBySev[sev] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	rows, err = r.db.Pool.Query(ctx, `
SELECT name, entity_type, mention_count
FROM entities
ORDER BY mention_count DESC, name ASC
LIMIT 20`)
	if err != nil {
		return Stats{}, fmt.Errorf("top entities: %w", err)
	}
	for rows.Next() {
		var e EntityCount
		if err := rows.Scan(&e.Name, &e.EntityType, &e.MentionCount); err != nil {
			rows.Close()
			return Stats{}, fmt.Errorf("scan top entity: %w", err)
		}
		s.TopEntities = append(s.TopEntities, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	s.Cost, err = NewExpenseRepo(r.db).Totals(ctx)
	if err != nil {
		return Stats{}, err
	}
	return s, nil
}
