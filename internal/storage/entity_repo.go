package storage

import (
	"context"
	"fmt"

	"watchdog/internal/models"
	"watchdog/internal/triage"
	"watchdog/internal/util"

	"github.com/google/uuid"
)

// EntityRepo is the entity resolver: it maintains the deduplicated identity
// graph keyed by (normalized name, entity type).
type EntityRepo struct {
	db *DB
}

func NewEntityRepo(db *DB) *EntityRepo {
	return &EntityRepo{db: db}
}

// GetOrCreate resolves a noisy mention to a stable entity. The name is
// normalized (trim + title-case) and the row is created or its mention_count
// incremented in one atomic upsert, so concurrent resolvers cannot create
// duplicates. New entities start at mention_count 1.
func (r *EntityRepo) GetOrCreate(ctx context.Context, name, entityType, description string) (models.Entity, error) {
	normalized := triage.NormalizeName(name)
	if normalized == "" {
		return models.Entity{}, fmt.Errorf("entity name is empty after normalization")
	}
	if entityType == "" {
		entityType = "unknown"
	}

	var e models.Entity
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO entities (id, name, entity_type, description, mention_count)
VALUES ($1, $2, $3, NULLIF($4,''), 1)
ON CONFLICT (name, entity_type)
DO UPDATE SET mention_count = entities.mention_count + 1, updated_at = NOW()
RETURNING id, name, entity_type, COALESCE(description,''), mention_count, created_at`,
		uuid.NewString(), normalized, entityType, description).
		Scan(&e.ID, &e.Name, &e.EntityType, &e.Description, &e.MentionCount, &e.CreatedAt)
	if err != nil {
		return models.Entity{}, fmt.Errorf("get or create entity %q (%s): %w", normalized, entityType, err)
	}
	return e, nil
}

func (r *EntityRepo) InsertMention(ctx context.Context, entityID, chunkID, contextSnippet string) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO entity_mentions (id, entity_id, chunk_id, context_snippet)
VALUES ($1, $2, $3, NULLIF($4,''))`,
		uuid.NewString(), entityID, chunkID, util.Truncate(contextSnippet, triage.MaxSnippetChars))
	if err != nil {
		return fmt.Errorf("insert entity mention: %w", err)
	}
	return nil
}

// InsertRelationship appends an edge unconditionally. Repeated extraction of
// the same pair produces repeated edges; support for an edge is the count of
// its rows.
func (r *EntityRepo) InsertRelationship(ctx context.Context, sourceID, targetID, relType, description string, confidence float64) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO entity_relationships (id, source_entity_id, target_entity_id, relationship_type, description, confidence)
VALUES ($1, $2, $3, $4, NULLIF($5,''), $6)`,
		uuid.NewString(), sourceID, targetID, relType, description, confidence)
	if err != nil {
		return fmt.Errorf("insert entity relationship: %w", err)
	}
	return nil
}

func (r *EntityRepo) Get(ctx context.Context, id string) (models.Entity, error) {
	var e models.Entity
	err := r.db.Pool.QueryRow(ctx, `
SELECT id, name, entity_type, COALESCE(description,''), mention_count, created_at
FROM entities WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &e.EntityType, &e.Description, &e.MentionCount, &e.CreatedAt)
	if err != nil {
		return models.Entity{}, fmt.Errorf("get entity %s: %w", id, err)
	}
	return e, nil
}

func (r *EntityRepo) List(ctx context.Context, entityType string, limit, offset int) ([]models.Entity, int, error) {
	query := `SELECT id, name, entity_type, COALESCE(description,''), mention_count, created_at FROM entities`
	countQuery := `SELECT COUNT(*) FROM entities`
	args := []any{}
	if entityType != "" {
		query += ` WHERE entity_type = $1`
		countQuery += ` WHERE entity_type = $1`
		args = append(args, entityType)
	}
	query += fmt.Sprintf(` ORDER BY mention_count DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()
	out := make([]models.Entity, 0, limit)
	for rows.Next() {
		var e models.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.EntityType, &e.Description, &e.MentionCount, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate entities: %w", err)
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entities: %w", err)
	}
	return out, total, nil
}

func (r *EntityRepo) ListMentions(ctx context.Context, entityID string, limit int) ([]models.EntityMention, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id, entity_id, chunk_id, COALESCE(context_snippet,'')
FROM entity_mentions WHERE entity_id = $1 LIMIT $2`, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list mentions: %w", err)
	}
	defer rows.Close()
	out := make([]models.EntityMention, 0, limit)
	for rows.Next() {
		var m models.EntityMention
		if err := rows.Scan(&m.ID, &m.EntityID, &m.ChunkID, &m.ContextSnippet); err != nil {
			return nil, fmt.Errorf("scan mention: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *EntityRepo) ListRelationships(ctx context.Context, entityID string, limit int) ([]models.EntityRelationship, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id, source_entity_id, target_entity_id, relationship_type, COALESCE(description,''), confidence
FROM entity_relationships
WHERE source_entity_id = $1 OR target_entity_id = $1
LIMIT $2`, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	defer rows.Close()
	out := make([]models.EntityRelationship, 0, limit)
	for rows.Next() {
		var rel models.EntityRelationship
		if err := rows.Scan(&rel.ID, &rel.SourceEntityID, &rel.TargetEntityID, &rel.RelationshipType, &rel.Description, &rel.Confidence); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}
