package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/T-6891/Dementor-API/internal/domain"
	"github.com/T-6891/Dementor-API/internal/idgen"
	"github.com/T-6891/Dementor-API/internal/repository"
)

// CreateRelationship validates both endpoints and the relationship type,
// then inserts the edge. Everything runs in one transaction so a
// concurrently deleted endpoint cannot slip between the check and the
// insert. Source and target types come back denormalized.
func (s *Store) CreateRelationship(ctx context.Context, req domain.RelationshipCreate) (_ *domain.Relationship, err error) {
	defer s.observe("relationship_create", time.Now(), &err)

	def, err := s.RelationshipType(ctx, req.Type)
	if err != nil {
		return nil, err
	}
	if req.Properties == nil {
		req.Properties = map[string]any{}
	}
	if err = def.Schema.Validate(req.Properties); err != nil {
		return nil, err
	}
	props, err := encodeProps(req.Properties)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sourceType, err := entityTypeOf(ctx, tx, req.SourceID)
	if err != nil {
		return nil, err
	}
	targetType, err := entityTypeOf(ctx, tx, req.TargetID)
	if err != nil {
		return nil, err
	}

	rel := &domain.Relationship{
		Type:       req.Type,
		SourceID:   req.SourceID,
		TargetID:   req.TargetID,
		SourceType: sourceType,
		TargetType: targetType,
		Properties: req.Properties,
		CreatedAt:  time.Now().UTC(),
	}

	for attempt := 0; attempt < idgen.MaxAttempts; attempt++ {
		rel.ID = s.relationshipID()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO relationships (id, type, source_id, target_id, properties, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rel.ID, rel.Type, rel.SourceID, rel.TargetID, props, rel.CreatedAt)
		if err == nil {
			if err = tx.Commit(); err != nil {
				return nil, fmt.Errorf("failed to commit relationship: %w", err)
			}
			return rel, nil
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to insert relationship: %w", err)
		}
	}
	return nil, fmt.Errorf("exhausted %d relationship id attempts: %w", idgen.MaxAttempts, domain.ErrConflict)
}

// entityTypeOf resolves an endpoint's type inside the create transaction.
func entityTypeOf(ctx context.Context, tx *sql.Tx, id string) (string, error) {
	var typ string
	err := tx.QueryRowContext(ctx, `SELECT type FROM entities WHERE id = ?`, id).Scan(&typ)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.EntityNotFound(id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve entity %s: %w", id, err)
	}
	return typ, nil
}

// GetRelationship returns one relationship by id.
func (s *Store) GetRelationship(ctx context.Context, id string) (_ *domain.Relationship, err error) {
	defer s.observe("relationship_get", time.Now(), &err)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rel, err := scanRelationship(s.db.QueryRowContext(ctx,
		`SELECT `+relationshipColumns+` FROM `+relationshipJoin+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.RelationshipNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return rel, nil
}

// UpdateRelationship merges the given properties into the edge's property
// bag. An empty map degenerates to a read: the stored row, including
// updated_at, is returned byte for byte unchanged. A nil value removes
// that property.
func (s *Store) UpdateRelationship(ctx context.Context, id string, properties map[string]any) (_ *domain.Relationship, err error) {
	defer s.observe("relationship_update", time.Now(), &err)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanRelationship(tx.QueryRowContext(ctx,
		`SELECT `+relationshipColumns+` FROM `+relationshipJoin+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.RelationshipNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}

	if len(properties) == 0 {
		return current, nil
	}

	props := current.Properties
	for k, v := range properties {
		if k == "id" {
			continue
		}
		mergeProperty(props, k, v)
	}

	def, err := relationshipTypeDef(ctx, tx, current.Type)
	if err != nil {
		return nil, err
	}
	if err = def.Schema.Validate(props); err != nil {
		return nil, err
	}

	encoded, err := encodeProps(props)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	var b updateBuilder
	b.Set("properties", encoded)
	b.TouchUpdatedAt(now)
	query, args := b.Build("relationships", id)
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update relationship: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit relationship update: %w", err)
	}

	current.Properties = props
	current.UpdatedAt = &now
	return current, nil
}

// DeleteRelationship removes one edge, reporting whether a row was deleted.
func (s *Store) DeleteRelationship(ctx context.Context, id string) (_ bool, err error) {
	defer s.observe("relationship_delete", time.Now(), &err)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM relationships WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete relationship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListRelatedEntities returns the entities on the far end of an entity's
// edges, deduplicated and ordered by id.
func (s *Store) ListRelatedEntities(ctx context.Context, f repository.RelationshipFilter) (_ []domain.Entity, err error) {
	defer s.observe("entity_related", time.Now(), &err)

	var (
		join string
		args []any
	)
	switch f.Direction {
	case domain.DirectionOutgoing:
		join = "r.source_id = ? AND e.id = r.target_id"
		args = append(args, f.EntityID)
	case domain.DirectionIncoming:
		join = "r.target_id = ? AND e.id = r.source_id"
		args = append(args, f.EntityID)
	case domain.DirectionBoth, "":
		join = "((r.source_id = ? AND e.id = r.target_id) OR (r.target_id = ? AND e.id = r.source_id))"
		args = append(args, f.EntityID, f.EntityID)
	default:
		return nil, &domain.ValidationError{Field: "direction", Reason: fmt.Sprintf("invalid direction %q", f.Direction)}
	}
	if f.Type != "" {
		join += " AND r.type = ?"
		args = append(args, f.Type)
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT e.id, e.type, e.name, e.status, e.description, e.properties, e.created_at, e.updated_at
		 FROM entities e JOIN relationships r ON `+join+` ORDER BY e.id LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list related entities: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Entity, 0)
	for rows.Next() {
		ent, scanErr := scanEntity(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		items = append(items, *ent)
	}
	return items, rows.Err()
}

// ListRelationships returns one page of edges touching an entity, filtered
// by direction and optionally by type, newest first. An entity with no
// edges, or an unknown id, yields an empty page.
func (s *Store) ListRelationships(ctx context.Context, f repository.RelationshipFilter) (_ *domain.RelationshipPage, err error) {
	defer s.observe("relationship_list", time.Now(), &err)

	var (
		where string
		args  []any
	)
	switch f.Direction {
	case domain.DirectionOutgoing:
		where = "r.source_id = ?"
		args = append(args, f.EntityID)
	case domain.DirectionIncoming:
		where = "r.target_id = ?"
		args = append(args, f.EntityID)
	case domain.DirectionBoth, "":
		where = "(r.source_id = ? OR r.target_id = ?)"
		args = append(args, f.EntityID, f.EntityID)
	default:
		return nil, &domain.ValidationError{Field: "direction", Reason: fmt.Sprintf("invalid direction %q", f.Direction)}
	}
	if f.Type != "" {
		where += " AND r.type = ?"
		args = append(args, f.Type)
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var total int
	if err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM relationships r WHERE `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count relationships: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+relationshipColumns+` FROM `+relationshipJoin+
			` WHERE `+where+` ORDER BY r.created_at DESC, r.id LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Relationship, 0)
	for rows.Next() {
		rel, scanErr := scanRelationship(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		items = append(items, *rel)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	page, pages := domain.PageOf(total, f.Limit, f.Offset)
	return &domain.RelationshipPage{
		Items: items,
		Total: total,
		Page:  page,
		Size:  f.Limit,
		Pages: pages,
	}, nil
}
