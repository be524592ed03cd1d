package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/T-6891/Dementor-API/internal/domain"
	"github.com/T-6891/Dementor-API/internal/idgen"
	"github.com/T-6891/Dementor-API/internal/repository"
)

// entityFieldColumns are the first-class entity columns writable through a
// partial update. Everything else supplied lands in the property bag.
var entityFieldColumns = map[string]bool{
	"name":        true,
	"status":      true,
	"description": true,
}

// protectedEntityKeys can never be changed through an update.
var protectedEntityKeys = map[string]bool{
	"id":         true,
	"type":       true,
	"created_at": true,
	"updated_at": true,
}

// searchableColumns are the columns the text search may touch.
var searchableColumns = map[string]bool{
	"id":          true,
	"name":        true,
	"description": true,
}

// CreateEntity validates the entity against its type catalog entry, assigns
// a type-prefixed identifier, and inserts it. Nothing is written when the
// type is unknown or validation fails. On an identifier collision the
// insert retries with a fresh identifier a bounded number of times.
func (s *Store) CreateEntity(ctx context.Context, ent *domain.Entity) (_ *domain.Entity, err error) {
	defer s.observe("entity_create", time.Now(), &err)

	if strings.TrimSpace(ent.Name) == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "name is required"}
	}

	def, err := s.EntityType(ctx, ent.Type)
	if err != nil {
		return nil, err
	}

	out := *ent
	if out.Status == "" {
		out.Status = domain.StatusActive
	}
	if !domain.ValidStatus(out.Status, statusSet(def)) {
		return nil, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("invalid status %q", out.Status)}
	}
	if out.Properties == nil {
		out.Properties = map[string]any{}
	}
	if err = def.Schema.Validate(out.Properties); err != nil {
		return nil, err
	}

	props, err := encodeProps(out.Properties)
	if err != nil {
		return nil, err
	}
	out.CreatedAt = time.Now().UTC()
	out.UpdatedAt = nil

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	prefix := idgen.PrefixFor(out.Type, def.IDPrefix)
	for attempt := 0; attempt < idgen.MaxAttempts; attempt++ {
		out.ID = s.entityID(prefix)
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO entities (id, type, name, status, description, properties, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			out.ID, out.Type, out.Name, out.Status, nullString(out.Description), props, out.CreatedAt)
		if err == nil {
			return &out, nil
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to insert entity: %w", err)
		}
	}
	return nil, fmt.Errorf("exhausted %d id attempts for prefix %s: %w", idgen.MaxAttempts, prefix, domain.ErrConflict)
}

// GetEntity returns one entity by id.
func (s *Store) GetEntity(ctx context.Context, id string) (_ *domain.Entity, err error) {
	defer s.observe("entity_get", time.Now(), &err)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ent, err := scanEntity(s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.EntityNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return ent, nil
}

// UpdateEntity applies a partial update. Known first-class fields update
// their columns; a "properties" map merges into the property bag, as does
// any other key. Protected keys are skipped. An update that supplies
// nothing applicable returns the entity unchanged without bumping
// updated_at. A nil property value removes that property.
func (s *Store) UpdateEntity(ctx context.Context, id string, updates map[string]any) (_ *domain.Entity, err error) {
	defer s.observe("entity_update", time.Now(), &err)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanEntity(tx.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.EntityNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	var (
		b            updateBuilder
		props        = current.Properties
		propsChanged bool
	)
	for key, value := range updates {
		switch {
		case protectedEntityKeys[key]:
			// Identity and bookkeeping fields are immutable; silently skipped
			// so bulk callers can round-trip read responses.
		case entityFieldColumns[key]:
			str, ok := value.(string)
			if !ok {
				return nil, &domain.ValidationError{Field: key, Reason: "expected a string"}
			}
			if key == "name" && strings.TrimSpace(str) == "" {
				return nil, &domain.ValidationError{Field: "name", Reason: "name is required"}
			}
			switch key {
			case "name":
				b.Set(key, str)
				current.Name = str
			case "status":
				b.Set(key, str)
				current.Status = str
			case "description":
				// Empty stores as NULL, same as the create path.
				b.Set(key, nullString(str))
				current.Description = str
			}
		case key == "properties":
			bag, ok := value.(map[string]any)
			if !ok {
				return nil, &domain.ValidationError{Field: "properties", Reason: "expected an object"}
			}
			for k, v := range bag {
				if protectedEntityKeys[k] {
					continue
				}
				mergeProperty(props, k, v)
				propsChanged = true
			}
		default:
			mergeProperty(props, key, value)
			propsChanged = true
		}
	}

	if b.Empty() && !propsChanged {
		return current, nil
	}

	// Lookup goes through the open transaction: the pool may be down to a
	// single connection and the transaction holds it.
	def, err := entityTypeDef(ctx, tx, current.Type)
	if err != nil {
		return nil, err
	}
	if !domain.ValidStatus(current.Status, statusSet(def)) {
		return nil, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("invalid status %q", current.Status)}
	}
	if err = def.Schema.Validate(props); err != nil {
		return nil, err
	}

	if propsChanged {
		encoded, encErr := encodeProps(props)
		if encErr != nil {
			return nil, encErr
		}
		b.Set("properties", encoded)
	}
	now := time.Now().UTC()
	b.TouchUpdatedAt(now)

	query, args := b.Build("entities", id)
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update entity: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit entity update: %w", err)
	}

	current.Properties = props
	current.UpdatedAt = &now
	return current, nil
}

func mergeProperty(props map[string]any, key string, value any) {
	if value == nil {
		delete(props, key)
		return
	}
	props[key] = value
}

// DeleteEntity removes one entity and, through the foreign keys, every
// relationship touching it. It reports whether a row was deleted.
func (s *Store) DeleteEntity(ctx context.Context, id string) (_ bool, err error) {
	defer s.observe("entity_delete", time.Now(), &err)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete entity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListEntities returns one page of entities matching the filter, ordered by
// id so repeated reads paginate stably. Property filters compare against
// the JSON property bag with bound parameters only.
func (s *Store) ListEntities(ctx context.Context, f repository.EntityFilter) (_ *domain.EntityPage, err error) {
	defer s.observe("entity_list", time.Now(), &err)

	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	for _, pf := range f.Properties {
		if !validPropertyKey(pf.Key) {
			return nil, &domain.ValidationError{Field: pf.Key, Reason: "invalid property filter key"}
		}
		if !validComparisonOp(pf.Op) {
			return nil, &domain.ValidationError{Field: pf.Key, Reason: fmt.Sprintf("invalid comparison operator %q", pf.Op)}
		}
		where = append(where, "json_extract(properties, ?) "+pf.Op+" ?")
		args = append(args, "$."+pf.Key, pf.Value)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var total int
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`+clause, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count entities: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities`+clause+` ORDER BY id LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
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
	if err = rows.Err(); err != nil {
		return nil, err
	}

	page, pages := domain.PageOf(total, f.Limit, f.Offset)
	return &domain.EntityPage{
		Items: items,
		Total: total,
		Page:  page,
		Size:  f.Limit,
		Pages: pages,
	}, nil
}

// SearchEntities runs a case-insensitive substring match of query over the
// given columns. Columns outside the allow-list are rejected.
func (s *Store) SearchEntities(ctx context.Context, query string, fields []string, limit int) (_ []domain.Entity, err error) {
	defer s.observe("entity_search", time.Now(), &err)

	var (
		where []string
		args  []any
	)
	pattern := "%" + strings.ToLower(query) + "%"
	for _, field := range fields {
		if !searchableColumns[field] {
			return nil, &domain.ValidationError{Field: field, Reason: "field is not searchable"}
		}
		where = append(where, "lower("+field+") LIKE ?")
		args = append(args, pattern)
	}
	if len(where) == 0 {
		return []domain.Entity{}, nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE `+strings.Join(where, " OR ")+` ORDER BY id LIMIT ?`,
		append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to search entities: %w", err)
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

// statusSet returns the type's status enumeration, empty meaning defaults.
func statusSet(def *domain.TypeDefinition) []domain.EntityStatus {
	if def.Schema == nil {
		return nil
	}
	return def.Schema.Statuses
}
