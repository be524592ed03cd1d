package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/T-6891/Dementor-API/internal/domain"
)

// querier is the read surface shared by *sql.DB and *sql.Tx, letting the
// catalog lookups run inside an open transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// EntityType returns one entity type catalog entry by name.
func (s *Store) EntityType(ctx context.Context, name string) (*domain.TypeDefinition, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return entityTypeDef(ctx, s.db, name)
}

func entityTypeDef(ctx context.Context, q querier, name string) (*domain.TypeDefinition, error) {
	def, err := scanTypeDefinition(q.QueryRowContext(ctx,
		`SELECT name, description, category, id_prefix, schema FROM entity_types WHERE name = ?`, name), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.UnknownTypeError{Kind: "entity", Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity type: %w", err)
	}
	return def, nil
}

// RelationshipType returns one relationship type catalog entry by name.
func (s *Store) RelationshipType(ctx context.Context, name string) (*domain.TypeDefinition, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return relationshipTypeDef(ctx, s.db, name)
}

func relationshipTypeDef(ctx context.Context, q querier, name string) (*domain.TypeDefinition, error) {
	def, err := scanTypeDefinition(q.QueryRowContext(ctx,
		`SELECT name, description, category, schema FROM relationship_types WHERE name = ?`, name), false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.UnknownTypeError{Kind: "relationship", Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship type: %w", err)
	}
	return def, nil
}

// ListEntityTypes returns the entity type catalog ordered by category then
// name.
func (s *Store) ListEntityTypes(ctx context.Context) (_ []domain.TypeDefinition, err error) {
	defer s.observe("entity_types_list", time.Now(), &err)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description, category, id_prefix, schema FROM entity_types ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list entity types: %w", err)
	}
	defer rows.Close()

	return collectTypes(rows, true)
}

// ListRelationshipTypes returns the relationship type catalog ordered by
// category then name.
func (s *Store) ListRelationshipTypes(ctx context.Context) (_ []domain.TypeDefinition, err error) {
	defer s.observe("relationship_types_list", time.Now(), &err)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description, category, schema FROM relationship_types ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationship types: %w", err)
	}
	defer rows.Close()

	return collectTypes(rows, false)
}

func collectTypes(rows *sql.Rows, withPrefix bool) ([]domain.TypeDefinition, error) {
	items := make([]domain.TypeDefinition, 0)
	for rows.Next() {
		def, err := scanTypeDefinition(rows, withPrefix)
		if err != nil {
			return nil, err
		}
		items = append(items, *def)
	}
	return items, rows.Err()
}

// SeedTypes inserts catalog entries, replacing existing entries of the same
// name. Used by deployment seeding and tests.
func (s *Store) SeedTypes(ctx context.Context, entityTypes, relationshipTypes []domain.TypeDefinition) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, def := range entityTypes {
		schema, err := encodeSchema(def.Schema)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO entity_types (name, description, category, id_prefix, schema)
			VALUES (?, ?, ?, ?, ?)`,
			def.Name, def.Description, def.Category, nullString(def.IDPrefix), schema); err != nil {
			return fmt.Errorf("failed to seed entity type %q: %w", def.Name, err)
		}
	}
	for _, def := range relationshipTypes {
		schema, err := encodeSchema(def.Schema)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO relationship_types (name, description, category, schema)
			VALUES (?, ?, ?, ?)`,
			def.Name, def.Description, def.Category, schema); err != nil {
			return fmt.Errorf("failed to seed relationship type %q: %w", def.Name, err)
		}
	}

	return tx.Commit()
}
