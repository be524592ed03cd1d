package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/T-6891/Dementor-API/internal/domain"
)

// nullString converts an optional string for storage.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTime converts an optional timestamp for storage.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// encodeProps serializes open properties to the JSON column. A nil or empty
// map stores as NULL so untouched rows stay compact.
func encodeProps(props map[string]any) (sql.NullString, error) {
	if len(props) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode properties: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// decodeProps deserializes the JSON column. NULL decodes to an empty map so
// callers never see a nil property bag.
func decodeProps(raw sql.NullString) (map[string]any, error) {
	if !raw.Valid || raw.String == "" {
		return map[string]any{}, nil
	}
	var props map[string]any
	if err := json.Unmarshal([]byte(raw.String), &props); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	if props == nil {
		props = map[string]any{}
	}
	return props, nil
}

// encodeSchema serializes a property schema to its catalog column.
func encodeSchema(schema *domain.PropertySchema) (sql.NullString, error) {
	if schema == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode schema: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// entityColumns is the projection every entity read uses, in scan order.
const entityColumns = `id, type, name, status, description, properties, created_at, updated_at`

func scanEntity(sc scanner) (*domain.Entity, error) {
	var (
		ent       domain.Entity
		desc      sql.NullString
		props     sql.NullString
		updatedAt sql.NullTime
	)
	if err := sc.Scan(&ent.ID, &ent.Type, &ent.Name, &ent.Status, &desc, &props, &ent.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	ent.Description = desc.String
	if updatedAt.Valid {
		t := updatedAt.Time
		ent.UpdatedAt = &t
	}
	decoded, err := decodeProps(props)
	if err != nil {
		return nil, err
	}
	ent.Properties = decoded
	return &ent, nil
}

// relationshipColumns joins the endpoints so source and target types come
// back denormalized in a single read.
const relationshipColumns = `r.id, r.type, r.source_id, r.target_id, s.type, t.type, r.properties, r.created_at, r.updated_at`

const relationshipJoin = `relationships r
	JOIN entities s ON s.id = r.source_id
	JOIN entities t ON t.id = r.target_id`

func scanRelationship(sc scanner) (*domain.Relationship, error) {
	var (
		rel       domain.Relationship
		props     sql.NullString
		updatedAt sql.NullTime
	)
	if err := sc.Scan(&rel.ID, &rel.Type, &rel.SourceID, &rel.TargetID,
		&rel.SourceType, &rel.TargetType, &props, &rel.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		rel.UpdatedAt = &t
	}
	decoded, err := decodeProps(props)
	if err != nil {
		return nil, err
	}
	rel.Properties = decoded
	return &rel, nil
}

func scanTypeDefinition(sc scanner, withPrefix bool) (*domain.TypeDefinition, error) {
	var (
		def    domain.TypeDefinition
		prefix sql.NullString
		schema sql.NullString
	)
	dest := []any{&def.Name, &def.Description, &def.Category}
	if withPrefix {
		dest = append(dest, &prefix)
	}
	dest = append(dest, &schema)
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}
	def.IDPrefix = prefix.String
	if schema.Valid && schema.String != "" {
		var ps domain.PropertySchema
		if err := json.Unmarshal([]byte(schema.String), &ps); err != nil {
			return nil, fmt.Errorf("failed to decode schema for type %q: %w", def.Name, err)
		}
		def.Schema = &ps
	}
	return &def, nil
}
