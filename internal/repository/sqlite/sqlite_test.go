package sqlite

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"testing"

	"github.com/T-6891/Dementor-API/internal/domain"
	"github.com/T-6891/Dementor-API/internal/idgen"
	"github.com/T-6891/Dementor-API/internal/repository"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestStore creates an in-memory store with seeded type catalogs.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	err = s.SeedTypes(context.Background(),
		[]domain.TypeDefinition{
			{Name: "Server", Category: "Infrastructure", IDPrefix: "SRV"},
			{Name: "Database", Category: "Infrastructure", IDPrefix: "DB"},
			{Name: "Application", Category: "Software", IDPrefix: "APP", Schema: &domain.PropertySchema{
				Required: []domain.PropertyDef{{Name: "owner", Type: "string"}},
				Optional: []domain.PropertyDef{{Name: "tier", Enum: []string{"gold", "silver", "bronze"}}},
			}},
		},
		[]domain.TypeDefinition{
			{Name: "DEPENDS_ON", Category: "Logical"},
			{Name: "HOSTED_ON", Category: "Physical"},
		},
	)
	if err != nil {
		t.Fatalf("failed to seed catalogs: %v", err)
	}
	return s
}

func mustCreateEntity(t *testing.T, s *Store, typ, name string, props map[string]any) *domain.Entity {
	t.Helper()
	ent := domain.NewEntity(typ, name)
	if props != nil {
		ent.Properties = props
	}
	created, err := s.CreateEntity(context.Background(), ent)
	if err != nil {
		t.Fatalf("failed to create entity: %v", err)
	}
	return created
}

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

// ============================================================================
// Entity Tests
// ============================================================================

func TestCreateEntityAssignsID(t *testing.T) {
	s := newTestStore(t)

	ent := mustCreateEntity(t, s, "Server", "web-01", nil)

	if !regexp.MustCompile(`^SRV[0-9]{6}$`).MatchString(ent.ID) {
		t.Fatalf("unexpected entity id format: %q", ent.ID)
	}
	assertEqual(t, domain.StatusActive, ent.Status)
	if ent.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}
	if ent.UpdatedAt != nil {
		t.Fatal("updated_at should be nil on create")
	}
}

func TestCreateEntityUnknownTypeWritesNothing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateEntity(context.Background(), domain.NewEntity("Mainframe", "big-iron"))
	if !errors.Is(err, domain.ErrUnknownType) {
		t.Fatalf("expected unknown type error, got %v", err)
	}

	n, err := s.CountEntities(context.Background())
	assertNoError(t, err)
	assertEqual(t, 0, n)
}

func TestCreateEntityRetriesOnIDCollision(t *testing.T) {
	s := newTestStore(t)
	existing := mustCreateEntity(t, s, "Server", "web-01", nil)

	calls := 0
	s.entityID = func(prefix string) string {
		calls++
		if calls == 1 {
			return existing.ID
		}
		return idgen.EntityID(prefix)
	}

	created := mustCreateEntity(t, s, "Server", "web-02", nil)
	if created.ID == existing.ID {
		t.Fatalf("collision was not retried, reused id %q", created.ID)
	}
	assertEqual(t, 2, calls)
}

func TestCreateEntityConflictAfterExhaustedRetries(t *testing.T) {
	s := newTestStore(t)
	existing := mustCreateEntity(t, s, "Server", "web-01", nil)

	calls := 0
	s.entityID = func(string) string {
		calls++
		return existing.ID
	}

	_, err := s.CreateEntity(context.Background(), domain.NewEntity("Server", "web-02"))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	assertEqual(t, idgen.MaxAttempts, calls)

	n, err := s.CountEntities(context.Background())
	assertNoError(t, err)
	assertEqual(t, 1, n)
}

func TestCreateEntityValidation(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name  string
		entity *domain.Entity
	}{
		{"empty name", domain.NewEntity("Server", "  ")},
		{"bad status", func() *domain.Entity {
			e := domain.NewEntity("Server", "web-01")
			e.Status = "Exploded"
			return e
		}()},
		{"missing required property", domain.NewEntity("Application", "billing")},
		{"enum violation", func() *domain.Entity {
			e := domain.NewEntity("Application", "billing")
			e.SetProperty("owner", "platform")
			e.SetProperty("tier", "platinum")
			return e
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateEntity(context.Background(), tt.entity)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	n, err := s.CountEntities(context.Background())
	assertNoError(t, err)
	assertEqual(t, 0, n)
}

func TestGetEntityNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetEntity(context.Background(), "SRV999999")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEntityRoundTrip(t *testing.T) {
	s := newTestStore(t)

	created := mustCreateEntity(t, s, "Server", "web-01", map[string]any{
		"cpu_cores": float64(8),
		"rack":      "A-12",
	})

	got, err := s.GetEntity(context.Background(), created.ID)
	assertNoError(t, err)
	assertEqual(t, created.ID, got.ID)
	assertEqual(t, "web-01", got.Name)
	assertEqual(t, created.Properties, got.Properties)
}

func TestUpdateEntityPartial(t *testing.T) {
	s := newTestStore(t)
	created := mustCreateEntity(t, s, "Server", "web-01", map[string]any{"rack": "A-12"})

	updated, err := s.UpdateEntity(context.Background(), created.ID, map[string]any{
		"name":   "web-01a",
		"status": domain.StatusMaintenance,
		"properties": map[string]any{
			"rack": "B-03",
			"ip":   "10.0.0.5",
		},
		// Protected keys must be silently ignored.
		"id":   "SRV000000",
		"type": "Database",
	})
	assertNoError(t, err)

	assertEqual(t, created.ID, updated.ID)
	assertEqual(t, "Server", updated.Type)
	assertEqual(t, "web-01a", updated.Name)
	assertEqual(t, domain.StatusMaintenance, updated.Status)
	assertEqual(t, "B-03", updated.Properties["rack"])
	assertEqual(t, "10.0.0.5", updated.Properties["ip"])
	if updated.UpdatedAt == nil {
		t.Fatal("updated_at should be set after an update")
	}

	// Round trip through storage agrees.
	got, err := s.GetEntity(context.Background(), created.ID)
	assertNoError(t, err)
	assertEqual(t, "web-01a", got.Name)
	assertEqual(t, "B-03", got.Properties["rack"])
}

func TestUpdateEntityNoFieldsIsNoOp(t *testing.T) {
	s := newTestStore(t)
	created := mustCreateEntity(t, s, "Server", "web-01", nil)

	// Only protected keys supplied: nothing applicable, no timestamp bump.
	out, err := s.UpdateEntity(context.Background(), created.ID, map[string]any{"id": "SRV000000"})
	assertNoError(t, err)
	if out.UpdatedAt != nil {
		t.Fatal("updated_at must stay nil when nothing was applied")
	}
	assertEqual(t, created.Name, out.Name)
}

func TestUpdateEntityRemovesProperty(t *testing.T) {
	s := newTestStore(t)
	created := mustCreateEntity(t, s, "Server", "web-01", map[string]any{"rack": "A-12"})

	updated, err := s.UpdateEntity(context.Background(), created.ID, map[string]any{"rack": nil})
	assertNoError(t, err)
	if _, ok := updated.Properties["rack"]; ok {
		t.Fatal("nil value should remove the property")
	}
}

func TestUpdateEntityClearedDescriptionStoresNull(t *testing.T) {
	s := newTestStore(t)
	ent := domain.NewEntity("Server", "web-01")
	ent.Description = "primary web node"
	created, err := s.CreateEntity(context.Background(), ent)
	assertNoError(t, err)

	updated, err := s.UpdateEntity(context.Background(), created.ID, map[string]any{"description": ""})
	assertNoError(t, err)
	assertEqual(t, "", updated.Description)

	var isNull bool
	err = s.db.QueryRow(`SELECT description IS NULL FROM entities WHERE id = ?`, created.ID).Scan(&isNull)
	assertNoError(t, err)
	if !isNull {
		t.Fatal("cleared description should be stored as NULL, like on create")
	}
}

func TestUpdateEntityNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpdateEntity(context.Background(), "SRV000000", map[string]any{"name": "x"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteEntityCascades(t *testing.T) {
	s := newTestStore(t)
	src := mustCreateEntity(t, s, "Server", "web-01", nil)
	dst := mustCreateEntity(t, s, "Database", "pg-01", nil)

	rel, err := s.CreateRelationship(context.Background(), domain.RelationshipCreate{
		SourceID: src.ID, TargetID: dst.ID, Type: "DEPENDS_ON",
	})
	assertNoError(t, err)

	ok, err := s.DeleteEntity(context.Background(), src.ID)
	assertNoError(t, err)
	assertEqual(t, true, ok)

	_, err = s.GetRelationship(context.Background(), rel.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("relationship should be gone after endpoint delete, got %v", err)
	}

	// Second delete reports false, not an error.
	ok, err = s.DeleteEntity(context.Background(), src.ID)
	assertNoError(t, err)
	assertEqual(t, false, ok)
}

func TestListEntitiesPaginationIsDisjoint(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		mustCreateEntity(t, s, "Server", name, nil)
	}

	seen := map[string]bool{}
	for offset := 0; offset < 6; offset += 2 {
		page, err := s.ListEntities(context.Background(), repository.EntityFilter{Limit: 2, Offset: offset})
		assertNoError(t, err)
		assertEqual(t, 5, page.Total)
		assertEqual(t, 3, page.Pages)
		for _, ent := range page.Items {
			if seen[ent.ID] {
				t.Fatalf("entity %s appeared on two pages", ent.ID)
			}
			seen[ent.ID] = true
		}
	}
	assertEqual(t, 5, len(seen))
}

func TestListEntitiesFilters(t *testing.T) {
	s := newTestStore(t)
	mustCreateEntity(t, s, "Server", "web-01", map[string]any{"cpu_cores": float64(8)})
	mustCreateEntity(t, s, "Server", "web-02", map[string]any{"cpu_cores": float64(16)})
	mustCreateEntity(t, s, "Database", "pg-01", nil)

	byType, err := s.ListEntities(context.Background(), repository.EntityFilter{Type: "Server", Limit: 10})
	assertNoError(t, err)
	assertEqual(t, 2, byType.Total)

	byProp, err := s.ListEntities(context.Background(), repository.EntityFilter{
		Properties: []repository.PropertyFilter{{Key: "cpu_cores", Op: ">", Value: 10}},
		Limit:      10,
	})
	assertNoError(t, err)
	assertEqual(t, 1, byProp.Total)
	assertEqual(t, "web-02", byProp.Items[0].Name)

	_, err = s.ListEntities(context.Background(), repository.EntityFilter{
		Properties: []repository.PropertyFilter{{Key: "x; DROP TABLE entities", Op: "=", Value: 1}},
		Limit:      10,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for bad filter key, got %v", err)
	}

	_, err = s.ListEntities(context.Background(), repository.EntityFilter{
		Properties: []repository.PropertyFilter{{Key: "cpu_cores", Op: "LIKE", Value: 1}},
		Limit:      10,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for bad operator, got %v", err)
	}
}

func TestSearchEntities(t *testing.T) {
	s := newTestStore(t)
	mustCreateEntity(t, s, "Server", "Web-Frontend", nil)
	mustCreateEntity(t, s, "Server", "backend", nil)

	items, err := s.SearchEntities(context.Background(), "WEB", []string{"name"}, 10)
	assertNoError(t, err)
	assertEqual(t, 1, len(items))
	assertEqual(t, "Web-Frontend", items[0].Name)

	_, err = s.SearchEntities(context.Background(), "web", []string{"properties"}, 10)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for non-searchable field, got %v", err)
	}
}

// ============================================================================
// Relationship Tests
// ============================================================================

func TestCreateRelationshipDenormalizesTypes(t *testing.T) {
	s := newTestStore(t)
	src := mustCreateEntity(t, s, "Server", "web-01", nil)
	dst := mustCreateEntity(t, s, "Database", "pg-01", nil)

	rel, err := s.CreateRelationship(context.Background(), domain.RelationshipCreate{
		SourceID: src.ID, TargetID: dst.ID, Type: "DEPENDS_ON",
	})
	assertNoError(t, err)

	if !regexp.MustCompile(`^REL-[0-9a-f]{8}$`).MatchString(rel.ID) {
		t.Fatalf("unexpected relationship id format: %q", rel.ID)
	}
	assertEqual(t, "Server", rel.SourceType)
	assertEqual(t, "Database", rel.TargetType)

	got, err := s.GetRelationship(context.Background(), rel.ID)
	assertNoError(t, err)
	assertEqual(t, rel.SourceType, got.SourceType)
	assertEqual(t, rel.TargetType, got.TargetType)
}

func TestCreateRelationshipMissingEndpoints(t *testing.T) {
	s := newTestStore(t)
	src := mustCreateEntity(t, s, "Server", "web-01", nil)

	_, err := s.CreateRelationship(context.Background(), domain.RelationshipCreate{
		SourceID: "SRV000000", TargetID: src.ID, Type: "DEPENDS_ON",
	})
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || nf.ID != "SRV000000" {
		t.Fatalf("expected not found for source, got %v", err)
	}

	_, err = s.CreateRelationship(context.Background(), domain.RelationshipCreate{
		SourceID: src.ID, TargetID: "DB000000", Type: "DEPENDS_ON",
	})
	if !errors.As(err, &nf) || nf.ID != "DB000000" {
		t.Fatalf("expected not found for target, got %v", err)
	}

	n, err := s.CountRelationships(context.Background())
	assertNoError(t, err)
	assertEqual(t, 0, n)
}

func TestCreateRelationshipUnknownType(t *testing.T) {
	s := newTestStore(t)
	src := mustCreateEntity(t, s, "Server", "web-01", nil)
	dst := mustCreateEntity(t, s, "Database", "pg-01", nil)

	_, err := s.CreateRelationship(context.Background(), domain.RelationshipCreate{
		SourceID: src.ID, TargetID: dst.ID, Type: "TELEPORTS_TO",
	})
	if !errors.Is(err, domain.ErrUnknownType) {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}

func TestCreateRelationshipConflictAfterExhaustedRetries(t *testing.T) {
	s := newTestStore(t)
	src := mustCreateEntity(t, s, "Server", "web-01", nil)
	dst := mustCreateEntity(t, s, "Database", "pg-01", nil)

	first, err := s.CreateRelationship(context.Background(), domain.RelationshipCreate{
		SourceID: src.ID, TargetID: dst.ID, Type: "DEPENDS_ON",
	})
	assertNoError(t, err)

	s.relationshipID = func() string { return first.ID }

	_, err = s.CreateRelationship(context.Background(), domain.RelationshipCreate{
		SourceID: src.ID, TargetID: dst.ID, Type: "HOSTED_ON",
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	n, err := s.CountRelationships(context.Background())
	assertNoError(t, err)
	assertEqual(t, 1, n)
}

func TestUpdateRelationshipEmptyIsRead(t *testing.T) {
	s := newTestStore(t)
	src := mustCreateEntity(t, s, "Server", "web-01", nil)
	dst := mustCreateEntity(t, s, "Database", "pg-01", nil)
	rel, err := s.CreateRelationship(context.Background(), domain.RelationshipCreate{
		SourceID: src.ID, TargetID: dst.ID, Type: "DEPENDS_ON",
		Properties: map[string]any{"port": float64(5432)},
	})
	assertNoError(t, err)

	before, err := s.GetRelationship(context.Background(), rel.ID)
	assertNoError(t, err)

	out, err := s.UpdateRelationship(context.Background(), rel.ID, map[string]any{})
	assertNoError(t, err)
	if !reflect.DeepEqual(before, out) {
		t.Fatalf("empty update must return the stored state unchanged:\nbefore %+v\nafter  %+v", before, out)
	}
	if out.UpdatedAt != nil {
		t.Fatal("empty update must not bump updated_at")
	}
}

func TestUpdateRelationshipMergesProperties(t *testing.T) {
	s := newTestStore(t)
	src := mustCreateEntity(t, s, "Server", "web-01", nil)
	dst := mustCreateEntity(t, s, "Database", "pg-01", nil)
	rel, err := s.CreateRelationship(context.Background(), domain.RelationshipCreate{
		SourceID: src.ID, TargetID: dst.ID, Type: "DEPENDS_ON",
		Properties: map[string]any{"port": float64(5432)},
	})
	assertNoError(t, err)

	out, err := s.UpdateRelationship(context.Background(), rel.ID, map[string]any{
		"critical": true,
		"id":       "REL-deadbeef", // protected
	})
	assertNoError(t, err)
	assertEqual(t, rel.ID, out.ID)
	assertEqual(t, float64(5432), out.Properties["port"])
	assertEqual(t, true, out.Properties["critical"])
	if out.UpdatedAt == nil {
		t.Fatal("updated_at should be set after a property merge")
	}
}

func TestDeleteRelationship(t *testing.T) {
	s := newTestStore(t)
	src := mustCreateEntity(t, s, "Server", "web-01", nil)
	dst := mustCreateEntity(t, s, "Database", "pg-01", nil)
	rel, err := s.CreateRelationship(context.Background(), domain.RelationshipCreate{
		SourceID: src.ID, TargetID: dst.ID, Type: "DEPENDS_ON",
	})
	assertNoError(t, err)

	ok, err := s.DeleteRelationship(context.Background(), rel.ID)
	assertNoError(t, err)
	assertEqual(t, true, ok)

	ok, err = s.DeleteRelationship(context.Background(), rel.ID)
	assertNoError(t, err)
	assertEqual(t, false, ok)
}

func TestListRelationshipsDirections(t *testing.T) {
	s := newTestStore(t)
	a := mustCreateEntity(t, s, "Server", "a", nil)
	b := mustCreateEntity(t, s, "Server", "b", nil)
	c := mustCreateEntity(t, s, "Database", "c", nil)

	_, err := s.CreateRelationship(context.Background(), domain.RelationshipCreate{
		SourceID: a.ID, TargetID: c.ID, Type: "DEPENDS_ON",
	})
	assertNoError(t, err)
	_, err = s.CreateRelationship(context.Background(), domain.RelationshipCreate{
		SourceID: b.ID, TargetID: a.ID, Type: "HOSTED_ON",
	})
	assertNoError(t, err)

	tests := []struct {
		name      string
		direction domain.RelationshipDirection
		relType   string
		want      int
	}{
		{"outgoing", domain.DirectionOutgoing, "", 1},
		{"incoming", domain.DirectionIncoming, "", 1},
		{"both", domain.DirectionBoth, "", 2},
		{"both filtered by type", domain.DirectionBoth, "HOSTED_ON", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.ListRelationships(context.Background(), repository.RelationshipFilter{
				EntityID: a.ID, Direction: tt.direction, Type: tt.relType, Limit: 10,
			})
			assertNoError(t, err)
			assertEqual(t, tt.want, page.Total)
		})
	}

	// Unknown entity lists empty, not an error.
	page, err := s.ListRelationships(context.Background(), repository.RelationshipFilter{
		EntityID: "SRV000000", Direction: domain.DirectionBoth, Limit: 10,
	})
	assertNoError(t, err)
	assertEqual(t, 0, page.Total)
}

func TestListRelatedEntities(t *testing.T) {
	s := newTestStore(t)
	a := mustCreateEntity(t, s, "Server", "a", nil)
	b := mustCreateEntity(t, s, "Database", "b", nil)
	c := mustCreateEntity(t, s, "Database", "c", nil)

	for _, target := range []string{b.ID, c.ID} {
		_, err := s.CreateRelationship(context.Background(), domain.RelationshipCreate{
			SourceID: a.ID, TargetID: target, Type: "DEPENDS_ON",
		})
		assertNoError(t, err)
	}
	// A second edge to the same target must not duplicate it.
	_, err := s.CreateRelationship(context.Background(), domain.RelationshipCreate{
		SourceID: a.ID, TargetID: b.ID, Type: "HOSTED_ON",
	})
	assertNoError(t, err)

	related, err := s.ListRelatedEntities(context.Background(), repository.RelationshipFilter{
		EntityID: a.ID, Direction: domain.DirectionOutgoing, Limit: 10,
	})
	assertNoError(t, err)
	assertEqual(t, 2, len(related))

	byType, err := s.ListRelatedEntities(context.Background(), repository.RelationshipFilter{
		EntityID: a.ID, Direction: domain.DirectionOutgoing, Type: "HOSTED_ON", Limit: 10,
	})
	assertNoError(t, err)
	assertEqual(t, 1, len(byType))
	assertEqual(t, b.ID, byType[0].ID)

	// From the target's side with direction incoming.
	incoming, err := s.ListRelatedEntities(context.Background(), repository.RelationshipFilter{
		EntityID: b.ID, Direction: domain.DirectionIncoming, Limit: 10,
	})
	assertNoError(t, err)
	assertEqual(t, 1, len(incoming))
	assertEqual(t, a.ID, incoming[0].ID)
}

// ============================================================================
// Catalog Tests
// ============================================================================

func TestListEntityTypesOrdering(t *testing.T) {
	s := newTestStore(t)

	types, err := s.ListEntityTypes(context.Background())
	assertNoError(t, err)
	assertEqual(t, 3, len(types))
	// Ordered by category, then name.
	assertEqual(t, "Database", types[0].Name)
	assertEqual(t, "Server", types[1].Name)
	assertEqual(t, "Application", types[2].Name)
}

func TestTypeSchemaRoundTrip(t *testing.T) {
	s := newTestStore(t)

	def, err := s.EntityType(context.Background(), "Application")
	assertNoError(t, err)
	if def.Schema == nil {
		t.Fatal("schema should survive the catalog round trip")
	}
	assertEqual(t, "owner", def.Schema.Required[0].Name)
	assertEqual(t, "APP", def.IDPrefix)

	_, err = s.EntityType(context.Background(), "Nope")
	if !errors.Is(err, domain.ErrUnknownType) {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}
