package repository

import (
	"context"

	"github.com/T-6891/Dementor-API/internal/domain"
)

// PropertyFilter is an equality or range condition on one open property.
// Op is restricted to the comparison allow-list enforced by the store.
type PropertyFilter struct {
	Key   string
	Op    string // =, !=, <, <=, >, >=
	Value any
}

// EntityFilter narrows an entity listing.
type EntityFilter struct {
	Type       string
	Status     string
	Properties []PropertyFilter
	Limit      int
	Offset     int
}

// RelationshipFilter narrows a relationship listing around one entity.
type RelationshipFilter struct {
	EntityID  string
	Direction domain.RelationshipDirection
	Type      string
	Limit     int
	Offset    int
}

// EntityRepository provides CRUD, listing, and search over configuration
// items. Create assigns the identifier; updates are partial.
type EntityRepository interface {
	CreateEntity(ctx context.Context, ent *domain.Entity) (*domain.Entity, error)
	GetEntity(ctx context.Context, id string) (*domain.Entity, error)
	UpdateEntity(ctx context.Context, id string, updates map[string]any) (*domain.Entity, error)
	DeleteEntity(ctx context.Context, id string) (bool, error)
	ListEntities(ctx context.Context, f EntityFilter) (*domain.EntityPage, error)
	SearchEntities(ctx context.Context, query string, fields []string, limit int) ([]domain.Entity, error)
}

// RelationshipRepository provides CRUD and listing over typed edges.
type RelationshipRepository interface {
	CreateRelationship(ctx context.Context, req domain.RelationshipCreate) (*domain.Relationship, error)
	GetRelationship(ctx context.Context, id string) (*domain.Relationship, error)
	UpdateRelationship(ctx context.Context, id string, properties map[string]any) (*domain.Relationship, error)
	DeleteRelationship(ctx context.Context, id string) (bool, error)
	ListRelationships(ctx context.Context, f RelationshipFilter) (*domain.RelationshipPage, error)
	ListRelatedEntities(ctx context.Context, f RelationshipFilter) ([]domain.Entity, error)
}

// CatalogRepository reads the seeded type catalogs.
type CatalogRepository interface {
	EntityType(ctx context.Context, name string) (*domain.TypeDefinition, error)
	RelationshipType(ctx context.Context, name string) (*domain.TypeDefinition, error)
	ListEntityTypes(ctx context.Context) ([]domain.TypeDefinition, error)
	ListRelationshipTypes(ctx context.Context) ([]domain.TypeDefinition, error)
}

// HealthRepository exposes the store checks used by the health surface.
type HealthRepository interface {
	Ping(ctx context.Context) error
	CountEntities(ctx context.Context) (int, error)
	CountRelationships(ctx context.Context) (int, error)
}
