// Package service holds the business logic between the HTTP handlers and
// the repositories: pagination clamping, search defaults, bulk fan-out,
// and the health roll-up.
package service

import (
	"context"
	"strings"

	"github.com/T-6891/Dementor-API/internal/config"
	"github.com/T-6891/Dementor-API/internal/domain"
	"github.com/T-6891/Dementor-API/internal/repository"
)

// defaultSearchFields are searched when a query names none.
var defaultSearchFields = []string{"id", "name", "description"}

// EntityService orchestrates configuration item operations.
type EntityService struct {
	repo    repository.EntityRepository
	catalog repository.CatalogRepository
	pag     config.PaginationConfig
}

// NewEntityService creates an EntityService.
func NewEntityService(repo repository.EntityRepository, catalog repository.CatalogRepository, pag config.PaginationConfig) *EntityService {
	return &EntityService{repo: repo, catalog: catalog, pag: pag}
}

// Create validates and stores a new entity. The identifier is assigned by
// the store.
func (s *EntityService) Create(ctx context.Context, ent *domain.Entity) (*domain.Entity, error) {
	return s.repo.CreateEntity(ctx, ent)
}

// Get returns one entity by id.
func (s *EntityService) Get(ctx context.Context, id string) (*domain.Entity, error) {
	return s.repo.GetEntity(ctx, id)
}

// Update applies a partial update and returns the stored entity.
func (s *EntityService) Update(ctx context.Context, id string, updates map[string]any) (*domain.Entity, error) {
	return s.repo.UpdateEntity(ctx, id, updates)
}

// Delete removes one entity and its relationships.
func (s *EntityService) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.DeleteEntity(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.EntityNotFound(id)
	}
	return nil
}

// List returns one page of entities. The size is clamped to the configured
// bounds before the 1-based page is turned into an offset.
func (s *EntityService) List(ctx context.Context, f repository.EntityFilter, page int) (*domain.EntityPage, error) {
	f.Limit = clamp(f.Limit, s.pag.DefaultPageSize, s.pag.MaxPageSize)
	if page < 1 {
		page = 1
	}
	f.Offset = (page - 1) * f.Limit
	return s.repo.ListEntities(ctx, f)
}

// Search runs a substring search over the given fields, defaulting to
// id, name, and description.
func (s *EntityService) Search(ctx context.Context, query string, fields []string, limit int) ([]domain.Entity, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &domain.ValidationError{Field: "q", Reason: "search query is required"}
	}
	if len(fields) == 0 {
		fields = defaultSearchFields
	}
	limit = clamp(limit, s.pag.DefaultSearchLimit, s.pag.MaxSearchLimit)
	return s.repo.SearchEntities(ctx, query, fields, limit)
}

// EntityTypes returns the entity type catalog.
func (s *EntityService) EntityTypes(ctx context.Context) (*domain.TypeList, error) {
	items, err := s.catalog.ListEntityTypes(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.TypeList{Items: items, Total: len(items)}, nil
}

// clamp applies the default when n is unset and the maximum otherwise.
func clamp(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
