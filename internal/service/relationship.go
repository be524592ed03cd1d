package service

import (
	"context"

	"github.com/T-6891/Dementor-API/internal/config"
	"github.com/T-6891/Dementor-API/internal/domain"
	"github.com/T-6891/Dementor-API/internal/repository"
)

// RelationshipService orchestrates edge operations, including the bulk
// variants.
type RelationshipService struct {
	repo    repository.RelationshipRepository
	catalog repository.CatalogRepository
	pag     config.PaginationConfig
}

// NewRelationshipService creates a RelationshipService.
func NewRelationshipService(repo repository.RelationshipRepository, catalog repository.CatalogRepository, pag config.PaginationConfig) *RelationshipService {
	return &RelationshipService{repo: repo, catalog: catalog, pag: pag}
}

// Create stores one edge after endpoint and type validation.
func (s *RelationshipService) Create(ctx context.Context, req domain.RelationshipCreate) (*domain.Relationship, error) {
	return s.repo.CreateRelationship(ctx, req)
}

// Get returns one relationship by id.
func (s *RelationshipService) Get(ctx context.Context, id string) (*domain.Relationship, error) {
	return s.repo.GetRelationship(ctx, id)
}

// Update merges properties into one edge.
func (s *RelationshipService) Update(ctx context.Context, id string, properties map[string]any) (*domain.Relationship, error) {
	return s.repo.UpdateRelationship(ctx, id, properties)
}

// Delete removes one edge.
func (s *RelationshipService) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.DeleteRelationship(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.RelationshipNotFound(id)
	}
	return nil
}

// ListByEntity returns one page of edges touching an entity.
func (s *RelationshipService) ListByEntity(ctx context.Context, f repository.RelationshipFilter, page int) (*domain.RelationshipPage, error) {
	f.Limit = clamp(f.Limit, s.pag.DefaultPageSize, s.pag.MaxPageSize)
	if page < 1 {
		page = 1
	}
	f.Offset = (page - 1) * f.Limit
	if f.Direction == "" {
		f.Direction = domain.DirectionBoth
	}
	return s.repo.ListRelationships(ctx, f)
}

// RelatedEntities returns the entities on the far end of an entity's edges.
func (s *RelationshipService) RelatedEntities(ctx context.Context, f repository.RelationshipFilter, page int) ([]domain.Entity, error) {
	f.Limit = clamp(f.Limit, s.pag.DefaultPageSize, s.pag.MaxPageSize)
	if page < 1 {
		page = 1
	}
	f.Offset = (page - 1) * f.Limit
	if f.Direction == "" {
		f.Direction = domain.DirectionBoth
	}
	return s.repo.ListRelatedEntities(ctx, f)
}

// BulkCreate processes each item independently and in order. A failed item
// never aborts the batch; its error is reported in its result slot.
func (s *RelationshipService) BulkCreate(ctx context.Context, reqs []domain.RelationshipCreate) []domain.BulkResult {
	results := make([]domain.BulkResult, 0, len(reqs))
	for _, req := range reqs {
		rel, err := s.repo.CreateRelationship(ctx, req)
		if err != nil {
			results = append(results, domain.BulkResult{OK: false, Error: err.Error()})
			continue
		}
		results = append(results, domain.BulkResult{ID: rel.ID, OK: true, Relationship: rel})
	}
	return results
}

// BulkDelete removes each edge independently and in order.
func (s *RelationshipService) BulkDelete(ctx context.Context, ids []string) []domain.BulkResult {
	results := make([]domain.BulkResult, 0, len(ids))
	for _, id := range ids {
		ok, err := s.repo.DeleteRelationship(ctx, id)
		switch {
		case err != nil:
			results = append(results, domain.BulkResult{ID: id, OK: false, Error: err.Error()})
		case !ok:
			results = append(results, domain.BulkResult{ID: id, OK: false, Error: domain.RelationshipNotFound(id).Error()})
		default:
			results = append(results, domain.BulkResult{ID: id, OK: true})
		}
	}
	return results
}

// RelationshipTypes returns the relationship type catalog.
func (s *RelationshipService) RelationshipTypes(ctx context.Context) (*domain.TypeList, error) {
	items, err := s.catalog.ListRelationshipTypes(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.TypeList{Items: items, Total: len(items)}, nil
}
