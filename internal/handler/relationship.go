package handler

import (
	"net/http"
	"strconv"

	"github.com/T-6891/Dementor-API/internal/domain"
	"github.com/T-6891/Dementor-API/internal/repository"
	"github.com/T-6891/Dementor-API/internal/service"
)

// RelationshipHandler handles edge requests.
type RelationshipHandler struct {
	svc *service.RelationshipService
}

// NewRelationshipHandler creates a new relationship handler.
func NewRelationshipHandler(svc *service.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{svc: svc}
}

// Create creates a new relationship.
func (h *RelationshipHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.RelationshipCreate
	if !decodeBody(w, r, &req) {
		return
	}

	rel, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, rel, http.StatusCreated)
}

// Get returns a single relationship.
func (h *RelationshipHandler) Get(w http.ResponseWriter, r *http.Request) {
	rel, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, rel, http.StatusOK)
}

// Update merges properties into a relationship. An empty body is a no-op
// read of the current state.
func (h *RelationshipHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Properties map[string]any `json:"properties"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	rel, err := h.svc.Update(r.Context(), r.PathValue("id"), req.Properties)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, rel, http.StatusOK)
}

// Delete removes a relationship.
func (h *RelationshipHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListByEntity returns a page of edges touching one entity. Query params:
// direction (outgoing, incoming, both), type, page, size.
func (h *RelationshipHandler) ListByEntity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size, _ := strconv.Atoi(q.Get("size"))
	page, _ := strconv.Atoi(q.Get("page"))

	f := repository.RelationshipFilter{
		EntityID:  r.PathValue("id"),
		Direction: domain.RelationshipDirection(q.Get("direction")),
		Type:      q.Get("type"),
		Limit:     size,
	}

	result, err := h.svc.ListByEntity(r.Context(), f, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, result, http.StatusOK)
}

// ListRelated returns the entities on the far end of one entity's edges.
// Query params: direction, type, page, size.
func (h *RelationshipHandler) ListRelated(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size, _ := strconv.Atoi(q.Get("size"))
	page, _ := strconv.Atoi(q.Get("page"))

	f := repository.RelationshipFilter{
		EntityID:  r.PathValue("id"),
		Direction: domain.RelationshipDirection(q.Get("direction")),
		Type:      q.Get("type"),
		Limit:     size,
	}

	items, err := h.svc.RelatedEntities(r.Context(), f, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"items": items, "total": len(items)}, http.StatusOK)
}

// BulkCreate creates many relationships, reporting per-item outcomes.
func (h *RelationshipHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []domain.RelationshipCreate `json:"items"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		writeError(w, "Invalid request body", "items is required", http.StatusBadRequest)
		return
	}

	results := h.svc.BulkCreate(r.Context(), req.Items)
	writeJSON(w, map[string]any{"results": results, "total": len(results)}, http.StatusOK)
}

// BulkDelete removes many relationships, reporting per-item outcomes.
func (h *RelationshipHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, "Invalid request body", "ids is required", http.StatusBadRequest)
		return
	}

	results := h.svc.BulkDelete(r.Context(), req.IDs)
	writeJSON(w, map[string]any{"results": results, "total": len(results)}, http.StatusOK)
}

// ListTypes returns the relationship type catalog.
func (h *RelationshipHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.svc.RelationshipTypes(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, types, http.StatusOK)
}
