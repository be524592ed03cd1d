package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/T-6891/Dementor-API/internal/domain"
	"github.com/T-6891/Dementor-API/internal/repository"
	"github.com/T-6891/Dementor-API/internal/service"
)

// EntityHandler handles configuration item requests.
type EntityHandler struct {
	svc *service.EntityService
}

// NewEntityHandler creates a new entity handler.
func NewEntityHandler(svc *service.EntityService) *EntityHandler {
	return &EntityHandler{svc: svc}
}

// CreateEntityRequest is the create payload.
type CreateEntityRequest struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Status      string         `json:"status,omitempty"`
	Description string         `json:"description,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// Create creates a new entity.
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEntityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ent := domain.NewEntity(req.Type, req.Name)
	ent.Description = req.Description
	if req.Status != "" {
		ent.Status = req.Status
	}
	if req.Properties != nil {
		ent.Properties = req.Properties
	}

	created, err := h.svc.Create(r.Context(), ent)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, created, http.StatusCreated)
}

// Get returns a single entity.
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	ent, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, ent, http.StatusOK)
}

// Update applies a partial update and returns the stored entity.
func (h *EntityHandler) Update(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if !decodeBody(w, r, &updates) {
		return
	}

	ent, err := h.svc.Update(r.Context(), r.PathValue("id"), updates)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, ent, http.StatusOK)
}

// Delete removes an entity and its relationships.
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List returns a page of entities. Filters: type, status, page, size, and
// repeated prop=key:op:value conditions on the open properties.
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	size, _ := strconv.Atoi(q.Get("size"))
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	f := repository.EntityFilter{
		Type:   q.Get("type"),
		Status: q.Get("status"),
		Limit:  size,
	}

	for _, raw := range q["prop"] {
		pf, ok := parsePropertyFilter(raw)
		if !ok {
			writeError(w, "Invalid property filter", raw, http.StatusBadRequest)
			return
		}
		f.Properties = append(f.Properties, pf)
	}

	result, err := h.svc.List(r.Context(), f, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, result, http.StatusOK)
}

// parsePropertyFilter parses key:op:value, with key:value shorthand for
// equality.
func parsePropertyFilter(raw string) (repository.PropertyFilter, bool) {
	parts := strings.SplitN(raw, ":", 3)
	switch len(parts) {
	case 2:
		return repository.PropertyFilter{Key: parts[0], Op: "=", Value: parts[1]}, parts[0] != ""
	case 3:
		return repository.PropertyFilter{Key: parts[0], Op: parts[1], Value: parts[2]}, parts[0] != ""
	default:
		return repository.PropertyFilter{}, false
	}
}

// Search runs a substring search. Query params: q, fields (comma separated),
// limit.
func (h *EntityHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var fields []string
	if raw := q.Get("fields"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	items, err := h.svc.Search(r.Context(), q.Get("q"), fields, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"items": items, "total": len(items)}, http.StatusOK)
}

// ListTypes returns the entity type catalog.
func (h *EntityHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.svc.EntityTypes(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, types, http.StatusOK)
}
