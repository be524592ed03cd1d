package handler

import (
	"net/http"

	"github.com/T-6891/Dementor-API/internal/auth"
	"github.com/T-6891/Dementor-API/internal/metric"
)

// Routes assembles the API surface. Health, version, and metrics are open;
// everything under /api/v1 requires an API key. Reads need the read
// permission, single writes need write, and bulk operations plus the
// detailed health view need admin.
func Routes(entities *EntityHandler, relationships *RelationshipHandler, health *HealthHandler, gw *auth.Gateway, m *metric.Metrics) *http.ServeMux {
	mux := http.NewServeMux()

	read := func(h http.HandlerFunc) http.HandlerFunc { return RequireKey(gw, auth.PermissionRead, h) }
	write := func(h http.HandlerFunc) http.HandlerFunc { return RequireKey(gw, auth.PermissionWrite, h) }
	admin := func(h http.HandlerFunc) http.HandlerFunc { return RequireKey(gw, auth.PermissionAdmin, h) }

	// Entity endpoints
	mux.HandleFunc("POST /api/v1/entities", write(entities.Create))
	mux.HandleFunc("GET /api/v1/entities", read(entities.List))
	mux.HandleFunc("GET /api/v1/entities/types", read(entities.ListTypes))
	mux.HandleFunc("GET /api/v1/entities/search", read(entities.Search))
	mux.HandleFunc("GET /api/v1/entities/{id}", read(entities.Get))
	mux.HandleFunc("PUT /api/v1/entities/{id}", write(entities.Update))
	mux.HandleFunc("DELETE /api/v1/entities/{id}", write(entities.Delete))
	mux.HandleFunc("GET /api/v1/entities/{id}/related", read(relationships.ListRelated))
	mux.HandleFunc("GET /api/v1/entities/{id}/relationships", read(relationships.ListByEntity))

	// Relationship endpoints
	mux.HandleFunc("POST /api/v1/relationships", write(relationships.Create))
	mux.HandleFunc("GET /api/v1/relationships/types", read(relationships.ListTypes))
	mux.HandleFunc("POST /api/v1/relationships/bulk", admin(relationships.BulkCreate))
	mux.HandleFunc("POST /api/v1/relationships/bulk/delete", admin(relationships.BulkDelete))
	mux.HandleFunc("GET /api/v1/relationships/{id}", read(relationships.Get))
	mux.HandleFunc("PUT /api/v1/relationships/{id}", write(relationships.Update))
	mux.HandleFunc("DELETE /api/v1/relationships/{id}", write(relationships.Delete))

	// Open surface
	mux.HandleFunc("GET /health", health.Live)
	mux.HandleFunc("GET /health/detailed", admin(health.Detailed))
	mux.HandleFunc("GET /version", health.Version)
	mux.Handle("GET /metrics", m.Handler())

	return mux
}
