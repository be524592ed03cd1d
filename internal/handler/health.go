package handler

import (
	"net/http"

	"github.com/T-6891/Dementor-API/internal/service"
)

// HealthHandler answers the unauthenticated health and version surface.
type HealthHandler struct {
	svc *service.HealthService
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(svc *service.HealthService) *HealthHandler {
	return &HealthHandler{svc: svc}
}

// Live reports process liveness.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Live(), http.StatusOK)
}

// Detailed reports store health and object counts. A degraded store answers
// 503 so load balancers can act on it.
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	health := h.svc.Detailed(r.Context())
	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, health, status)
}

// Version reports the build version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Version(), http.StatusOK)
}
