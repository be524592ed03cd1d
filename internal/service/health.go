package service

import (
	"context"
	"time"

	"github.com/T-6891/Dementor-API/internal/repository"
)

// HealthStatus is the liveness answer.
type HealthStatus struct {
	Status  string `json:"status"`
	AppName string `json:"app_name"`
	Version string `json:"version"`
}

// DetailedHealth adds the store check and object counts.
type DetailedHealth struct {
	Status        string `json:"status"`
	AppName       string `json:"app_name"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Database      struct {
		Status        string `json:"status"`
		Entities      int    `json:"entities"`
		Relationships int    `json:"relationships"`
	} `json:"database"`
}

// HealthService answers the liveness and readiness surface.
type HealthService struct {
	repo    repository.HealthRepository
	appName string
	version string
	started time.Time
}

// NewHealthService creates a HealthService anchored at process start.
func NewHealthService(repo repository.HealthRepository, appName, version string) *HealthService {
	return &HealthService{repo: repo, appName: appName, version: version, started: time.Now()}
}

// Live reports process liveness without touching the store.
func (s *HealthService) Live() HealthStatus {
	return HealthStatus{Status: "ok", AppName: s.appName, Version: s.version}
}

// Detailed checks the store and reports object counts. A failing store
// degrades the overall status instead of erroring so the endpoint always
// answers.
func (s *HealthService) Detailed(ctx context.Context) DetailedHealth {
	h := DetailedHealth{
		Status:        "ok",
		AppName:       s.appName,
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	h.Database.Status = "ok"

	if err := s.repo.Ping(ctx); err != nil {
		h.Status = "degraded"
		h.Database.Status = "unreachable"
		return h
	}
	if n, err := s.repo.CountEntities(ctx); err == nil {
		h.Database.Entities = n
	}
	if n, err := s.repo.CountRelationships(ctx); err == nil {
		h.Database.Relationships = n
	}
	return h
}

// Version reports the build version string.
func (s *HealthService) Version() map[string]string {
	return map[string]string{"app_name": s.appName, "version": s.version}
}
