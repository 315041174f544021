package services

import (
	"context"
	"time"

	"idqcli/internal/config"
)

// HealthService answers liveness and readiness probes.
type HealthService struct {
	cfg       *config.Config
	startedAt time.Time
	version   string
}

// NewHealthService creates a health service.
func NewHealthService(cfg *config.Config, version string) *HealthService {
	return &HealthService{
		cfg:       cfg,
		startedAt: time.Now(),
		version:   version,
	}
}

// HealthStatus is the probe response body.
type HealthStatus struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// HealthCheck reports overall service health.
func (s *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:  "healthy",
		Uptime:  time.Since(s.startedAt).Round(time.Second).String(),
		Version: s.version,
	}
}

// LivenessCheck reports that the process is alive.
func (s *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{Status: "alive", Version: s.version}
}

// Version reports build information.
func (s *HealthService) Version() map[string]string {
	return map[string]string{
		"name":    config.AppName,
		"version": s.version,
	}
}
