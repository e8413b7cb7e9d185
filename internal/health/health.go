// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package health provides liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ManuGH/dlking/internal/log"
)

// Status represents the state of one component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the liveness body. Status is always "ok".
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse represents the readiness check response.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for readiness checks.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager manages health and readiness checks.
type Manager struct {
	service  string
	version  string
	checkers []Checker
	now      func() time.Time
}

// NewManager creates a new health check manager.
func NewManager(service, version string) *Manager {
	return &Manager{service: service, version: version, now: time.Now}
}

// RegisterChecker adds a readiness checker.
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// Health reports liveness. It never runs checks.
func (m *Manager) Health() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Service:   m.service,
		Version:   m.version,
		Timestamp: m.now().UTC(),
	}
}

// Ready runs every checker. Any unhealthy component makes the service not ready.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: m.now().UTC(),
	}
	if len(m.checkers) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult, len(m.checkers))
	hasDegraded := false
	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		resp.Checks[checker.Name()] = result

		switch result.Status {
		case StatusUnhealthy:
			resp.Ready = false
		case StatusDegraded:
			hasDegraded = true
		}
	}

	if !resp.Ready {
		resp.Status = StatusUnhealthy
	} else if hasDegraded {
		resp.Status = StatusDegraded
	}
	return resp
}

// ServeHealth handles liveness requests; always 200.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, m.Health(), "health.encode_error")
}

// ServeReady handles readiness requests; 503 when not ready.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, resp, "readiness.encode_error")

	logger := log.WithComponentFromContext(r.Context(), "readiness")
	logger.Debug().
		Str(log.FieldEvent, "readiness.checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness check performed")
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any, failEvent string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "health")
		logger.Error().Err(err).Str(log.FieldEvent, failEvent).Msg("failed to encode response")
	}
}
