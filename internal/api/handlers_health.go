// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package api

import (
	"net/http"
	"time"

	"github.com/daybook-dev/daybook/internal/models"
)

// Version is the application version, overridable at build time with
// -ldflags "-X github.com/daybook-dev/daybook/internal/api.Version=...".
var Version = "dev"

type healthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	UptimeS  int64             `json:"uptime_seconds"`
	Checks   map[string]string `json:"checks"`
}

// HealthLive reports process liveness. It never touches dependencies so
// orchestrators can distinguish a hung process from a degraded one.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady reports readiness to serve traffic. Fails when the database
// is unreachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if err := h.db.Ping(r.Context()); err != nil {
		rw.Error(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "database not reachable")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

// Health reports overall status with per-dependency checks.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	checks := map[string]string{"database": "ok"}
	status := "healthy"

	if err := h.db.Ping(r.Context()); err != nil {
		checks["database"] = "unreachable"
		status = "degraded"
	}
	if h.notifier != nil && h.notifier.Enabled() {
		checks["slack"] = "configured"
	}

	resp := healthResponse{
		Status:  status,
		Version: Version,
		UptimeS: int64(time.Since(h.startTime).Seconds()),
		Checks:  checks,
	}
	if status != "healthy" {
		rw.writeJSON(http.StatusServiceUnavailable, models.APIResponse{
			Status:   "error",
			Data:     resp,
			Metadata: rw.metadata(),
			Error:    &models.APIError{Code: "SERVICE_UNAVAILABLE", Message: "one or more dependencies are degraded"},
		})
		return
	}
	rw.Success(resp)
}
