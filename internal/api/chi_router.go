// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daybook-dev/daybook/internal/auth"
	"github.com/daybook-dev/daybook/internal/config"
	"github.com/daybook-dev/daybook/internal/middleware"
)

// Router wires handlers, auth, and middleware into the chi route tree.
type Router struct {
	handler *Handler
	authmw  *auth.Middleware
	chimw   *ChiMiddleware
}

// NewRouter creates a router for the given handler and auth middleware.
func NewRouter(handler *Handler, authmw *auth.Middleware, cfg *config.Config) *Router {
	return &Router{
		handler: handler,
		authmw:  authmw,
		chimw:   NewChiMiddleware(&cfg.Security),
	}
}

// Setup builds the full route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chimw.CORS())
	r.Use(middleware.RequestLogger)

	// Prometheus scrape endpoint.
	r.Handle("/metrics", promhttp.Handler())

	// Health endpoints stay unauthenticated for orchestrators.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chimw.RateLimitHealth())
		r.Use(SecurityHeaders)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	// Login is throttled hard to slow credential guessing.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(SecurityHeaders)
		r.With(router.chimw.RateLimitLogin()).Post("/login", router.handler.Login)
	})

	// All data endpoints require authentication.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chimw.RateLimit())
		r.Use(SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.authmw.RequireAuth)

		// Snapshot pipeline. Export is compressed; restore holds a write
		// transaction, so it gets its own tight rate limit.
		r.With(middleware.Compression).Get("/snapshot/export", router.handler.SnapshotExport)
		r.With(router.chimw.RateLimitRestore()).Post("/snapshot/restore", router.handler.SnapshotRestore)

		r.Route("/workspaces", func(r chi.Router) {
			r.Get("/", router.handler.WorkspacesList)
			r.Post("/", router.handler.WorkspaceCreate)
			r.Get("/{id}", router.handler.WorkspaceGet)
			r.Put("/{id}", router.handler.WorkspaceUpdate)
			r.Delete("/{id}", router.handler.WorkspaceDelete)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", router.handler.TasksList)
			r.Post("/", router.handler.TaskCreate)
			r.Get("/{id}", router.handler.TaskGet)
			r.Put("/{id}", router.handler.TaskUpdate)
			r.Delete("/{id}", router.handler.TaskDelete)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Get("/", router.handler.GoalsList)
			r.Post("/", router.handler.GoalCreate)
			r.Get("/{id}", router.handler.GoalGet)
			r.Put("/{id}", router.handler.GoalUpdate)
			r.Delete("/{id}", router.handler.GoalDelete)
		})

		r.Route("/habits", func(r chi.Router) {
			r.Get("/", router.handler.HabitsList)
			r.Post("/", router.handler.HabitCreate)
			r.Get("/{id}", router.handler.HabitGet)
			r.Post("/{id}/complete", router.handler.HabitComplete)
			r.Delete("/{id}", router.handler.HabitDelete)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", router.handler.TemplatesList)
			r.Post("/", router.handler.TemplateCreate)
			r.Get("/installs", router.handler.TemplateInstallsList)
			r.Get("/{id}", router.handler.TemplateGet)
			r.Delete("/{id}", router.handler.TemplateDelete)
			r.Post("/{id}/install", router.handler.TemplateInstall)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Use(router.authmw.RequireAdmin)
			r.Get("/events", router.handler.AuditEvents)
		})
	})

	return r
}
