// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/daybook-dev/daybook/internal/audit"
	"github.com/daybook-dev/daybook/internal/auth"
	"github.com/daybook-dev/daybook/internal/config"
	"github.com/daybook-dev/daybook/internal/database"
	"github.com/daybook-dev/daybook/internal/notify"
	"github.com/daybook-dev/daybook/internal/snapshot"
	"github.com/daybook-dev/daybook/internal/templates"
)

// maxRequestBodyBytes bounds regular JSON request bodies. Snapshot restore
// has its own, larger limit from config.
const maxRequestBodyBytes = 1 << 20

// Deps bundles the services the HTTP handlers depend on. Authenticator and
// JWT are nil when AUTH_MODE=none.
type Deps struct {
	Config        *config.Config
	DB            *database.DB
	Audit         *audit.Logger
	Authenticator *auth.Authenticator
	JWT           *auth.JWTManager
	Notifier      *notify.Notifier
}

// Handler holds all HTTP endpoint implementations.
type Handler struct {
	cfg         *config.Config
	db          *database.DB
	audit       *audit.Logger
	authn       *auth.Authenticator
	jwt         *auth.JWTManager
	notifier    *notify.Notifier
	assembler   *snapshot.Assembler
	coordinator *snapshot.Coordinator
	catalog     *templates.Catalog
	installer   *templates.Installer
	startTime   time.Time
}

// NewHandler creates a handler with the snapshot pipeline and template
// catalog wired to the database.
func NewHandler(d Deps) *Handler {
	catalog := templates.NewCatalog(d.DB.Store)
	return &Handler{
		cfg:         d.Config,
		db:          d.DB,
		audit:       d.Audit,
		authn:       d.Authenticator,
		jwt:         d.JWT,
		notifier:    d.Notifier,
		assembler:   snapshot.NewAssembler(d.DB.Store),
		coordinator: snapshot.NewCoordinator(d.DB),
		catalog:     catalog,
		installer:   templates.NewInstaller(d.DB, catalog),
		startTime:   time.Now(),
	}
}

// identity extracts the authenticated identity, writing a 401 when absent.
// The auth middleware guarantees presence on protected routes, so a miss
// here means a routing mistake.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		NewResponseWriter(w, r).Unauthorized("authentication required")
		return auth.Identity{}, false
	}
	return id, true
}

// decodeJSON decodes a bounded JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// uuidParam parses a UUID from a chi route parameter.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}
