// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/daybook-dev/daybook/internal/audit"
	"github.com/daybook-dev/daybook/internal/database"
	"github.com/daybook-dev/daybook/internal/metrics"
	"github.com/daybook-dev/daybook/internal/models"
	"github.com/daybook-dev/daybook/internal/templates"
	"github.com/daybook-dev/daybook/internal/validation"
)

// TemplatesList returns builtin catalog templates plus the user's own.
func (h *Handler) TemplatesList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	list, err := h.catalog.List(r.Context(), id.UserID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(list)
}

// TemplateGet returns a single template. Other users' templates are
// indistinguishable from missing ones.
func (h *Handler) TemplateGet(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	templateID, err := uuidParam(r, "id")
	if err != nil {
		rw.BadRequest("invalid template id")
		return
	}

	tpl, err := h.catalog.Get(r.Context(), templateID, id.UserID)
	if err != nil {
		if errors.Is(err, templates.ErrTemplateNotFound) {
			rw.NotFound("template not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(tpl)
}

type createTemplateRequest struct {
	Name        string                 `json:"name" validate:"required,max=200"`
	Description string                 `json:"description" validate:"max=2000"`
	Category    string                 `json:"category" validate:"max=100"`
	Entries     []models.TemplateEntry `json:"entries" validate:"required,min=1"`
}

// TemplateCreate saves a user-defined template to the catalog.
func (h *Handler) TemplateCreate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req createTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		rw.ValidationError(ve)
		return
	}

	owner := id.UserID
	now := time.Now().UTC()
	tpl := &models.Template{
		ID:          uuid.New(),
		OwnerID:     &owner,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Builtin:     false,
		Entries:     req.Entries,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tpl.Validate(); err != nil {
		rw.BadRequest(err.Error())
		return
	}

	if err := h.catalog.Create(r.Context(), tpl); err != nil {
		rw.DatabaseError(err)
		return
	}

	h.audit.Log(&audit.Event{
		Type:        audit.EventTypeTemplateCreated,
		Severity:    audit.SeverityInfo,
		Outcome:     audit.OutcomeSuccess,
		Actor:       audit.Actor{ID: id.UserID, Type: "user", Name: id.Email},
		Target:      &audit.Target{ID: tpl.ID.String(), Type: "template", Name: tpl.Name},
		Source:      audit.SourceFromRequest(r),
		Action:      "template.create",
		Description: "User template created",
	})

	rw.Created(tpl)
}

// TemplateDelete removes a user template. Builtin templates cannot be
// deleted; the catalog reports them as not found for deletion purposes.
func (h *Handler) TemplateDelete(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	templateID, err := uuidParam(r, "id")
	if err != nil {
		rw.BadRequest("invalid template id")
		return
	}

	if err := h.catalog.Delete(r.Context(), templateID, id.UserID); err != nil {
		switch {
		case errors.Is(err, templates.ErrTemplateNotFound) || database.IsNotFound(err):
			rw.NotFound("template not found")
		case errors.Is(err, templates.ErrBuiltinTemplate):
			rw.Forbidden("builtin templates cannot be deleted")
		default:
			rw.DatabaseError(err)
		}
		return
	}

	h.audit.Log(&audit.Event{
		Type:        audit.EventTypeTemplateDeleted,
		Severity:    audit.SeverityInfo,
		Outcome:     audit.OutcomeSuccess,
		Actor:       audit.Actor{ID: id.UserID, Type: "user", Name: id.Email},
		Target:      &audit.Target{ID: templateID.String(), Type: "template"},
		Source:      audit.SourceFromRequest(r),
		Action:      "template.delete",
		Description: "User template deleted",
	})

	rw.NoContent()
}

type installTemplateRequest struct {
	// WorkspaceID overrides the default workspace as install target.
	WorkspaceID *string `json:"workspace_id,omitempty" validate:"omitempty,uuid"`
	// NamePrefix is prepended to every created entity name.
	NamePrefix string `json:"name_prefix,omitempty" validate:"max=100"`
}

// TemplateInstall expands a template into live entities. Installs are not
// idempotent: running one twice creates two full sets of entities, each
// tagged with its own install record.
func (h *Handler) TemplateInstall(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	templateID, err := uuidParam(r, "id")
	if err != nil {
		rw.BadRequest("invalid template id")
		return
	}

	var req installTemplateRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			rw.BadRequest("invalid JSON body")
			return
		}
		if ve := validation.ValidateStruct(&req); ve != nil {
			rw.ValidationError(ve)
			return
		}
	}

	opts := templates.InstallOptions{NamePrefix: req.NamePrefix}
	if req.WorkspaceID != nil {
		wsID, err := uuid.Parse(*req.WorkspaceID)
		if err != nil {
			rw.BadRequest("invalid workspace id")
			return
		}
		opts.WorkspaceID = &wsID
	}

	result, err := h.installer.Install(r.Context(), templateID, id, opts)
	if err != nil {
		switch {
		case errors.Is(err, templates.ErrTemplateNotFound):
			rw.NotFound("template not found")
		case errors.Is(err, templates.ErrNoWorkspace):
			rw.BadRequest("no workspace available to install into")
		default:
			rw.DatabaseError(err)
		}
		return
	}

	tpl, tplErr := h.catalog.Get(r.Context(), templateID, id.UserID)
	templateName := templateID.String()
	kind := "user"
	if tplErr == nil {
		templateName = tpl.Name
		if tpl.Builtin {
			kind = "builtin"
		}
	}

	metrics.TemplateInstallsTotal.WithLabelValues(kind).Inc()
	h.audit.LogTemplateInstalled(r.Context(), id.UserID, audit.SourceFromRequest(r),
		templateID.String(), templateName, result.Counts.Total())
	if h.notifier.Enabled() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			_ = h.notifier.TemplateInstalled(ctx, id.Email, templateName, result.Counts)
		}()
	}

	rw.Created(result)
}

// TemplateInstallsList returns the user's install history, newest first.
func (h *Handler) TemplateInstallsList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	installs, err := h.db.GetTemplateInstallsByOwner(r.Context(), id.UserID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(installs)
}
