// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/daybook-dev/daybook/internal/audit"
	"github.com/daybook-dev/daybook/internal/database"
	"github.com/daybook-dev/daybook/internal/models"
	"github.com/daybook-dev/daybook/internal/validation"
)

// WorkspacesList returns all workspaces owned by the user, default first.
func (h *Handler) WorkspacesList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	workspaces, err := h.db.GetWorkspacesByOwner(r.Context(), id.UserID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(workspaces)
}

type createWorkspaceRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	IsDefault   bool    `json:"is_default"`
}

// WorkspaceCreate creates a workspace for the user.
func (h *Handler) WorkspaceCreate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req createWorkspaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		rw.ValidationError(ve)
		return
	}

	now := time.Now().UTC()
	ws := &models.Workspace{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     id.UserID,
		IsDefault:   req.IsDefault,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.db.CreateWorkspace(r.Context(), ws); err != nil {
		rw.DatabaseError(err)
		return
	}

	h.audit.Log(&audit.Event{
		Type:        audit.EventTypeWorkspaceCreated,
		Severity:    audit.SeverityInfo,
		Outcome:     audit.OutcomeSuccess,
		Actor:       audit.Actor{ID: id.UserID, Type: "user", Name: id.Email},
		Target:      &audit.Target{ID: ws.ID.String(), Type: "workspace", Name: ws.Name},
		Source:      audit.SourceFromRequest(r),
		Action:      "workspace.create",
		Description: "Workspace created",
	})

	rw.Created(ws)
}

// WorkspaceGet returns a single owned workspace.
func (h *Handler) WorkspaceGet(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	ws, ok := h.ownedWorkspace(rw, r, id.UserID)
	if !ok {
		return
	}
	rw.Success(ws)
}

type updateWorkspaceRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	IsDefault   bool    `json:"is_default"`
}

// WorkspaceUpdate replaces the mutable fields of an owned workspace.
func (h *Handler) WorkspaceUpdate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	ws, ok := h.ownedWorkspace(rw, r, id.UserID)
	if !ok {
		return
	}

	var req updateWorkspaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		rw.ValidationError(ve)
		return
	}

	ws.Name = req.Name
	ws.Description = req.Description
	ws.IsDefault = req.IsDefault
	ws.UpdatedAt = time.Now().UTC()
	if err := h.db.UpdateWorkspace(r.Context(), ws); err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(ws)
}

// WorkspaceDelete removes an owned workspace. Entities within it must be
// removed first; the foreign key constraint otherwise rejects the delete.
func (h *Handler) WorkspaceDelete(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	ws, ok := h.ownedWorkspace(rw, r, id.UserID)
	if !ok {
		return
	}

	if err := h.db.DeleteWorkspace(r.Context(), ws.ID); err != nil {
		if database.IsNotFound(err) {
			rw.NotFound("workspace not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	h.audit.Log(&audit.Event{
		Type:        audit.EventTypeWorkspaceDeleted,
		Severity:    audit.SeverityInfo,
		Outcome:     audit.OutcomeSuccess,
		Actor:       audit.Actor{ID: id.UserID, Type: "user", Name: id.Email},
		Target:      &audit.Target{ID: ws.ID.String(), Type: "workspace", Name: ws.Name},
		Source:      audit.SourceFromRequest(r),
		Action:      "workspace.delete",
		Description: "Workspace deleted",
	})

	rw.NoContent()
}

// ownedWorkspace loads the workspace from the id route parameter and
// verifies ownership. Foreign workspaces read as not found.
func (h *Handler) ownedWorkspace(rw *ResponseWriter, r *http.Request, ownerID string) (*models.Workspace, bool) {
	wsID, err := uuidParam(r, "id")
	if err != nil {
		rw.BadRequest("invalid workspace id")
		return nil, false
	}

	ws, err := h.db.GetWorkspace(r.Context(), wsID)
	if err != nil {
		if database.IsNotFound(err) {
			rw.NotFound("workspace not found")
			return nil, false
		}
		rw.DatabaseError(err)
		return nil, false
	}
	if ws.OwnerID != ownerID {
		rw.NotFound("workspace not found")
		return nil, false
	}
	return ws, true
}

// requireWorkspace verifies that wsID names a workspace owned by ownerID.
// Foreign and missing workspaces read as not found; other lookup failures
// surface as database errors.
func (h *Handler) requireWorkspace(rw *ResponseWriter, r *http.Request, wsID uuid.UUID, ownerID string) bool {
	ws, err := h.db.GetWorkspace(r.Context(), wsID)
	if err != nil {
		if database.IsNotFound(err) {
			rw.NotFound("workspace not found")
			return false
		}
		rw.DatabaseError(err)
		return false
	}
	if ws.OwnerID != ownerID {
		rw.NotFound("workspace not found")
		return false
	}
	return true
}
