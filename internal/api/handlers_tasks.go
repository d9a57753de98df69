// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/daybook-dev/daybook/internal/database"
	"github.com/daybook-dev/daybook/internal/models"
	"github.com/daybook-dev/daybook/internal/validation"
)

// TasksList returns the user's tasks, optionally filtered to one workspace
// with the workspace_id query parameter.
func (h *Handler) TasksList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	if raw := r.URL.Query().Get("workspace_id"); raw != "" {
		wsID, err := uuid.Parse(raw)
		if err != nil {
			rw.BadRequest("invalid workspace_id")
			return
		}
		if !h.requireWorkspace(rw, r, wsID, id.UserID) {
			return
		}
		tasks, err := h.db.GetTasksByWorkspace(r.Context(), wsID)
		if err != nil {
			rw.DatabaseError(err)
			return
		}
		rw.Success(tasks)
		return
	}

	tasks, err := h.db.GetTasksByOwner(r.Context(), id.UserID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(tasks)
}

type createTaskRequest struct {
	WorkspaceID string     `json:"workspace_id" validate:"required,uuid"`
	Title       string     `json:"title" validate:"required,max=500"`
	Notes       *string    `json:"notes,omitempty" validate:"omitempty,max=10000"`
	Priority    int        `json:"priority" validate:"min=0,max=3"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

// TaskCreate creates a task in one of the user's workspaces.
func (h *Handler) TaskCreate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		rw.ValidationError(ve)
		return
	}

	wsID := uuid.MustParse(req.WorkspaceID)
	if !h.requireWorkspace(rw, r, wsID, id.UserID) {
		return
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:          uuid.New(),
		WorkspaceID: wsID,
		OwnerID:     id.UserID,
		Title:       req.Title,
		Notes:       req.Notes,
		Status:      models.TaskStatusPending,
		Priority:    req.Priority,
		DueAt:       req.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.db.CreateTask(r.Context(), task); err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Created(task)
}

// TaskGet returns a single owned task.
func (h *Handler) TaskGet(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	task, ok := h.ownedTask(rw, r, id.UserID)
	if !ok {
		return
	}
	rw.Success(task)
}

type updateTaskRequest struct {
	Title    string      `json:"title" validate:"required,max=500"`
	Notes    *string     `json:"notes,omitempty" validate:"omitempty,max=10000"`
	Status   string      `json:"status" validate:"required"`
	Priority int         `json:"priority" validate:"min=0,max=3"`
	DueAt    *time.Time  `json:"due_at,omitempty"`
}

// TaskUpdate replaces the mutable fields of an owned task. Transitioning to
// completed stamps CompletedAt; leaving completed clears it.
func (h *Handler) TaskUpdate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	task, ok := h.ownedTask(rw, r, id.UserID)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		rw.ValidationError(ve)
		return
	}
	status := models.TaskStatus(req.Status)
	if !models.ValidTaskStatus(status) {
		rw.BadRequest("unknown task status")
		return
	}

	if status == models.TaskStatusCompleted && task.Status != models.TaskStatusCompleted {
		now := time.Now().UTC()
		task.CompletedAt = &now
	} else if status != models.TaskStatusCompleted {
		task.CompletedAt = nil
	}

	task.Title = req.Title
	task.Notes = req.Notes
	task.Status = status
	task.Priority = req.Priority
	task.DueAt = req.DueAt
	task.UpdatedAt = time.Now().UTC()
	if err := h.db.UpdateTask(r.Context(), task); err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(task)
}

// TaskDelete removes an owned task.
func (h *Handler) TaskDelete(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	task, ok := h.ownedTask(rw, r, id.UserID)
	if !ok {
		return
	}

	if err := h.db.DeleteTask(r.Context(), task.ID); err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.NoContent()
}

func (h *Handler) ownedTask(rw *ResponseWriter, r *http.Request, ownerID string) (*models.Task, bool) {
	taskID, err := uuidParam(r, "id")
	if err != nil {
		rw.BadRequest("invalid task id")
		return nil, false
	}

	task, err := h.db.GetTask(r.Context(), taskID)
	if err != nil {
		if database.IsNotFound(err) {
			rw.NotFound("task not found")
			return nil, false
		}
		rw.DatabaseError(err)
		return nil, false
	}
	if task.OwnerID != ownerID {
		rw.NotFound("task not found")
		return nil, false
	}
	return task, true
}
