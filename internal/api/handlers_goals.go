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

// GoalsList returns the user's goals.
func (h *Handler) GoalsList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	goals, err := h.db.GetGoalsByOwner(r.Context(), id.UserID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(goals)
}

type createGoalRequest struct {
	WorkspaceID string     `json:"workspace_id" validate:"required,uuid"`
	Title       string     `json:"title" validate:"required,max=500"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=10000"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
}

// GoalCreate creates a goal in one of the user's workspaces.
func (h *Handler) GoalCreate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req createGoalRequest
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
	goal := &models.Goal{
		ID:          uuid.New(),
		WorkspaceID: wsID,
		OwnerID:     id.UserID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.GoalStatusActive,
		Progress:    0,
		TargetDate:  req.TargetDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.db.CreateGoal(r.Context(), goal); err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Created(goal)
}

// GoalGet returns a single owned goal.
func (h *Handler) GoalGet(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	goal, ok := h.ownedGoal(rw, r, id.UserID)
	if !ok {
		return
	}
	rw.Success(goal)
}

type updateGoalRequest struct {
	Title       string     `json:"title" validate:"required,max=500"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=10000"`
	Status      string     `json:"status" validate:"required"`
	Progress    int        `json:"progress" validate:"min=0,max=100"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
}

// GoalUpdate replaces the mutable fields of an owned goal. Reaching 100%
// progress does not auto-achieve; status is the user's call.
func (h *Handler) GoalUpdate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	goal, ok := h.ownedGoal(rw, r, id.UserID)
	if !ok {
		return
	}

	var req updateGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		rw.ValidationError(ve)
		return
	}
	status := models.GoalStatus(req.Status)
	if !models.ValidGoalStatus(status) {
		rw.BadRequest("unknown goal status")
		return
	}

	goal.Title = req.Title
	goal.Description = req.Description
	goal.Status = status
	goal.Progress = req.Progress
	goal.TargetDate = req.TargetDate
	goal.UpdatedAt = time.Now().UTC()
	if err := h.db.UpdateGoal(r.Context(), goal); err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(goal)
}

// GoalDelete removes an owned goal.
func (h *Handler) GoalDelete(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	goal, ok := h.ownedGoal(rw, r, id.UserID)
	if !ok {
		return
	}

	if err := h.db.DeleteGoal(r.Context(), goal.ID); err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.NoContent()
}

func (h *Handler) ownedGoal(rw *ResponseWriter, r *http.Request, ownerID string) (*models.Goal, bool) {
	goalID, err := uuidParam(r, "id")
	if err != nil {
		rw.BadRequest("invalid goal id")
		return nil, false
	}

	goal, err := h.db.GetGoal(r.Context(), goalID)
	if err != nil {
		if database.IsNotFound(err) {
			rw.NotFound("goal not found")
			return nil, false
		}
		rw.DatabaseError(err)
		return nil, false
	}
	if goal.OwnerID != ownerID {
		rw.NotFound("goal not found")
		return nil, false
	}
	return goal, true
}
