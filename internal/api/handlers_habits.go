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

// HabitsList returns the user's habits.
func (h *Handler) HabitsList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	habits, err := h.db.GetHabitsByOwner(r.Context(), id.UserID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(habits)
}

type createHabitRequest struct {
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	Name        string `json:"name" validate:"required,max=200"`
	Cadence     string `json:"cadence" validate:"required"`
}

// HabitCreate creates a habit in one of the user's workspaces.
func (h *Handler) HabitCreate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req createHabitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		rw.ValidationError(ve)
		return
	}
	cadence := models.HabitCadence(req.Cadence)
	if !models.ValidHabitCadence(cadence) {
		rw.BadRequest("unknown habit cadence")
		return
	}

	wsID := uuid.MustParse(req.WorkspaceID)
	if !h.requireWorkspace(rw, r, wsID, id.UserID) {
		return
	}

	now := time.Now().UTC()
	habit := &models.Habit{
		ID:          uuid.New(),
		WorkspaceID: wsID,
		OwnerID:     id.UserID,
		Name:        req.Name,
		Cadence:     cadence,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.db.CreateHabit(r.Context(), habit); err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Created(habit)
}

// HabitGet returns a single owned habit.
func (h *Handler) HabitGet(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	habit, ok := h.ownedHabit(rw, r, id.UserID)
	if !ok {
		return
	}
	rw.Success(habit)
}

// HabitComplete marks the habit done for the current period and advances
// the streak. Completing twice in the same period is a no-op.
func (h *Handler) HabitComplete(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	habit, ok := h.ownedHabit(rw, r, id.UserID)
	if !ok {
		return
	}

	if advanceStreak(habit, time.Now().UTC()) {
		habit.UpdatedAt = time.Now().UTC()
		if err := h.db.UpdateHabit(r.Context(), habit); err != nil {
			rw.DatabaseError(err)
			return
		}
	}
	rw.Success(habit)
}

// HabitDelete removes an owned habit.
func (h *Handler) HabitDelete(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	habit, ok := h.ownedHabit(rw, r, id.UserID)
	if !ok {
		return
	}

	if err := h.db.DeleteHabit(r.Context(), habit.ID); err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.NoContent()
}

func (h *Handler) ownedHabit(rw *ResponseWriter, r *http.Request, ownerID string) (*models.Habit, bool) {
	habitID, err := uuidParam(r, "id")
	if err != nil {
		rw.BadRequest("invalid habit id")
		return nil, false
	}

	habit, err := h.db.GetHabit(r.Context(), habitID)
	if err != nil {
		if database.IsNotFound(err) {
			rw.NotFound("habit not found")
			return nil, false
		}
		rw.DatabaseError(err)
		return nil, false
	}
	if habit.OwnerID != ownerID {
		rw.NotFound("habit not found")
		return nil, false
	}
	return habit, true
}

// advanceStreak applies one completion at now. Returns false when the
// habit was already completed in the current period.
//
// Streak semantics: completing in the period immediately after the last
// completion extends the streak; skipping a period resets it to 1.
func advanceStreak(habit *models.Habit, now time.Time) bool {
	current := periodStart(habit.Cadence, now)

	if habit.LastCompletedAt != nil && !habit.LastCompletedAt.Before(current) {
		return false
	}

	previous := previousPeriodStart(habit.Cadence, current)
	if habit.LastCompletedAt != nil && !habit.LastCompletedAt.Before(previous) {
		habit.Streak++
	} else {
		habit.Streak = 1
	}
	if habit.Streak > habit.BestStreak {
		habit.BestStreak = habit.Streak
	}

	completedAt := now
	habit.LastCompletedAt = &completedAt
	return true
}

// periodStart returns the start of the period containing t. Weekly periods
// start on Monday.
func periodStart(cadence models.HabitCadence, t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	if cadence != models.HabitCadenceWeekly {
		return day
	}
	weekday := int(day.Weekday())
	if weekday == 0 { // Sunday belongs to the week that started the previous Monday
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

func previousPeriodStart(cadence models.HabitCadence, current time.Time) time.Time {
	if cadence == models.HabitCadenceWeekly {
		return current.AddDate(0, 0, -7)
	}
	return current.AddDate(0, 0, -1)
}
