// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

// Package models defines data structures used throughout the Daybook application.
// These models represent planner entities (workspaces, tasks, goals, habits),
// templates, and API responses.
package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus enumerates the lifecycle states of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// GoalStatus enumerates the lifecycle states of a goal.
type GoalStatus string

const (
	GoalStatusActive   GoalStatus = "active"
	GoalStatusAchieved GoalStatus = "achieved"
	GoalStatusAbandoned GoalStatus = "abandoned"
)

// HabitCadence enumerates supported habit repeat cadences.
type HabitCadence string

const (
	HabitCadenceDaily  HabitCadence = "daily"
	HabitCadenceWeekly HabitCadence = "weekly"
)

// EntitySource records provenance for entities created by template installs.
// Entities created directly by users carry no source.
type EntitySource struct {
	// Kind is the provenance kind; currently always "template".
	Kind string `json:"kind"`
	// TemplateID is the template the entity was expanded from.
	TemplateID uuid.UUID `json:"template_id"`
	// InstallID links back to the usage record of the installation event.
	InstallID uuid.UUID `json:"install_id"`
	// OriginalName is the entry name as it appeared in the template,
	// preserved even if the user later renames the live entity.
	OriginalName string `json:"original_name,omitempty"`
}

// Workspace groups a user's planner entities.
//
// Identity (ID) is preserved across export/import to support idempotent
// re-import; OwnerID is always re-stamped to the importing user on restore
// and never trusted from a snapshot.
type Workspace struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	// IsDefault marks the workspace that receives template installs.
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Task is a single actionable item within a workspace.
type Task struct {
	ID          uuid.UUID     `json:"id"`
	WorkspaceID uuid.UUID     `json:"workspace_id"`
	OwnerID     string        `json:"owner_id"`
	Title       string        `json:"title"`
	Notes       *string       `json:"notes,omitempty"`
	Status      TaskStatus    `json:"status"`
	Priority    int           `json:"priority"`
	DueAt       *time.Time    `json:"due_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Source      *EntitySource `json:"source,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Goal is a longer-horizon objective with a progress percentage.
type Goal struct {
	ID          uuid.UUID     `json:"id"`
	WorkspaceID uuid.UUID     `json:"workspace_id"`
	OwnerID     string        `json:"owner_id"`
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	Status      GoalStatus    `json:"status"`
	// Progress is 0-100.
	Progress   int           `json:"progress"`
	TargetDate *time.Time    `json:"target_date,omitempty"`
	Source     *EntitySource `json:"source,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Habit is a recurring practice with streak tracking.
type Habit struct {
	ID          uuid.UUID     `json:"id"`
	WorkspaceID uuid.UUID     `json:"workspace_id"`
	OwnerID     string        `json:"owner_id"`
	Name        string        `json:"name"`
	Cadence     HabitCadence  `json:"cadence"`
	Streak      int           `json:"streak"`
	BestStreak  int           `json:"best_streak"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
	Source      *EntitySource `json:"source,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// ValidGoalStatus reports whether s is a known goal status.
func ValidGoalStatus(s GoalStatus) bool {
	switch s {
	case GoalStatusActive, GoalStatusAchieved, GoalStatusAbandoned:
		return true
	}
	return false
}

// ValidHabitCadence reports whether c is a known habit cadence.
func ValidHabitCadence(c HabitCadence) bool {
	switch c {
	case HabitCadenceDaily, HabitCadenceWeekly:
		return true
	}
	return false
}
