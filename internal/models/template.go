// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TemplateEntryKind discriminates the tagged union of template entries.
type TemplateEntryKind string

const (
	TemplateEntryTask  TemplateEntryKind = "task"
	TemplateEntryGoal  TemplateEntryKind = "goal"
	TemplateEntryHabit TemplateEntryKind = "habit"
)

// TaskTemplate describes a task to be created when a template is installed.
// DueInDays, when set, is resolved to install-time + N days.
type TaskTemplate struct {
	Title     string  `json:"title"`
	Notes     *string `json:"notes,omitempty"`
	Priority  int     `json:"priority"`
	DueInDays *int    `json:"due_in_days,omitempty"`
}

// GoalTemplate describes a goal to be created when a template is installed.
type GoalTemplate struct {
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	TargetInDays *int    `json:"target_in_days,omitempty"`
}

// HabitTemplate describes a habit to be created when a template is installed.
type HabitTemplate struct {
	Name    string       `json:"name"`
	Cadence HabitCadence `json:"cadence"`
}

// TemplateEntry is a tagged union over the entity-template shapes.
// Exactly one of Task, Goal, Habit is non-nil, matching Kind.
type TemplateEntry struct {
	Kind  TemplateEntryKind `json:"kind"`
	Task  *TaskTemplate     `json:"task,omitempty"`
	Goal  *GoalTemplate     `json:"goal,omitempty"`
	Habit *HabitTemplate    `json:"habit,omitempty"`
}

// Validate checks the tag/payload pairing of the union.
func (e *TemplateEntry) Validate() error {
	switch e.Kind {
	case TemplateEntryTask:
		if e.Task == nil {
			return fmt.Errorf("entry kind %q has no task payload", e.Kind)
		}
		if e.Task.Title == "" {
			return fmt.Errorf("task template title is required")
		}
	case TemplateEntryGoal:
		if e.Goal == nil {
			return fmt.Errorf("entry kind %q has no goal payload", e.Kind)
		}
		if e.Goal.Title == "" {
			return fmt.Errorf("goal template title is required")
		}
	case TemplateEntryHabit:
		if e.Habit == nil {
			return fmt.Errorf("entry kind %q has no habit payload", e.Kind)
		}
		if e.Habit.Name == "" {
			return fmt.Errorf("habit template name is required")
		}
		if !ValidHabitCadence(e.Habit.Cadence) {
			return fmt.Errorf("habit template cadence %q is not supported", e.Habit.Cadence)
		}
	default:
		return fmt.Errorf("unknown template entry kind %q", e.Kind)
	}
	return nil
}

// Name returns the entry's display name regardless of kind.
func (e *TemplateEntry) Name() string {
	switch e.Kind {
	case TemplateEntryTask:
		if e.Task != nil {
			return e.Task.Title
		}
	case TemplateEntryGoal:
		if e.Goal != nil {
			return e.Goal.Title
		}
	case TemplateEntryHabit:
		if e.Habit != nil {
			return e.Habit.Name
		}
	}
	return ""
}

// Template is a reusable bundle of task/goal/habit definitions.
// Installing a template expands each entry into a new live entity; the
// template itself is never mutated by installation.
type Template struct {
	ID          uuid.UUID `json:"id"`
	// OwnerID is nil for builtin catalog templates.
	OwnerID     *string         `json:"owner_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Builtin     bool            `json:"builtin"`
	Entries     []TemplateEntry `json:"entries"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TemplateInstall is the usage record written for every successful
// template installation. Installs are intentionally not idempotent; each
// one produces a new record and a fresh set of entities.
type TemplateInstall struct {
	ID            uuid.UUID `json:"id"`
	TemplateID    uuid.UUID `json:"template_id"`
	WorkspaceID   uuid.UUID `json:"workspace_id"`
	OwnerID       string    `json:"owner_id"`
	TasksCreated  int       `json:"tasks_created"`
	GoalsCreated  int       `json:"goals_created"`
	HabitsCreated int       `json:"habits_created"`
	InstalledAt   time.Time `json:"installed_at"`
}

// Validate checks every entry of the template.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	for i := range t.Entries {
		if err := t.Entries[i].Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}
