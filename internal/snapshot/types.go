// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

// Package snapshot implements the planner's export/restore pipeline.
//
// A snapshot is a portable JSON document holding one user's complete planning
// data. Export assembles it from the store; restore validates it, checks
// ownership, and re-imports it idempotently inside a single transaction.
package snapshot

import (
	"time"

	"github.com/daybook-dev/daybook/internal/models"
)

// FormatVersion is the snapshot document version this release produces.
// Restore accepts any document whose major version matches.
const FormatVersion = "1.0.0"

// Collection names the entity collections carried by a snapshot.
type Collection string

const (
	CollectionWorkspaces Collection = "workspaces"
	CollectionTasks      Collection = "tasks"
	CollectionGoals      Collection = "goals"
	CollectionHabits     Collection = "habits"
	CollectionTemplates  Collection = "templates"
)

// RestoreOrder is the topological insert order for restore. Workspaces come
// first because tasks, goals, and habits reference them by foreign key;
// templates are independent and go last. The coordinator iterates this list
// rather than hardcoding the sequence at call sites.
var RestoreOrder = []Collection{
	CollectionWorkspaces,
	CollectionTasks,
	CollectionGoals,
	CollectionHabits,
	CollectionTemplates,
}

// Owner identifies the user a snapshot belongs to.
type Owner struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Collections holds the typed entity arrays of a snapshot.
type Collections struct {
	Workspaces []models.Workspace `json:"workspaces"`
	Tasks      []models.Task      `json:"tasks"`
	Goals      []models.Goal      `json:"goals"`
	Habits     []models.Habit     `json:"habits"`
	Templates  []models.Template  `json:"templates"`
}

// Snapshot is a portable export of one user's planning data. It is immutable
// once produced; restore consumes it without modifying it.
type Snapshot struct {
	FormatVersion string      `json:"format_version"`
	ExportedAt    time.Time   `json:"exported_at"`
	Owner         Owner       `json:"owner"`
	Collections   Collections `json:"collections"`
}

// EntityCount returns the total number of entities across all collections.
func (s *Snapshot) EntityCount() int {
	c := &s.Collections
	return len(c.Workspaces) + len(c.Tasks) + len(c.Goals) + len(c.Habits) + len(c.Templates)
}
