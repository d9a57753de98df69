// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/daybook-dev/daybook/internal/auth"
	"github.com/daybook-dev/daybook/internal/database"
	"github.com/daybook-dev/daybook/internal/models"
)

// Importer inserts snapshot records with first-writer-wins semantics: a
// record whose ID already exists is skipped silently, never overwritten and
// never duplicated. Re-running the same restore is therefore a no-op.
//
// Every inserted record has its ownership re-stamped to the importing user
// and its timestamps re-stamped to import time. Nothing from the snapshot's
// owner or timestamp fields is trusted.
type Importer struct {
	now func() time.Time
}

// NewImporter creates an importer. The clock is injectable for tests.
func NewImporter() *Importer {
	return &Importer{now: func() time.Time { return time.Now().UTC() }}
}

// ImportCollection imports one named collection from the snapshot and
// returns the number of newly created records. The store is typically
// transaction-scoped; the coordinator decides the transaction boundary.
func (imp *Importer) ImportCollection(ctx context.Context, store *database.Store, col Collection, snap *Snapshot, id auth.Identity) (int, error) {
	switch col {
	case CollectionWorkspaces:
		return imp.importWorkspaces(ctx, store, snap.Collections.Workspaces, id)
	case CollectionTasks:
		return imp.importTasks(ctx, store, snap.Collections.Tasks, id)
	case CollectionGoals:
		return imp.importGoals(ctx, store, snap.Collections.Goals, id)
	case CollectionHabits:
		return imp.importHabits(ctx, store, snap.Collections.Habits, id)
	case CollectionTemplates:
		return imp.importTemplates(ctx, store, snap.Collections.Templates, id)
	default:
		return 0, fmt.Errorf("unknown collection %q", col)
	}
}

func (imp *Importer) importWorkspaces(ctx context.Context, store *database.Store, records []models.Workspace, id auth.Identity) (int, error) {
	created := 0
	now := imp.now()
	for i := range records {
		w := records[i]
		exists, err := store.WorkspaceExists(ctx, w.ID)
		if err != nil {
			return created, fmt.Errorf("workspace %s: %w", w.ID, err)
		}
		if exists {
			continue
		}
		w.OwnerID = id.UserID
		w.CreatedAt = now
		w.UpdatedAt = now
		if err := store.CreateWorkspace(ctx, &w); err != nil {
			return created, fmt.Errorf("workspace %s: %w", w.ID, err)
		}
		created++
	}
	return created, nil
}

func (imp *Importer) importTasks(ctx context.Context, store *database.Store, records []models.Task, id auth.Identity) (int, error) {
	created := 0
	now := imp.now()
	for i := range records {
		t := records[i]
		exists, err := store.TaskExists(ctx, t.ID)
		if err != nil {
			return created, fmt.Errorf("task %s: %w", t.ID, err)
		}
		if exists {
			continue
		}
		t.OwnerID = id.UserID
		if t.Status == "" {
			t.Status = models.TaskStatusPending
		}
		t.CreatedAt = now
		t.UpdatedAt = now
		if err := store.CreateTask(ctx, &t); err != nil {
			return created, fmt.Errorf("task %s: %w", t.ID, err)
		}
		created++
	}
	return created, nil
}

func (imp *Importer) importGoals(ctx context.Context, store *database.Store, records []models.Goal, id auth.Identity) (int, error) {
	created := 0
	now := imp.now()
	for i := range records {
		g := records[i]
		exists, err := store.GoalExists(ctx, g.ID)
		if err != nil {
			return created, fmt.Errorf("goal %s: %w", g.ID, err)
		}
		if exists {
			continue
		}
		g.OwnerID = id.UserID
		if g.Status == "" {
			g.Status = models.GoalStatusActive
		}
		g.CreatedAt = now
		g.UpdatedAt = now
		if err := store.CreateGoal(ctx, &g); err != nil {
			return created, fmt.Errorf("goal %s: %w", g.ID, err)
		}
		created++
	}
	return created, nil
}

func (imp *Importer) importHabits(ctx context.Context, store *database.Store, records []models.Habit, id auth.Identity) (int, error) {
	created := 0
	now := imp.now()
	for i := range records {
		h := records[i]
		exists, err := store.HabitExists(ctx, h.ID)
		if err != nil {
			return created, fmt.Errorf("habit %s: %w", h.ID, err)
		}
		if exists {
			continue
		}
		h.OwnerID = id.UserID
		if h.Cadence == "" {
			h.Cadence = models.HabitCadenceDaily
		}
		h.CreatedAt = now
		h.UpdatedAt = now
		if err := store.CreateHabit(ctx, &h); err != nil {
			return created, fmt.Errorf("habit %s: %w", h.ID, err)
		}
		created++
	}
	return created, nil
}

func (imp *Importer) importTemplates(ctx context.Context, store *database.Store, records []models.Template, id auth.Identity) (int, error) {
	created := 0
	now := imp.now()
	for i := range records {
		t := records[i]
		exists, err := store.TemplateExists(ctx, t.ID)
		if err != nil {
			return created, fmt.Errorf("template %s: %w", t.ID, err)
		}
		if exists {
			continue
		}
		// Builtin templates never travel in snapshots; imported templates
		// always become user templates of the importer.
		owner := id.UserID
		t.OwnerID = &owner
		t.Builtin = false
		t.CreatedAt = now
		t.UpdatedAt = now
		if err := store.CreateTemplate(ctx, &t); err != nil {
			return created, fmt.Errorf("template %s: %w", t.ID, err)
		}
		created++
	}
	return created, nil
}
