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
)

// Assembler builds export snapshots. It is read-only; assembling a snapshot
// never mutates the store.
type Assembler struct {
	store *database.Store
	now   func() time.Time
}

// NewAssembler creates an export assembler backed by the given store.
func NewAssembler(store *database.Store) *Assembler {
	return &Assembler{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Export gathers everything the caller owns into a snapshot: their
// workspaces, the tasks/goals/habits scoped to them, and their user
// templates. Entities in workspaces the user merely joined are deliberately
// excluded; only owned data travels in a snapshot.
func (a *Assembler) Export(ctx context.Context, id auth.Identity) (*Snapshot, error) {
	snap := &Snapshot{
		FormatVersion: FormatVersion,
		ExportedAt:    a.now(),
		Owner: Owner{
			ID:    id.UserID,
			Email: id.Email,
		},
	}

	workspaces, err := a.store.GetWorkspacesByOwner(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("exporting workspaces: %w", err)
	}
	tasks, err := a.store.GetTasksByOwner(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("exporting tasks: %w", err)
	}
	goals, err := a.store.GetGoalsByOwner(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("exporting goals: %w", err)
	}
	habits, err := a.store.GetHabitsByOwner(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("exporting habits: %w", err)
	}
	templates, err := a.store.GetTemplatesByOwner(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("exporting templates: %w", err)
	}

	snap.Collections = Collections{
		Workspaces: emptyIfNil(workspaces),
		Tasks:      emptyIfNil(tasks),
		Goals:      emptyIfNil(goals),
		Habits:     emptyIfNil(habits),
		Templates:  emptyIfNil(templates),
	}
	return snap, nil
}

// emptyIfNil keeps collections as JSON arrays, never null, in the exported
// document.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
