// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/daybook-dev/daybook/internal/auth"
	"github.com/daybook-dev/daybook/internal/config"
	"github.com/daybook-dev/daybook/internal/database"
	"github.com/daybook-dev/daybook/internal/models"
)

// testDBSemaphore serializes DuckDB creation across parallel tests.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB"})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}

var testIdentity = auth.Identity{UserID: "user-1", Email: "alex@example.com", Role: "user"}

// buildSnapshot returns a snapshot owned by user-1 with one workspace and
// one of each dependent entity.
func buildSnapshot() *Snapshot {
	wsID := uuid.New()
	owner := "user-1"
	return &Snapshot{
		FormatVersion: FormatVersion,
		ExportedAt:    time.Now().UTC(),
		Owner:         Owner{ID: "user-1", Email: "alex@example.com"},
		Collections: Collections{
			Workspaces: []models.Workspace{
				{ID: wsID, Name: "Personal", OwnerID: "someone-else", IsDefault: true},
			},
			Tasks: []models.Task{
				{ID: uuid.New(), WorkspaceID: wsID, Title: "Water the plants", Status: models.TaskStatusPending},
			},
			Goals: []models.Goal{
				{ID: uuid.New(), WorkspaceID: wsID, Title: "Read 12 books", Status: models.GoalStatusActive, Progress: 50},
			},
			Habits: []models.Habit{
				{ID: uuid.New(), WorkspaceID: wsID, Name: "Stretch", Cadence: models.HabitCadenceDaily},
			},
			Templates: []models.Template{
				{ID: uuid.New(), OwnerID: &owner, Name: "Morning routine", Entries: []models.TemplateEntry{
					{Kind: models.TemplateEntryHabit, Habit: &models.HabitTemplate{Name: "Stretch", Cadence: models.HabitCadenceDaily}},
				}},
			},
		},
	}
}

func countEntities(t *testing.T, db *database.DB, ownerID string) models.RestoreCounts {
	t.Helper()
	ctx := context.Background()

	workspaces, err := db.GetWorkspacesByOwner(ctx, ownerID)
	if err != nil {
		t.Fatalf("GetWorkspacesByOwner failed: %v", err)
	}
	tasks, err := db.GetTasksByOwner(ctx, ownerID)
	if err != nil {
		t.Fatalf("GetTasksByOwner failed: %v", err)
	}
	goals, err := db.GetGoalsByOwner(ctx, ownerID)
	if err != nil {
		t.Fatalf("GetGoalsByOwner failed: %v", err)
	}
	habits, err := db.GetHabitsByOwner(ctx, ownerID)
	if err != nil {
		t.Fatalf("GetHabitsByOwner failed: %v", err)
	}
	templates, err := db.GetTemplatesByOwner(ctx, ownerID)
	if err != nil {
		t.Fatalf("GetTemplatesByOwner failed: %v", err)
	}
	return models.RestoreCounts{
		Workspaces: len(workspaces),
		Tasks:      len(tasks),
		Goals:      len(goals),
		Habits:     len(habits),
		Templates:  len(templates),
	}
}

func TestRestoreIdempotence(t *testing.T) {
	db := setupTestDB(t)
	coord := NewCoordinator(db)
	ctx := context.Background()
	snap := buildSnapshot()

	first, err := coord.Restore(ctx, snap, testIdentity)
	if err != nil {
		t.Fatalf("first restore failed: %v", err)
	}
	want := models.RestoreCounts{Workspaces: 1, Tasks: 1, Goals: 1, Habits: 1, Templates: 1}
	if first != want {
		t.Errorf("first restore counts = %+v, want %+v", first, want)
	}

	second, err := coord.Restore(ctx, snap, testIdentity)
	if err != nil {
		t.Fatalf("second restore failed: %v", err)
	}
	if second.Total() != 0 {
		t.Errorf("second restore created %d records, want 0", second.Total())
	}

	if got := countEntities(t, db, "user-1"); got != want {
		t.Errorf("entity counts after double restore = %+v, want %+v", got, want)
	}
}

func TestRestoreRestampsOwnership(t *testing.T) {
	db := setupTestDB(t)
	coord := NewCoordinator(db)
	ctx := context.Background()
	snap := buildSnapshot()

	if _, err := coord.Restore(ctx, snap, testIdentity); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	// The snapshot claimed the workspace belongs to "someone-else"; the
	// stored row must belong to the importer.
	w, err := db.GetWorkspace(ctx, snap.Collections.Workspaces[0].ID)
	if err != nil {
		t.Fatalf("GetWorkspace failed: %v", err)
	}
	if w.OwnerID != "user-1" {
		t.Errorf("workspace owner = %q, want user-1", w.OwnerID)
	}
}

func TestRestoreOwnershipRejection(t *testing.T) {
	db := setupTestDB(t)
	coord := NewCoordinator(db)
	ctx := context.Background()
	snap := buildSnapshot()

	intruder := auth.Identity{UserID: "user-2", Email: "eve@example.com"}
	_, err := coord.Restore(ctx, snap, intruder)
	if !errors.Is(err, ErrOwnershipMismatch) {
		t.Fatalf("restore error = %v, want ErrOwnershipMismatch", err)
	}

	// Store must be untouched for both parties.
	if got := countEntities(t, db, "user-2"); got.Total() != 0 {
		t.Errorf("intruder entity counts = %+v, want all zero", got)
	}
	if got := countEntities(t, db, "user-1"); got.Total() != 0 {
		t.Errorf("owner entity counts = %+v, want all zero", got)
	}
}

func TestRestoreMissingOwnerFailsClosed(t *testing.T) {
	db := setupTestDB(t)
	coord := NewCoordinator(db)
	snap := buildSnapshot()
	snap.Owner.ID = ""

	if _, err := coord.Restore(context.Background(), snap, testIdentity); !errors.Is(err, ErrOwnershipMismatch) {
		t.Errorf("restore error = %v, want ErrOwnershipMismatch", err)
	}
}

func TestRestoreAtomicity(t *testing.T) {
	db := setupTestDB(t)
	coord := NewCoordinator(db)
	ctx := context.Background()

	// A task pointing at a workspace that is in neither the snapshot nor the
	// store violates the foreign key, failing the tasks collection after the
	// workspaces collection has already inserted.
	snap := buildSnapshot()
	snap.Collections.Tasks = append(snap.Collections.Tasks, models.Task{
		ID:          uuid.New(),
		WorkspaceID: uuid.New(),
		Title:       "Orphaned",
		Status:      models.TaskStatusPending,
	})

	if _, err := coord.Restore(ctx, snap, testIdentity); err == nil {
		t.Fatal("restore succeeded despite a foreign key violation")
	}

	if got := countEntities(t, db, "user-1"); got.Total() != 0 {
		t.Errorf("entity counts after failed restore = %+v, want all zero", got)
	}
}

func TestExportRestoreRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	coord := NewCoordinator(db)
	assembler := NewAssembler(db.Store)
	ctx := context.Background()

	// Seed via restore, then export and re-restore the export.
	seed := buildSnapshot()
	if _, err := coord.Restore(ctx, seed, testIdentity); err != nil {
		t.Fatalf("seed restore failed: %v", err)
	}
	before := countEntities(t, db, "user-1")

	exported, err := assembler.Export(ctx, testIdentity)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if exported.Owner.ID != "user-1" || exported.FormatVersion != FormatVersion {
		t.Errorf("exported header = %+v", exported)
	}
	if exported.EntityCount() != before.Total() {
		t.Errorf("exported %d entities, store has %d", exported.EntityCount(), before.Total())
	}

	counts, err := coord.Restore(ctx, exported, testIdentity)
	if err != nil {
		t.Fatalf("round-trip restore failed: %v", err)
	}
	if counts.Total() != 0 {
		t.Errorf("round-trip restore created %d records, want 0", counts.Total())
	}
	if after := countEntities(t, db, "user-1"); after != before {
		t.Errorf("entity counts changed across round-trip: before %+v, after %+v", before, after)
	}
}

func TestExportExcludesOtherUsers(t *testing.T) {
	db := setupTestDB(t)
	coord := NewCoordinator(db)
	assembler := NewAssembler(db.Store)
	ctx := context.Background()

	mine := buildSnapshot()
	if _, err := coord.Restore(ctx, mine, testIdentity); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	other := buildSnapshot()
	other.Owner.ID = "user-2"
	if _, err := coord.Restore(ctx, other, auth.Identity{UserID: "user-2"}); err != nil {
		t.Fatalf("restore for second user failed: %v", err)
	}

	exported, err := assembler.Export(ctx, testIdentity)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	for _, w := range exported.Collections.Workspaces {
		if w.OwnerID != "user-1" {
			t.Errorf("export leaked workspace owned by %q", w.OwnerID)
		}
	}
	if exported.EntityCount() != 5 {
		t.Errorf("export contains %d entities, want 5", exported.EntityCount())
	}
}

func TestRestoreEmptySnapshot(t *testing.T) {
	db := setupTestDB(t)
	coord := NewCoordinator(db)

	snap := &Snapshot{
		FormatVersion: FormatVersion,
		Owner:         Owner{ID: "user-1"},
	}
	counts, err := coord.Restore(context.Background(), snap, testIdentity)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if counts.Total() != 0 {
		t.Errorf("empty snapshot created %d records", counts.Total())
	}
	if got := countEntities(t, db, "user-1"); got.Total() != 0 {
		t.Errorf("empty snapshot mutated the store: %+v", got)
	}
}

func TestExportEmptyUserProducesEmptyArrays(t *testing.T) {
	db := setupTestDB(t)
	assembler := NewAssembler(db.Store)

	exported, err := assembler.Export(context.Background(), testIdentity)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	c := exported.Collections
	if c.Workspaces == nil || c.Tasks == nil || c.Goals == nil || c.Habits == nil || c.Templates == nil {
		t.Error("export contains nil collections; they must serialize as empty arrays")
	}
}
