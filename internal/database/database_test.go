// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/daybook-dev/daybook/internal/config"
	"github.com/daybook-dev/daybook/internal/models"
)

// testDBSemaphore serializes DuckDB creation; concurrent CGO opens can hang
// under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates an in-memory test database. The semaphore is held for
// the whole test lifetime so only one test has an open DuckDB connection.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "1GB",
	}

	db, err := New(cfg)
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

func testWorkspace(ownerID string) *models.Workspace {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Workspace{
		ID:        uuid.New(),
		Name:      "Personal",
		OwnerID:   ownerID,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestWorkspaceCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	w := testWorkspace("user-1")
	desc := "daily planning"
	w.Description = &desc

	if err := db.CreateWorkspace(ctx, w); err != nil {
		t.Fatalf("CreateWorkspace failed: %v", err)
	}

	got, err := db.GetWorkspace(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetWorkspace failed: %v", err)
	}
	if got.Name != w.Name || got.OwnerID != w.OwnerID || !got.IsDefault {
		t.Errorf("GetWorkspace returned %+v, want %+v", got, w)
	}
	if got.Description == nil || *got.Description != desc {
		t.Errorf("GetWorkspace description = %v, want %q", got.Description, desc)
	}

	got.Name = "Renamed"
	got.UpdatedAt = time.Now().UTC()
	if err := db.UpdateWorkspace(ctx, got); err != nil {
		t.Fatalf("UpdateWorkspace failed: %v", err)
	}

	def, err := db.GetDefaultWorkspace(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetDefaultWorkspace failed: %v", err)
	}
	if def.Name != "Renamed" {
		t.Errorf("default workspace name = %q, want %q", def.Name, "Renamed")
	}

	if err := db.DeleteWorkspace(ctx, w.ID); err != nil {
		t.Fatalf("DeleteWorkspace failed: %v", err)
	}
	if _, err := db.GetWorkspace(ctx, w.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetWorkspace after delete returned %v, want ErrNotFound", err)
	}
}

func TestWorkspaceNotFound(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetWorkspace(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetWorkspace returned %v, want ErrNotFound", err)
	}
	if err := db.UpdateWorkspace(ctx, testWorkspace("user-1")); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateWorkspace returned %v, want ErrNotFound", err)
	}
	if _, err := db.GetDefaultWorkspace(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDefaultWorkspace returned %v, want ErrNotFound", err)
	}

	exists, err := db.WorkspaceExists(ctx, uuid.New())
	if err != nil {
		t.Fatalf("WorkspaceExists failed: %v", err)
	}
	if exists {
		t.Error("WorkspaceExists = true for random ID")
	}
}

func TestTaskCRUDWithSource(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	w := testWorkspace("user-1")
	if err := db.CreateWorkspace(ctx, w); err != nil {
		t.Fatalf("CreateWorkspace failed: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	due := now.Add(48 * time.Hour)
	task := &models.Task{
		ID:          uuid.New(),
		WorkspaceID: w.ID,
		OwnerID:     "user-1",
		Title:       "Review weekly goals",
		Status:      models.TaskStatusPending,
		Priority:    2,
		DueAt:       &due,
		Source: &models.EntitySource{
			Kind:         "template",
			TemplateID:   uuid.New(),
			InstallID:    uuid.New(),
			OriginalName: "Review weekly goals",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	got, err := db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Title != task.Title || got.Status != models.TaskStatusPending || got.Priority != 2 {
		t.Errorf("GetTask returned %+v", got)
	}
	if got.DueAt == nil || !got.DueAt.Equal(due) {
		t.Errorf("GetTask due_at = %v, want %v", got.DueAt, due)
	}
	if got.Source == nil || got.Source.TemplateID != task.Source.TemplateID {
		t.Errorf("GetTask source = %+v, want %+v", got.Source, task.Source)
	}

	completedAt := now.Add(time.Hour)
	got.Status = models.TaskStatusCompleted
	got.CompletedAt = &completedAt
	got.UpdatedAt = completedAt
	if err := db.UpdateTask(ctx, got); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	byOwner, err := db.GetTasksByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetTasksByOwner failed: %v", err)
	}
	if len(byOwner) != 1 || byOwner[0].Status != models.TaskStatusCompleted {
		t.Errorf("GetTasksByOwner returned %+v", byOwner)
	}

	if err := db.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
}

func TestGoalAndHabitCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	w := testWorkspace("user-1")
	if err := db.CreateWorkspace(ctx, w); err != nil {
		t.Fatalf("CreateWorkspace failed: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	goal := &models.Goal{
		ID:          uuid.New(),
		WorkspaceID: w.ID,
		OwnerID:     "user-1",
		Title:       "Run a half marathon",
		Status:      models.GoalStatusActive,
		Progress:    25,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.CreateGoal(ctx, goal); err != nil {
		t.Fatalf("CreateGoal failed: %v", err)
	}

	goal.Progress = 60
	goal.UpdatedAt = now.Add(time.Minute)
	if err := db.UpdateGoal(ctx, goal); err != nil {
		t.Fatalf("UpdateGoal failed: %v", err)
	}
	gotGoal, err := db.GetGoal(ctx, goal.ID)
	if err != nil {
		t.Fatalf("GetGoal failed: %v", err)
	}
	if gotGoal.Progress != 60 {
		t.Errorf("goal progress = %d, want 60", gotGoal.Progress)
	}

	habit := &models.Habit{
		ID:          uuid.New(),
		WorkspaceID: w.ID,
		OwnerID:     "user-1",
		Name:        "Morning pages",
		Cadence:     models.HabitCadenceDaily,
		Streak:      3,
		BestStreak:  7,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.CreateHabit(ctx, habit); err != nil {
		t.Fatalf("CreateHabit failed: %v", err)
	}
	gotHabit, err := db.GetHabit(ctx, habit.ID)
	if err != nil {
		t.Fatalf("GetHabit failed: %v", err)
	}
	if gotHabit.Cadence != models.HabitCadenceDaily || gotHabit.BestStreak != 7 {
		t.Errorf("GetHabit returned %+v", gotHabit)
	}
	if gotHabit.LastCompletedAt != nil {
		t.Errorf("LastCompletedAt = %v, want nil", gotHabit.LastCompletedAt)
	}
}

func TestTemplateCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	owner := "user-1"
	dueIn := 7
	tpl := &models.Template{
		ID:          uuid.New(),
		OwnerID:     &owner,
		Name:        "Weekly reset",
		Description: "Plan the week ahead",
		Category:    "productivity",
		Entries: []models.TemplateEntry{
			{
				Kind: models.TemplateEntryTask,
				Task: &models.TaskTemplate{Title: "Clear inbox", Priority: 1, DueInDays: &dueIn},
			},
			{
				Kind:  models.TemplateEntryHabit,
				Habit: &models.HabitTemplate{Name: "Daily review", Cadence: models.HabitCadenceDaily},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := db.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}

	got, err := db.GetTemplate(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if got.Name != tpl.Name || len(got.Entries) != 2 {
		t.Fatalf("GetTemplate returned %+v", got)
	}
	if got.Entries[0].Kind != models.TemplateEntryTask || got.Entries[0].Task == nil {
		t.Errorf("entry 0 = %+v, want task entry", got.Entries[0])
	}
	if got.Entries[0].Task.DueInDays == nil || *got.Entries[0].Task.DueInDays != 7 {
		t.Errorf("entry 0 due_in_days = %v, want 7", got.Entries[0].Task.DueInDays)
	}
	if got.OwnerID == nil || *got.OwnerID != owner {
		t.Errorf("template owner = %v, want %q", got.OwnerID, owner)
	}

	byOwner, err := db.GetTemplatesByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("GetTemplatesByOwner failed: %v", err)
	}
	if len(byOwner) != 1 {
		t.Errorf("GetTemplatesByOwner returned %d templates, want 1", len(byOwner))
	}

	rec := &models.TemplateInstall{
		ID:           uuid.New(),
		TemplateID:   tpl.ID,
		WorkspaceID:  uuid.New(),
		OwnerID:      owner,
		TasksCreated: 1,
		InstalledAt:  now,
	}
	w := testWorkspace(owner)
	w.ID = rec.WorkspaceID
	if err := db.CreateWorkspace(ctx, w); err != nil {
		t.Fatalf("CreateWorkspace failed: %v", err)
	}
	if err := db.CreateTemplateInstall(ctx, rec); err != nil {
		t.Fatalf("CreateTemplateInstall failed: %v", err)
	}
	installs, err := db.GetTemplateInstallsByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("GetTemplateInstallsByOwner failed: %v", err)
	}
	if len(installs) != 1 || installs[0].TasksCreated != 1 {
		t.Errorf("GetTemplateInstallsByOwner returned %+v", installs)
	}
}

func TestInTxCommitsOnSuccess(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	w := testWorkspace("user-1")
	err := db.InTx(ctx, func(s *Store) error {
		return s.CreateWorkspace(ctx, w)
	})
	if err != nil {
		t.Fatalf("InTx failed: %v", err)
	}

	if _, err := db.GetWorkspace(ctx, w.ID); err != nil {
		t.Errorf("workspace not visible after commit: %v", err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	w := testWorkspace("user-1")
	wantErr := errors.New("boom")
	err := db.InTx(ctx, func(s *Store) error {
		if err := s.CreateWorkspace(ctx, w); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("InTx returned %v, want %v", err, wantErr)
	}

	if _, err := db.GetWorkspace(ctx, w.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("workspace visible after rollback: err = %v", err)
	}
}

func TestTaskRequiresWorkspace(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	task := &models.Task{
		ID:          uuid.New(),
		WorkspaceID: uuid.New(),
		OwnerID:     "user-1",
		Title:       "Orphaned",
		Status:      models.TaskStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.CreateTask(ctx, task); err == nil {
		t.Error("CreateTask succeeded for a task whose workspace does not exist")
	}
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
