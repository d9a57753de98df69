// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package templates

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

func createDefaultWorkspace(t *testing.T, db *database.DB, ownerID string) *models.Workspace {
	t.Helper()
	now := time.Now().UTC()
	w := &models.Workspace{
		ID:        uuid.New(),
		Name:      "Personal",
		OwnerID:   ownerID,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.CreateWorkspace(context.Background(), w); err != nil {
		t.Fatalf("CreateWorkspace failed: %v", err)
	}
	return w
}

func TestInstallBuiltinTemplate(t *testing.T) {
	db := setupTestDB(t)
	catalog := NewCatalog(db.Store)
	installer := NewInstaller(db, catalog)
	ctx := context.Background()

	w := createDefaultWorkspace(t, db, "user-1")

	// Weekly Reset: 3 tasks, 1 habit.
	tplID := uuid.MustParse("0b8f4a1e-2c3d-4e5f-8a9b-1c2d3e4f5a01")
	result, err := installer.Install(ctx, tplID, testIdentity, InstallOptions{})
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}

	if result.WorkspaceID != w.ID {
		t.Errorf("install targeted workspace %s, want default %s", result.WorkspaceID, w.ID)
	}
	if result.Counts.Tasks != 3 || result.Counts.Habits != 1 || result.Counts.Goals != 0 {
		t.Errorf("counts = %+v", result.Counts)
	}

	tasks, err := db.GetTasksByWorkspace(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetTasksByWorkspace failed: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("workspace has %d tasks, want 3", len(tasks))
	}
	for _, task := range tasks {
		if task.OwnerID != "user-1" {
			t.Errorf("task owner = %q", task.OwnerID)
		}
		if task.Source == nil || task.Source.Kind != "template" {
			t.Errorf("task source = %+v, want template provenance", task.Source)
		}
		if task.Source != nil && task.Source.TemplateID != tplID {
			t.Errorf("task source template = %s, want %s", task.Source.TemplateID, tplID)
		}
		if task.Source != nil && task.Source.InstallID != result.InstallID {
			t.Errorf("task install id = %s, want %s", task.Source.InstallID, result.InstallID)
		}
	}

	installs, err := db.GetTemplateInstallsByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetTemplateInstallsByOwner failed: %v", err)
	}
	if len(installs) != 1 || installs[0].TasksCreated != 3 || installs[0].HabitsCreated != 1 {
		t.Errorf("usage records = %+v", installs)
	}
}

func TestInstallNotIdempotent(t *testing.T) {
	db := setupTestDB(t)
	catalog := NewCatalog(db.Store)
	installer := NewInstaller(db, catalog)
	ctx := context.Background()

	w := createDefaultWorkspace(t, db, "user-1")
	tplID := uuid.MustParse("0b8f4a1e-2c3d-4e5f-8a9b-1c2d3e4f5a02") // Morning Routine: 3 habits

	first, err := installer.Install(ctx, tplID, testIdentity, InstallOptions{})
	if err != nil {
		t.Fatalf("first install failed: %v", err)
	}
	second, err := installer.Install(ctx, tplID, testIdentity, InstallOptions{})
	if err != nil {
		t.Fatalf("second install failed: %v", err)
	}
	if first.InstallID == second.InstallID {
		t.Error("both installs share an install ID")
	}

	habits, err := db.GetHabitsByWorkspace(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetHabitsByWorkspace failed: %v", err)
	}
	if len(habits) != 6 {
		t.Errorf("workspace has %d habits after double install, want 6", len(habits))
	}

	seen := make(map[uuid.UUID]bool)
	for _, h := range habits {
		if seen[h.ID] {
			t.Errorf("duplicate habit ID %s", h.ID)
		}
		seen[h.ID] = true
	}

	installs, err := db.GetTemplateInstallsByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetTemplateInstallsByOwner failed: %v", err)
	}
	if len(installs) != 2 {
		t.Errorf("usage records = %d, want 2", len(installs))
	}
}

func TestInstallTemplateNotFound(t *testing.T) {
	db := setupTestDB(t)
	catalog := NewCatalog(db.Store)
	installer := NewInstaller(db, catalog)

	createDefaultWorkspace(t, db, "user-1")

	_, err := installer.Install(context.Background(), uuid.New(), testIdentity, InstallOptions{})
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Install error = %v, want ErrTemplateNotFound", err)
	}
}

func TestInstallNoWorkspace(t *testing.T) {
	db := setupTestDB(t)
	catalog := NewCatalog(db.Store)
	installer := NewInstaller(db, catalog)

	tplID := uuid.MustParse("0b8f4a1e-2c3d-4e5f-8a9b-1c2d3e4f5a01")
	_, err := installer.Install(context.Background(), tplID, testIdentity, InstallOptions{})
	if !errors.Is(err, ErrNoWorkspace) {
		t.Errorf("Install error = %v, want ErrNoWorkspace", err)
	}
}

func TestInstallIntoForeignWorkspaceRefused(t *testing.T) {
	db := setupTestDB(t)
	catalog := NewCatalog(db.Store)
	installer := NewInstaller(db, catalog)

	other := createDefaultWorkspace(t, db, "user-2")
	createDefaultWorkspace(t, db, "user-1")

	tplID := uuid.MustParse("0b8f4a1e-2c3d-4e5f-8a9b-1c2d3e4f5a01")
	_, err := installer.Install(context.Background(), tplID, testIdentity, InstallOptions{WorkspaceID: &other.ID})
	if !errors.Is(err, ErrNoWorkspace) {
		t.Errorf("Install error = %v, want ErrNoWorkspace", err)
	}
}

func TestInstallUserTemplateWithCustomizations(t *testing.T) {
	db := setupTestDB(t)
	catalog := NewCatalog(db.Store)
	installer := NewInstaller(db, catalog)
	ctx := context.Background()

	w := createDefaultWorkspace(t, db, "user-1")

	owner := "user-1"
	now := time.Now().UTC()
	tpl := &models.Template{
		ID:      uuid.New(),
		OwnerID: &owner,
		Name:    "Book project",
		Entries: []models.TemplateEntry{
			{Kind: models.TemplateEntryGoal, Goal: &models.GoalTemplate{Title: "Finish draft", TargetInDays: intPtr(30)}},
			{Kind: models.TemplateEntryTask, Task: &models.TaskTemplate{Title: "Outline chapters", Priority: 2}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := catalog.Create(ctx, tpl); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	result, err := installer.Install(ctx, tpl.ID, testIdentity, InstallOptions{NamePrefix: "Q4: "})
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if result.Counts.Goals != 1 || result.Counts.Tasks != 1 {
		t.Errorf("counts = %+v", result.Counts)
	}

	goals, err := db.GetGoalsByWorkspace(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetGoalsByWorkspace failed: %v", err)
	}
	if len(goals) != 1 || goals[0].Title != "Q4: Finish draft" {
		t.Errorf("goals = %+v", goals)
	}
	if goals[0].TargetDate == nil {
		t.Error("goal target date was not resolved from target_in_days")
	}
}

func TestCatalogListAndVisibility(t *testing.T) {
	db := setupTestDB(t)
	catalog := NewCatalog(db.Store)
	ctx := context.Background()

	owner := "user-1"
	now := time.Now().UTC()
	tpl := &models.Template{
		ID:      uuid.New(),
		OwnerID: &owner,
		Name:    "Private template",
		Entries: []models.TemplateEntry{
			{Kind: models.TemplateEntryTask, Task: &models.TaskTemplate{Title: "Something"}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := catalog.Create(ctx, tpl); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	list, err := catalog.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != len(builtinTemplates)+1 {
		t.Errorf("List returned %d templates, want %d", len(list), len(builtinTemplates)+1)
	}

	// Another user sees only builtins, and cannot resolve the private one.
	otherList, err := catalog.List(ctx, "user-2")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(otherList) != len(builtinTemplates) {
		t.Errorf("other user sees %d templates, want %d", len(otherList), len(builtinTemplates))
	}
	if _, err := catalog.Get(ctx, tpl.ID, "user-2"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Get for other user = %v, want ErrTemplateNotFound", err)
	}
}

func TestCatalogCacheInvalidation(t *testing.T) {
	db := setupTestDB(t)
	catalog := NewCatalog(db.Store)
	ctx := context.Background()

	// Prime the cache.
	if _, err := catalog.List(ctx, "user-1"); err != nil {
		t.Fatalf("List failed: %v", err)
	}

	owner := "user-1"
	now := time.Now().UTC()
	tpl := &models.Template{
		ID:      uuid.New(),
		OwnerID: &owner,
		Name:    "Fresh template",
		Entries: []models.TemplateEntry{
			{Kind: models.TemplateEntryTask, Task: &models.TaskTemplate{Title: "Anything"}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := catalog.Create(ctx, tpl); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	list, err := catalog.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	found := false
	for _, item := range list {
		if item.ID == tpl.ID {
			found = true
		}
	}
	if !found {
		t.Error("new template missing from listing; cache was not invalidated")
	}
}
