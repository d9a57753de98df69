// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package templates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daybook-dev/daybook/internal/auth"
	"github.com/daybook-dev/daybook/internal/database"
	"github.com/daybook-dev/daybook/internal/logging"
	"github.com/daybook-dev/daybook/internal/models"
)

// ErrNoWorkspace is returned when the installing user has no workspace to
// receive the template's entities.
var ErrNoWorkspace = errors.New("user has no workspace to install into")

// InstallOptions carries per-install customizations.
type InstallOptions struct {
	// WorkspaceID overrides the target workspace; nil means the user's
	// default workspace.
	WorkspaceID *uuid.UUID
	// NamePrefix, when set, is prepended to every created entity's name.
	NamePrefix string
}

// InstallResult reports what an installation created.
type InstallResult struct {
	InstallID   uuid.UUID            `json:"install_id"`
	WorkspaceID uuid.UUID            `json:"workspace_id"`
	Counts      models.InstallCounts `json:"counts"`
	Tasks       []models.Task        `json:"tasks"`
	Goals       []models.Goal        `json:"goals"`
	Habits      []models.Habit       `json:"habits"`
}

// Installer expands templates into live entities. Each install runs in one
// transaction: either every entry lands together with its usage record, or
// nothing does. Installs are deliberately not idempotent; installing twice
// produces two independent sets of entities.
type Installer struct {
	db      *database.DB
	catalog *Catalog
	now     func() time.Time
}

// NewInstaller creates a template installer.
func NewInstaller(db *database.DB, catalog *Catalog) *Installer {
	return &Installer{
		db:      db,
		catalog: catalog,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Install expands every entry of the template into a new entity in the
// target workspace. Every created entity gets a fresh identity and a source
// tag linking back to the template and this installation; the template
// itself is never mutated.
func (ins *Installer) Install(ctx context.Context, templateID uuid.UUID, id auth.Identity, opts InstallOptions) (*InstallResult, error) {
	tpl, err := ins.catalog.Get(ctx, templateID, id.UserID)
	if err != nil {
		return nil, err
	}

	workspaceID, err := ins.resolveWorkspace(ctx, id, opts)
	if err != nil {
		return nil, err
	}

	now := ins.now()
	installID := uuid.New()
	result := &InstallResult{
		InstallID:   installID,
		WorkspaceID: workspaceID,
	}

	err = ins.db.InTx(ctx, func(store *database.Store) error {
		for i := range tpl.Entries {
			entry := &tpl.Entries[i]
			source := &models.EntitySource{
				Kind:         "template",
				TemplateID:   tpl.ID,
				InstallID:    installID,
				OriginalName: entry.Name(),
			}

			switch entry.Kind {
			case models.TemplateEntryTask:
				task := expandTask(entry.Task, workspaceID, id.UserID, source, opts.NamePrefix, now)
				if err := store.CreateTask(ctx, task); err != nil {
					return fmt.Errorf("entry %d: %w", i, err)
				}
				result.Tasks = append(result.Tasks, *task)
				result.Counts.Tasks++

			case models.TemplateEntryGoal:
				goal := expandGoal(entry.Goal, workspaceID, id.UserID, source, opts.NamePrefix, now)
				if err := store.CreateGoal(ctx, goal); err != nil {
					return fmt.Errorf("entry %d: %w", i, err)
				}
				result.Goals = append(result.Goals, *goal)
				result.Counts.Goals++

			case models.TemplateEntryHabit:
				habit := expandHabit(entry.Habit, workspaceID, id.UserID, source, opts.NamePrefix, now)
				if err := store.CreateHabit(ctx, habit); err != nil {
					return fmt.Errorf("entry %d: %w", i, err)
				}
				result.Habits = append(result.Habits, *habit)
				result.Counts.Habits++

			default:
				return fmt.Errorf("entry %d: unknown kind %q", i, entry.Kind)
			}
		}

		return store.CreateTemplateInstall(ctx, &models.TemplateInstall{
			ID:            installID,
			TemplateID:    tpl.ID,
			WorkspaceID:   workspaceID,
			OwnerID:       id.UserID,
			TasksCreated:  result.Counts.Tasks,
			GoalsCreated:  result.Counts.Goals,
			HabitsCreated: result.Counts.Habits,
			InstalledAt:   now,
		})
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("template_id", templateID.String()).
			Str("user_id", id.UserID).
			Msg("Template install rolled back")
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("template_id", templateID.String()).
		Str("install_id", installID.String()).
		Int("created", result.Counts.Total()).
		Msg("Template installed")
	return result, nil
}

// resolveWorkspace picks the target workspace: an explicit override (which
// must be owned by the caller) or the caller's default workspace.
func (ins *Installer) resolveWorkspace(ctx context.Context, id auth.Identity, opts InstallOptions) (uuid.UUID, error) {
	if opts.WorkspaceID != nil {
		w, err := ins.db.GetWorkspace(ctx, *opts.WorkspaceID)
		if database.IsNotFound(err) {
			return uuid.Nil, ErrNoWorkspace
		}
		if err != nil {
			return uuid.Nil, err
		}
		if w.OwnerID != id.UserID {
			return uuid.Nil, ErrNoWorkspace
		}
		return w.ID, nil
	}

	w, err := ins.db.GetDefaultWorkspace(ctx, id.UserID)
	if database.IsNotFound(err) {
		return uuid.Nil, ErrNoWorkspace
	}
	if err != nil {
		return uuid.Nil, err
	}
	return w.ID, nil
}

func expandTask(t *models.TaskTemplate, workspaceID uuid.UUID, ownerID string, source *models.EntitySource, prefix string, now time.Time) *models.Task {
	task := &models.Task{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		OwnerID:     ownerID,
		Title:       prefix + t.Title,
		Notes:       t.Notes,
		Status:      models.TaskStatusPending,
		Priority:    t.Priority,
		Source:      source,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.DueInDays != nil {
		due := now.AddDate(0, 0, *t.DueInDays)
		task.DueAt = &due
	}
	return task
}

func expandGoal(g *models.GoalTemplate, workspaceID uuid.UUID, ownerID string, source *models.EntitySource, prefix string, now time.Time) *models.Goal {
	goal := &models.Goal{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		OwnerID:     ownerID,
		Title:       prefix + g.Title,
		Description: g.Description,
		Status:      models.GoalStatusActive,
		Source:      source,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if g.TargetInDays != nil {
		target := now.AddDate(0, 0, *g.TargetInDays)
		goal.TargetDate = &target
	}
	return goal
}

func expandHabit(h *models.HabitTemplate, workspaceID uuid.UUID, ownerID string, source *models.EntitySource, prefix string, now time.Time) *models.Habit {
	return &models.Habit{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		OwnerID:     ownerID,
		Name:        prefix + h.Name,
		Cadence:     h.Cadence,
		Source:      source,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
