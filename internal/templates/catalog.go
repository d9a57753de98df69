// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

// Package templates provides the template catalog and the installer that
// expands a template's entries into live planner entities.
package templates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daybook-dev/daybook/internal/cache"
	"github.com/daybook-dev/daybook/internal/database"
	"github.com/daybook-dev/daybook/internal/models"
)

// ErrTemplateNotFound is returned when no builtin or user template matches
// the requested ID.
var ErrTemplateNotFound = errors.New("template not found")

// ErrBuiltinTemplate is returned when a mutation targets a builtin
// catalog template.
var ErrBuiltinTemplate = errors.New("builtin templates cannot be modified")

// catalogTTL bounds how stale a cached listing may be. User templates change
// rarely; builtins never change at runtime.
const catalogTTL = 5 * time.Minute

// Catalog serves builtin and user-authored templates. Listings are cached
// per owner; mutations invalidate the owner's entry.
type Catalog struct {
	store *database.Store
	cache *cache.Cache
}

// NewCatalog creates a template catalog backed by the given store.
func NewCatalog(store *database.Store) *Catalog {
	return &Catalog{
		store: store,
		cache: cache.New(catalogTTL),
	}
}

// List returns all templates visible to the owner: the builtin catalog plus
// the owner's own templates.
func (c *Catalog) List(ctx context.Context, ownerID string) ([]models.Template, error) {
	key := cache.GenerateKey("templates.list", ownerID)
	if cached, ok := c.cache.Get(key); ok {
		if list, ok := cached.([]models.Template); ok {
			return list, nil
		}
	}

	userTemplates, err := c.store.GetTemplatesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing user templates: %w", err)
	}

	list := make([]models.Template, 0, len(builtinTemplates)+len(userTemplates))
	list = append(list, builtinTemplates...)
	list = append(list, userTemplates...)

	c.cache.Set(key, list)
	return list, nil
}

// Get resolves a template by ID, checking builtins first, then the owner's
// templates. Another user's private template is indistinguishable from a
// missing one.
func (c *Catalog) Get(ctx context.Context, id uuid.UUID, ownerID string) (*models.Template, error) {
	for i := range builtinTemplates {
		if builtinTemplates[i].ID == id {
			t := builtinTemplates[i]
			return &t, nil
		}
	}

	t, err := c.store.GetTemplate(ctx, id)
	if database.IsNotFound(err) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching template: %w", err)
	}
	if t.OwnerID == nil || *t.OwnerID != ownerID {
		return nil, ErrTemplateNotFound
	}
	return t, nil
}

// Create stores a user template and invalidates the owner's cached listing.
func (c *Catalog) Create(ctx context.Context, t *models.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := c.store.CreateTemplate(ctx, t); err != nil {
		return err
	}
	c.invalidate(t.OwnerID)
	return nil
}

// Delete removes a user template. Builtins cannot be deleted.
func (c *Catalog) Delete(ctx context.Context, id uuid.UUID, ownerID string) error {
	t, err := c.Get(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if t.Builtin {
		return ErrBuiltinTemplate
	}
	if err := c.store.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	c.invalidate(t.OwnerID)
	return nil
}

func (c *Catalog) invalidate(ownerID *string) {
	if ownerID != nil {
		c.cache.Delete(cache.GenerateKey("templates.list", *ownerID))
	}
}

// intPtr is a convenience for builtin template literals.
func intPtr(n int) *int { return &n }

// builtinTemplates is the fixed catalog shipped with Daybook. IDs are stable
// so installs and audit records reference the same template across releases.
var builtinTemplates = []models.Template{
	{
		ID:          uuid.MustParse("0b8f4a1e-2c3d-4e5f-8a9b-1c2d3e4f5a01"),
		Name:        "Weekly Reset",
		Description: "A Sunday routine to close out the week and plan the next one.",
		Category:    "productivity",
		Builtin:     true,
		Entries: []models.TemplateEntry{
			{Kind: models.TemplateEntryTask, Task: &models.TaskTemplate{Title: "Clear inbox to zero", Priority: 2, DueInDays: intPtr(1)}},
			{Kind: models.TemplateEntryTask, Task: &models.TaskTemplate{Title: "Review last week's completed tasks", Priority: 1, DueInDays: intPtr(1)}},
			{Kind: models.TemplateEntryTask, Task: &models.TaskTemplate{Title: "Plan top three priorities for the week", Priority: 3, DueInDays: intPtr(1)}},
			{Kind: models.TemplateEntryHabit, Habit: &models.HabitTemplate{Name: "Weekly review", Cadence: models.HabitCadenceWeekly}},
		},
	},
	{
		ID:          uuid.MustParse("0b8f4a1e-2c3d-4e5f-8a9b-1c2d3e4f5a02"),
		Name:        "Morning Routine",
		Description: "Daily habits for a consistent start to the day.",
		Category:    "wellness",
		Builtin:     true,
		Entries: []models.TemplateEntry{
			{Kind: models.TemplateEntryHabit, Habit: &models.HabitTemplate{Name: "Stretch for 10 minutes", Cadence: models.HabitCadenceDaily}},
			{Kind: models.TemplateEntryHabit, Habit: &models.HabitTemplate{Name: "Write morning pages", Cadence: models.HabitCadenceDaily}},
			{Kind: models.TemplateEntryHabit, Habit: &models.HabitTemplate{Name: "Plan the day's top task", Cadence: models.HabitCadenceDaily}},
		},
	},
	{
		ID:          uuid.MustParse("0b8f4a1e-2c3d-4e5f-8a9b-1c2d3e4f5a03"),
		Name:        "Quarterly Goals",
		Description: "A starting structure for quarterly goal setting.",
		Category:    "planning",
		Builtin:     true,
		Entries: []models.TemplateEntry{
			{Kind: models.TemplateEntryGoal, Goal: &models.GoalTemplate{Title: "Define one health goal", TargetInDays: intPtr(90)}},
			{Kind: models.TemplateEntryGoal, Goal: &models.GoalTemplate{Title: "Define one learning goal", TargetInDays: intPtr(90)}},
			{Kind: models.TemplateEntryTask, Task: &models.TaskTemplate{Title: "Schedule mid-quarter check-in", DueInDays: intPtr(45)}},
		},
	},
}

// BuiltinTemplates returns a copy of the builtin catalog.
func BuiltinTemplates() []models.Template {
	out := make([]models.Template, len(builtinTemplates))
	copy(out, builtinTemplates)
	return out
}
