// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/daybook-dev/daybook/internal/models"
)

const templateColumns = `id, owner_id, name, description, category, builtin,
	entries, created_at, updated_at`

// CreateTemplate inserts a template row. Entries are stored as a JSON document.
func (s *Store) CreateTemplate(ctx context.Context, t *models.Template) error {
	entries, err := json.Marshal(t.Entries)
	if err != nil {
		return fmt.Errorf("failed to marshal template entries: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, nullableString(t.OwnerID), t.Name, t.Description, t.Category,
		t.Builtin, string(entries), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}
	return nil
}

// GetTemplate fetches a template by ID. Returns ErrNotFound if missing.
func (s *Store) GetTemplate(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// GetTemplatesByOwner returns templates created by ownerID in creation order.
// Builtin catalog templates are excluded; they live in the catalog layer.
func (s *Store) GetTemplatesByOwner(ctx context.Context, ownerID string) ([]models.Template, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+templateColumns+` FROM templates
		WHERE owner_id = ? AND builtin = false
		ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer closeWithLog(rows, "template rows")

	var out []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("template rows iteration failed: %w", err)
	}
	return out, nil
}

// UpdateTemplate updates the mutable fields of a user template.
func (s *Store) UpdateTemplate(ctx context.Context, t *models.Template) error {
	entries, err := json.Marshal(t.Entries)
	if err != nil {
		return fmt.Errorf("failed to marshal template entries: %w", err)
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE templates SET name = ?, description = ?, category = ?, entries = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Description, t.Category, string(entries), t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	return requireRow(res)
}

// DeleteTemplate removes a template row.
func (s *Store) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return requireRow(res)
}

// TemplateExists reports whether a template row with the given ID exists.
func (s *Store) TemplateExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx, `SELECT 1 FROM templates WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check template existence: %w", err)
	}
	return true, nil
}

// CreateTemplateInstall records a completed template installation.
func (s *Store) CreateTemplateInstall(ctx context.Context, rec *models.TemplateInstall) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO template_installs (id, template_id, workspace_id, owner_id,
			tasks_created, goals_created, habits_created, installed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TemplateID, rec.WorkspaceID, rec.OwnerID,
		rec.TasksCreated, rec.GoalsCreated, rec.HabitsCreated, rec.InstalledAt)
	if err != nil {
		return fmt.Errorf("failed to insert template install: %w", err)
	}
	return nil
}

// GetTemplateInstallsByOwner returns an owner's installation history, newest first.
func (s *Store) GetTemplateInstallsByOwner(ctx context.Context, ownerID string) ([]models.TemplateInstall, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, template_id, workspace_id, owner_id, tasks_created,
			goals_created, habits_created, installed_at
		FROM template_installs WHERE owner_id = ?
		ORDER BY installed_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query template installs: %w", err)
	}
	defer closeWithLog(rows, "template install rows")

	var out []models.TemplateInstall
	for rows.Next() {
		var r models.TemplateInstall
		if err := rows.Scan(&r.ID, &r.TemplateID, &r.WorkspaceID, &r.OwnerID,
			&r.TasksCreated, &r.GoalsCreated, &r.HabitsCreated, &r.InstalledAt); err != nil {
			return nil, fmt.Errorf("failed to scan template install: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("template install rows iteration failed: %w", err)
	}
	return out, nil
}

func scanTemplate(scan func(dest ...any) error) (*models.Template, error) {
	var t models.Template
	var owner sql.NullString
	var entries string
	err := scan(&t.ID, &owner, &t.Name, &t.Description, &t.Category, &t.Builtin,
		&entries, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan template: %w", err)
	}
	t.OwnerID = stringPtr(owner)
	if err := json.Unmarshal([]byte(entries), &t.Entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template entries: %w", err)
	}
	return &t, nil
}
