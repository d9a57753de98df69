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

	"github.com/google/uuid"

	"github.com/daybook-dev/daybook/internal/models"
)

// CreateWorkspace inserts a workspace row.
func (s *Store) CreateWorkspace(ctx context.Context, w *models.Workspace) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, description, owner_id, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, nullableString(w.Description), w.OwnerID, w.IsDefault, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert workspace: %w", err)
	}
	return nil
}

// GetWorkspace fetches a workspace by ID. Returns ErrNotFound if missing.
func (s *Store) GetWorkspace(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, name, description, owner_id, is_default, created_at, updated_at
		FROM workspaces WHERE id = ?`, id)
	return scanWorkspace(row)
}

// GetWorkspacesByOwner returns all workspaces owned by ownerID, default first.
func (s *Store) GetWorkspacesByOwner(ctx context.Context, ownerID string) ([]models.Workspace, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, description, owner_id, is_default, created_at, updated_at
		FROM workspaces WHERE owner_id = ?
		ORDER BY is_default DESC, created_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workspaces: %w", err)
	}
	defer closeWithLog(rows, "workspace rows")

	var out []models.Workspace
	for rows.Next() {
		w, err := scanWorkspaceRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workspace rows iteration failed: %w", err)
	}
	return out, nil
}

// GetDefaultWorkspace returns the owner's default workspace, falling back to
// their oldest one. ErrNotFound when the owner has no workspaces at all.
func (s *Store) GetDefaultWorkspace(ctx context.Context, ownerID string) (*models.Workspace, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, name, description, owner_id, is_default, created_at, updated_at
		FROM workspaces WHERE owner_id = ?
		ORDER BY is_default DESC, created_at ASC
		LIMIT 1`, ownerID)
	return scanWorkspace(row)
}

// UpdateWorkspace updates the mutable fields of a workspace.
func (s *Store) UpdateWorkspace(ctx context.Context, w *models.Workspace) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE workspaces SET name = ?, description = ?, is_default = ?, updated_at = ?
		WHERE id = ?`,
		w.Name, nullableString(w.Description), w.IsDefault, w.UpdatedAt, w.ID)
	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	return requireRow(res)
}

// DeleteWorkspace removes a workspace row.
func (s *Store) DeleteWorkspace(ctx context.Context, id uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	return requireRow(res)
}

// WorkspaceExists reports whether a workspace row with the given ID exists.
func (s *Store) WorkspaceExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx, `SELECT 1 FROM workspaces WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check workspace existence: %w", err)
	}
	return true, nil
}

// requireRow converts a zero-row write into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOwners returns every distinct owner with planner data. Used by the
// backup scheduler to snapshot each user separately.
func (s *Store) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT DISTINCT owner_id FROM workspaces
		UNION
		SELECT DISTINCT owner_id FROM templates WHERE owner_id IS NOT NULL
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

func scanWorkspace(row *sql.Row) (*models.Workspace, error) {
	var w models.Workspace
	var desc sql.NullString
	err := row.Scan(&w.ID, &w.Name, &desc, &w.OwnerID, &w.IsDefault, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan workspace: %w", err)
	}
	w.Description = stringPtr(desc)
	return &w, nil
}

func scanWorkspaceRows(rows *sql.Rows) (*models.Workspace, error) {
	var w models.Workspace
	var desc sql.NullString
	if err := rows.Scan(&w.ID, &w.Name, &desc, &w.OwnerID, &w.IsDefault, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan workspace: %w", err)
	}
	w.Description = stringPtr(desc)
	return &w, nil
}
