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

const taskColumns = `id, workspace_id, owner_id, title, notes, status, priority,
	due_at, completed_at, source, created_at, updated_at`

// CreateTask inserts a task row.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	src, err := marshalSource(t.Source)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.WorkspaceID, t.OwnerID, t.Title, nullableString(t.Notes),
		string(t.Status), t.Priority, nullableTime(t.DueAt),
		nullableTime(t.CompletedAt), src, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// GetTask fetches a task by ID. Returns ErrNotFound if missing.
func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// GetTasksByOwner returns all tasks owned by ownerID in creation order.
func (s *Store) GetTasksByOwner(ctx context.Context, ownerID string) ([]models.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? ORDER BY created_at ASC`, ownerID)
}

// GetTasksByWorkspace returns all tasks in a workspace in creation order.
func (s *Store) GetTasksByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE workspace_id = ? ORDER BY created_at ASC`, workspaceID)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer closeWithLog(rows, "task rows")

	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("task rows iteration failed: %w", err)
	}
	return out, nil
}

// UpdateTask updates the mutable fields of a task.
func (s *Store) UpdateTask(ctx context.Context, t *models.Task) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE tasks SET title = ?, notes = ?, status = ?, priority = ?,
			due_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, nullableString(t.Notes), string(t.Status), t.Priority,
		nullableTime(t.DueAt), nullableTime(t.CompletedAt), t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireRow(res)
}

// DeleteTask removes a task row.
func (s *Store) DeleteTask(ctx context.Context, id uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireRow(res)
}

// TaskExists reports whether a task row with the given ID exists.
func (s *Store) TaskExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check task existence: %w", err)
	}
	return true, nil
}

func scanTask(scan func(dest ...any) error) (*models.Task, error) {
	var t models.Task
	var notes, src sql.NullString
	var status string
	var dueAt, completedAt sql.NullTime
	err := scan(&t.ID, &t.WorkspaceID, &t.OwnerID, &t.Title, &notes, &status,
		&t.Priority, &dueAt, &completedAt, &src, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	t.Notes = stringPtr(notes)
	t.Status = models.TaskStatus(status)
	t.DueAt = timePtr(dueAt)
	t.CompletedAt = timePtr(completedAt)
	source, err := scanSource(src)
	if err != nil {
		return nil, err
	}
	t.Source = source
	return &t, nil
}
