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

const goalColumns = `id, workspace_id, owner_id, title, description, status,
	progress, target_date, source, created_at, updated_at`

// CreateGoal inserts a goal row.
func (s *Store) CreateGoal(ctx context.Context, g *models.Goal) error {
	src, err := marshalSource(g.Source)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.WorkspaceID, g.OwnerID, g.Title, nullableString(g.Description),
		string(g.Status), g.Progress, nullableTime(g.TargetDate), src,
		g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert goal: %w", err)
	}
	return nil
}

// GetGoal fetches a goal by ID. Returns ErrNotFound if missing.
func (s *Store) GetGoal(ctx context.Context, id uuid.UUID) (*models.Goal, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

// GetGoalsByOwner returns all goals owned by ownerID in creation order.
func (s *Store) GetGoalsByOwner(ctx context.Context, ownerID string) ([]models.Goal, error) {
	return s.queryGoals(ctx, `SELECT `+goalColumns+` FROM goals WHERE owner_id = ? ORDER BY created_at ASC`, ownerID)
}

// GetGoalsByWorkspace returns all goals in a workspace in creation order.
func (s *Store) GetGoalsByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Goal, error) {
	return s.queryGoals(ctx, `SELECT `+goalColumns+` FROM goals WHERE workspace_id = ? ORDER BY created_at ASC`, workspaceID)
}

func (s *Store) queryGoals(ctx context.Context, query string, args ...any) ([]models.Goal, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer closeWithLog(rows, "goal rows")

	var out []models.Goal
	for rows.Next() {
		g, err := scanGoal(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("goal rows iteration failed: %w", err)
	}
	return out, nil
}

// UpdateGoal updates the mutable fields of a goal.
func (s *Store) UpdateGoal(ctx context.Context, g *models.Goal) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE goals SET title = ?, description = ?, status = ?, progress = ?,
			target_date = ?, updated_at = ?
		WHERE id = ?`,
		g.Title, nullableString(g.Description), string(g.Status), g.Progress,
		nullableTime(g.TargetDate), g.UpdatedAt, g.ID)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return requireRow(res)
}

// DeleteGoal removes a goal row.
func (s *Store) DeleteGoal(ctx context.Context, id uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return requireRow(res)
}

// GoalExists reports whether a goal row with the given ID exists.
func (s *Store) GoalExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx, `SELECT 1 FROM goals WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check goal existence: %w", err)
	}
	return true, nil
}

func scanGoal(scan func(dest ...any) error) (*models.Goal, error) {
	var g models.Goal
	var desc, src sql.NullString
	var status string
	var targetDate sql.NullTime
	err := scan(&g.ID, &g.WorkspaceID, &g.OwnerID, &g.Title, &desc, &status,
		&g.Progress, &targetDate, &src, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan goal: %w", err)
	}
	g.Description = stringPtr(desc)
	g.Status = models.GoalStatus(status)
	g.TargetDate = timePtr(targetDate)
	source, err := scanSource(src)
	if err != nil {
		return nil, err
	}
	g.Source = source
	return &g, nil
}
