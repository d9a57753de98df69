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

const habitColumns = `id, workspace_id, owner_id, name, cadence, streak,
	best_streak, last_completed_at, source, created_at, updated_at`

// CreateHabit inserts a habit row.
func (s *Store) CreateHabit(ctx context.Context, h *models.Habit) error {
	src, err := marshalSource(h.Source)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.WorkspaceID, h.OwnerID, h.Name, string(h.Cadence), h.Streak,
		h.BestStreak, nullableTime(h.LastCompletedAt), src, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert habit: %w", err)
	}
	return nil
}

// GetHabit fetches a habit by ID. Returns ErrNotFound if missing.
func (s *Store) GetHabit(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ?`, id)
	h, err := scanHabit(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return h, err
}

// GetHabitsByOwner returns all habits owned by ownerID in creation order.
func (s *Store) GetHabitsByOwner(ctx context.Context, ownerID string) ([]models.Habit, error) {
	return s.queryHabits(ctx, `SELECT `+habitColumns+` FROM habits WHERE owner_id = ? ORDER BY created_at ASC`, ownerID)
}

// GetHabitsByWorkspace returns all habits in a workspace in creation order.
func (s *Store) GetHabitsByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Habit, error) {
	return s.queryHabits(ctx, `SELECT `+habitColumns+` FROM habits WHERE workspace_id = ? ORDER BY created_at ASC`, workspaceID)
}

func (s *Store) queryHabits(ctx context.Context, query string, args ...any) ([]models.Habit, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer closeWithLog(rows, "habit rows")

	var out []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("habit rows iteration failed: %w", err)
	}
	return out, nil
}

// UpdateHabit updates the mutable fields of a habit.
func (s *Store) UpdateHabit(ctx context.Context, h *models.Habit) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE habits SET name = ?, cadence = ?, streak = ?, best_streak = ?,
			last_completed_at = ?, updated_at = ?
		WHERE id = ?`,
		h.Name, string(h.Cadence), h.Streak, h.BestStreak,
		nullableTime(h.LastCompletedAt), h.UpdatedAt, h.ID)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}
	return requireRow(res)
}

// DeleteHabit removes a habit row.
func (s *Store) DeleteHabit(ctx context.Context, id uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM habits WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	return requireRow(res)
}

// HabitExists reports whether a habit row with the given ID exists.
func (s *Store) HabitExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx, `SELECT 1 FROM habits WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check habit existence: %w", err)
	}
	return true, nil
}

func scanHabit(scan func(dest ...any) error) (*models.Habit, error) {
	var h models.Habit
	var src sql.NullString
	var cadence string
	var lastCompleted sql.NullTime
	err := scan(&h.ID, &h.WorkspaceID, &h.OwnerID, &h.Name, &cadence, &h.Streak,
		&h.BestStreak, &lastCompleted, &src, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan habit: %w", err)
	}
	h.Cadence = models.HabitCadence(cadence)
	h.LastCompletedAt = timePtr(lastCompleted)
	source, err := scanSource(src)
	if err != nil {
		return nil, err
	}
	h.Source = source
	return &h, nil
}
