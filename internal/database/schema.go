// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context for schema operations with a generous timeout.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the planner tables if they do not exist. Entity tables
// carry a foreign key to workspaces so restore ordering is enforced by the
// database, not just by convention.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	tables := []struct {
		name string
		ddl  string
	}{
		{
			name: "workspaces",
			ddl: `CREATE TABLE IF NOT EXISTS workspaces (
				id UUID PRIMARY KEY,
				name VARCHAR NOT NULL,
				description VARCHAR,
				owner_id VARCHAR NOT NULL,
				is_default BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
		},
		{
			name: "tasks",
			ddl: `CREATE TABLE IF NOT EXISTS tasks (
				id UUID PRIMARY KEY,
				workspace_id UUID NOT NULL REFERENCES workspaces(id),
				owner_id VARCHAR NOT NULL,
				title VARCHAR NOT NULL,
				notes VARCHAR,
				status VARCHAR NOT NULL,
				priority INTEGER NOT NULL DEFAULT 0,
				due_at TIMESTAMP,
				completed_at TIMESTAMP,
				source VARCHAR,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
		},
		{
			name: "goals",
			ddl: `CREATE TABLE IF NOT EXISTS goals (
				id UUID PRIMARY KEY,
				workspace_id UUID NOT NULL REFERENCES workspaces(id),
				owner_id VARCHAR NOT NULL,
				title VARCHAR NOT NULL,
				description VARCHAR,
				status VARCHAR NOT NULL,
				progress INTEGER NOT NULL DEFAULT 0,
				target_date TIMESTAMP,
				source VARCHAR,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
		},
		{
			name: "habits",
			ddl: `CREATE TABLE IF NOT EXISTS habits (
				id UUID PRIMARY KEY,
				workspace_id UUID NOT NULL REFERENCES workspaces(id),
				owner_id VARCHAR NOT NULL,
				name VARCHAR NOT NULL,
				cadence VARCHAR NOT NULL,
				streak INTEGER NOT NULL DEFAULT 0,
				best_streak INTEGER NOT NULL DEFAULT 0,
				last_completed_at TIMESTAMP,
				source VARCHAR,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
		},
		{
			name: "templates",
			ddl: `CREATE TABLE IF NOT EXISTS templates (
				id UUID PRIMARY KEY,
				owner_id VARCHAR,
				name VARCHAR NOT NULL,
				description VARCHAR NOT NULL,
				category VARCHAR NOT NULL,
				builtin BOOLEAN NOT NULL DEFAULT false,
				entries VARCHAR NOT NULL,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
		},
		{
			name: "template_installs",
			ddl: `CREATE TABLE IF NOT EXISTS template_installs (
				id UUID PRIMARY KEY,
				template_id UUID NOT NULL,
				workspace_id UUID NOT NULL REFERENCES workspaces(id),
				owner_id VARCHAR NOT NULL,
				tasks_created INTEGER NOT NULL DEFAULT 0,
				goals_created INTEGER NOT NULL DEFAULT 0,
				habits_created INTEGER NOT NULL DEFAULT 0,
				installed_at TIMESTAMP NOT NULL
			)`,
		},
	}

	for _, t := range tables {
		if _, err := db.conn.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.name, err)
		}
	}
	return nil
}

// createIndexes creates secondary indexes for owner and workspace scans.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_workspaces_owner ON workspaces(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_workspace ON tasks(workspace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_goals_owner ON goals(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_goals_workspace ON goals(workspace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_habits_owner ON habits(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_habits_workspace ON habits(workspace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_templates_owner ON templates(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_installs_owner ON template_installs(owner_id)`,
	}

	for _, ddl := range indexes {
		if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
