// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

// Package backup writes scheduled snapshot backups to disk.
//
// Each run exports one snapshot file per owner into the configured backup
// directory, gzip-compressed, then prunes old files beyond the retention
// limit. A metadata.json next to the backup files records every run so
// operators can see backup history without parsing filenames.
package backup

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/daybook-dev/daybook/internal/auth"
	"github.com/daybook-dev/daybook/internal/config"
	"github.com/daybook-dev/daybook/internal/database"
	"github.com/daybook-dev/daybook/internal/logging"
	"github.com/daybook-dev/daybook/internal/snapshot"
)

// metadataFile is the run-history file kept alongside backup archives.
const metadataFile = "metadata.json"

// Record describes a single per-owner backup file.
type Record struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     string    `json:"owner_id"`
	File        string    `json:"file"`
	EntityCount int       `json:"entity_count"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// Metadata is the persisted backup history.
type Metadata struct {
	Backups []Record   `json:"backups"`
	LastRun *time.Time `json:"last_run,omitempty"`
}

// Manager exports per-owner snapshots to disk on a schedule.
type Manager struct {
	cfg       *config.BackupConfig
	store     *database.Store
	assembler *snapshot.Assembler
	now       func() time.Time

	mu       sync.Mutex
	metadata Metadata
}

// NewManager creates a backup manager. The backup directory is created on
// first run, not here.
func NewManager(cfg *config.BackupConfig, store *database.Store) *Manager {
	return &Manager{
		cfg:       cfg,
		store:     store,
		assembler: snapshot.NewAssembler(store),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the backup loop until ctx is canceled. The first backup runs
// one full interval after startup rather than immediately, so restarts do
// not pile up backup files.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.RunOnce(ctx); err != nil {
					logging.Error().Err(err).Msg("Scheduled backup failed")
				}
			}
		}
	}()
}

// RunOnce exports a snapshot file for every owner and prunes old backups.
// Failures for one owner do not stop the others; the first error is
// returned after all owners have been attempted.
func (m *Manager) RunOnce(ctx context.Context) error {
	if err := os.MkdirAll(m.cfg.Dir, 0o750); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := m.loadMetadata(); err != nil {
		logging.Warn().Err(err).Msg("Backup metadata unreadable, starting fresh")
	}

	owners, err := m.store.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("failed to list owners: %w", err)
	}

	started := m.now()
	var firstErr error
	for _, owner := range owners {
		rec, err := m.backupOwner(ctx, owner)
		if err != nil {
			logging.Error().Err(err).Str("owner_id", owner).Msg("Backup failed for owner")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		m.mu.Lock()
		m.metadata.Backups = append(m.metadata.Backups, *rec)
		m.mu.Unlock()
		logging.Info().
			Str("owner_id", owner).
			Str("file", rec.File).
			Int("entities", rec.EntityCount).
			Msg("Backup written")
	}

	m.mu.Lock()
	m.metadata.LastRun = &started
	m.mu.Unlock()

	if err := m.prune(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.saveMetadata(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// backupOwner exports one owner's snapshot into a gzip file and returns its
// record. The file is written to a temp name and renamed so a crash never
// leaves a truncated backup behind.
func (m *Manager) backupOwner(ctx context.Context, ownerID string) (*Record, error) {
	snap, err := m.assembler.Export(ctx, auth.Identity{UserID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to export snapshot: %w", err)
	}

	created := m.now()
	name := fmt.Sprintf("daybook-%s-%s.json.gz", ownerID, created.Format("20060102-150405"))
	path := filepath.Join(m.cfg.Dir, name)

	if err := writeSnapshotFile(path, snap); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup file: %w", err)
	}

	return &Record{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		File:        name,
		EntityCount: snap.EntityCount(),
		SizeBytes:   info.Size(),
		CreatedAt:   created,
	}, nil
}

func writeSnapshotFile(path string, snap *snapshot.Snapshot) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}

	gz := gzip.NewWriter(f)
	encErr := json.NewEncoder(gz).Encode(snap)
	if err := gz.Close(); err != nil && encErr == nil {
		encErr = err
	}
	if err := f.Close(); err != nil && encErr == nil {
		encErr = err
	}
	if encErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write backup file: %w", encErr)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize backup file: %w", err)
	}
	return nil
}

// prune removes the oldest backups per owner beyond MaxBackups. Files that
// fail to delete stay in the metadata so the next run retries them.
func (m *Manager) prune() error {
	if m.cfg.MaxBackups <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	byOwner := make(map[string][]Record)
	for _, rec := range m.metadata.Backups {
		byOwner[rec.OwnerID] = append(byOwner[rec.OwnerID], rec)
	}

	var firstErr error
	kept := m.metadata.Backups[:0]
	for _, recs := range byOwner {
		sort.Slice(recs, func(i, j int) bool {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		})
		for i, rec := range recs {
			if i < m.cfg.MaxBackups {
				kept = append(kept, rec)
				continue
			}
			path := filepath.Join(m.cfg.Dir, rec.File)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logging.Warn().Err(err).Str("file", rec.File).Msg("Failed to prune backup file")
				kept = append(kept, rec)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			logging.Info().Str("file", rec.File).Msg("Pruned old backup")
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		return kept[i].CreatedAt.After(kept[j].CreatedAt)
	})
	m.metadata.Backups = kept
	return firstErr
}

func (m *Manager) loadMetadata() error {
	data, err := os.ReadFile(filepath.Join(m.cfg.Dir, metadataFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return err
	}
	m.mu.Lock()
	m.metadata = meta
	m.mu.Unlock()
	return nil
}

func (m *Manager) saveMetadata() error {
	m.mu.Lock()
	data, err := json.MarshalIndent(&m.metadata, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal backup metadata: %w", err)
	}

	path := filepath.Join(m.cfg.Dir, metadataFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("failed to write backup metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize backup metadata: %w", err)
	}
	return nil
}

// History returns a copy of the recorded backups, newest first.
func (m *Manager) History() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.metadata.Backups))
	copy(out, m.metadata.Backups)
	return out
}
