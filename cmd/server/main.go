// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

// Package main is the entry point for the Daybook server.
//
// Daybook is a self-hosted digital planner backend: workspaces, tasks,
// goals and habits behind a JSON API, with portable snapshot backups and
// an installable template catalog.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and config file (Koanf v2)
//  2. Database: DuckDB with schema migrations
//  3. Audit: DuckDB-backed audit trail with retention cleanup
//  4. Authentication: JWT or no-auth mode
//  5. Notifications: optional Slack webhook delivery
//  6. Backups: optional scheduled snapshot exports to disk
//  7. HTTP Server: Chi REST API with Prometheus metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults.
//
// For JWT authentication (default):
//   - JWT_SECRET: 32+ character secret for token signing
//   - ADMIN_EMAIL: admin login email
//   - ADMIN_PASSWORD: admin password (8+ characters)
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, waits up to 10s for in-flight requests,
// flushes the audit buffer, and closes the database.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daybook-dev/daybook/internal/api"
	"github.com/daybook-dev/daybook/internal/audit"
	"github.com/daybook-dev/daybook/internal/auth"
	"github.com/daybook-dev/daybook/internal/backup"
	"github.com/daybook-dev/daybook/internal/config"
	"github.com/daybook-dev/daybook/internal/database"
	"github.com/daybook-dev/daybook/internal/logging"
	"github.com/daybook-dev/daybook/internal/notify"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting Daybook")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Audit trail shares the DuckDB connection with the main store.
	auditStore := audit.NewDuckDBStore(db.Conn())
	if err := auditStore.CreateTable(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to create audit table")
	}
	auditLogger := audit.NewLogger(auditStore, audit.DefaultConfig())
	auditLogger.StartCleanupRoutine(ctx)
	defer func() {
		if err := auditLogger.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing audit logger")
		}
	}()

	var jwtManager *auth.JWTManager
	var authenticator *auth.Authenticator

	switch cfg.Security.AuthMode {
	case "jwt":
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		authenticator, err = auth.NewAuthenticator(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize authenticator")
		}
		logging.Info().Msg("JWT authentication enabled")
	case "none":
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  All requests act as the local admin user!")
		logging.Warn().Msg("  This mode should ONLY be used for:")
		logging.Warn().Msg("    - Local single-user deployments")
		logging.Warn().Msg("    - Completely isolated private networks")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  NEVER use AUTH_MODE=none on public networks!")
		logging.Warn().Msg("============================================================")
	default:
		logging.Fatal().Str("auth_mode", cfg.Security.AuthMode).Msg("Unknown auth mode")
	}

	notifier := notify.NewNotifier(&cfg.Slack)
	if notifier.Enabled() {
		logging.Info().Msg("Slack notifications enabled")
	}

	if cfg.Backup.Enabled {
		backupManager := backup.NewManager(&cfg.Backup, db.Store)
		backupManager.Start(ctx)
		logging.Info().
			Str("dir", cfg.Backup.Dir).
			Dur("interval", cfg.Backup.Interval).
			Msg("Scheduled backups enabled")
	}

	handler := api.NewHandler(api.Deps{
		Config:        cfg,
		DB:            db,
		Audit:         auditLogger,
		Authenticator: authenticator,
		JWT:           jwtManager,
		Notifier:      notifier,
	})
	router := api.NewRouter(handler, auth.NewMiddleware(jwtManager, cfg.Security.AuthMode), cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server error")
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logging.Info().Msg("Application stopped gracefully")
}
