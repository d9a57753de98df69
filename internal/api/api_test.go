// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/daybook-dev/daybook/internal/audit"
	"github.com/daybook-dev/daybook/internal/auth"
	"github.com/daybook-dev/daybook/internal/config"
	"github.com/daybook-dev/daybook/internal/database"
	"github.com/daybook-dev/daybook/internal/models"
	"github.com/daybook-dev/daybook/internal/notify"
)

const testJWTSecret = "test-secret-key-for-api-tests-0123456789"

// testDBSemaphore serializes DuckDB creation across parallel tests.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB"})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}

// memAuditStore is an in-memory audit.Store for handler tests.
type memAuditStore struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memAuditStore) Save(_ context.Context, event *audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

func (m *memAuditStore) Query(_ context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Event, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *memAuditStore) Count(_ context.Context, filter audit.QueryFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.events)), nil
}

func (m *memAuditStore) Delete(_ context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

func (m *memAuditStore) byType(et audit.EventType) []audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []audit.Event
	for _, e := range m.events {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	db      *database.DB
	handler *Handler
	router  http.Handler
	store   *memAuditStore
	logger  *audit.Logger
	cfg     *config.Config
	jwt     *auth.JWTManager
}

// newTestEnv builds a full router over an in-memory database.
func newTestEnv(t *testing.T, authMode string) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	store := &memAuditStore{}
	logger := audit.NewLogger(store, &audit.Config{
		Enabled:         true,
		RetentionDays:   1,
		CleanupInterval: time.Hour,
		BufferSize:      64,
	})
	t.Cleanup(func() { _ = logger.Close() })

	cfg := &config.Config{
		Security: config.SecurityConfig{
			AuthMode:          authMode,
			JWTSecret:         testJWTSecret,
			SessionTimeout:    time.Hour,
			AdminEmail:        "admin@example.com",
			AdminPassword:     "correct horse battery staple",
			RateLimitDisabled: true,
		},
		API: config.APIConfig{MaxSnapshotBytes: 1 << 20},
	}

	var jwtm *auth.JWTManager
	var authn *auth.Authenticator
	if authMode == "jwt" {
		var err error
		jwtm, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			t.Fatalf("jwt manager: %v", err)
		}
		authn, err = auth.NewAuthenticator(&cfg.Security)
		if err != nil {
			t.Fatalf("authenticator: %v", err)
		}
	}

	handler := NewHandler(Deps{
		Config:        cfg,
		DB:            db,
		Audit:         logger,
		Authenticator: authn,
		JWT:           jwtm,
		Notifier:      notify.NewNotifier(&cfg.Slack),
	})
	router := NewRouter(handler, auth.NewMiddleware(jwtm, authMode), cfg).Setup()

	return &testEnv{
		db:      db,
		handler: handler,
		router:  router,
		store:   store,
		logger:  logger,
		cfg:     cfg,
		jwt:     jwtm,
	}
}

// envelope mirrors models.APIResponse with a raw data payload.
type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

func (env *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v\nbody: %s", err, rec.Body.String())
	}
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v\ndata: %s", err, string(env.Data))
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, "none")

	rec := env.request(t, http.MethodGet, "/api/v1/health/live", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("live status = %d, want 200", rec.Code)
	}

	rec = env.request(t, http.MethodGet, "/api/v1/health/ready", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", rec.Code)
	}

	rec = env.request(t, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
	var health struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeData(t, rec, &health)
	if health.Status != "healthy" {
		t.Errorf("health.status = %q, want healthy", health.Status)
	}
	if health.Checks["database"] != "ok" {
		t.Errorf("database check = %q, want ok", health.Checks["database"])
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	env := newTestEnv(t, "none")

	rec := env.request(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
}

func TestAuthRequiredInJWTMode(t *testing.T) {
	env := newTestEnv(t, "jwt")

	rec := env.request(t, http.MethodGet, "/api/v1/workspaces", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	e := decodeEnvelope(t, rec)
	if e.Error == nil || e.Error.Code != "UNAUTHORIZED" {
		t.Errorf("error = %+v, want UNAUTHORIZED", e.Error)
	}
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t, "jwt")

	// Wrong password is rejected with a generic message.
	rec := env.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", rec.Code)
	}

	// Correct credentials yield a working token.
	rec = env.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "correct horse battery staple",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	decodeData(t, rec, &login)
	if login.Token == "" {
		t.Fatal("login returned empty token")
	}

	rec = env.request(t, http.MethodGet, "/api/v1/workspaces", login.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated request status = %d, want 200", rec.Code)
	}

	// Both attempts must be audit logged.
	if err := env.logger.Close(); err != nil {
		t.Fatalf("close audit logger: %v", err)
	}
	if got := len(env.store.byType(audit.EventTypeAuthFailure)); got != 1 {
		t.Errorf("auth failure events = %d, want 1", got)
	}
	if got := len(env.store.byType(audit.EventTypeAuthSuccess)); got != 1 {
		t.Errorf("auth success events = %d, want 1", got)
	}
}

func TestLoginValidation(t *testing.T) {
	env := newTestEnv(t, "jwt")

	rec := env.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "not-an-email",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	e := decodeEnvelope(t, rec)
	if e.Error == nil || e.Error.Code != "VALIDATION_FAILED" {
		t.Errorf("error = %+v, want VALIDATION_FAILED", e.Error)
	}
}

func TestAuditEndpointForbiddenForNonAdmin(t *testing.T) {
	env := newTestEnv(t, "jwt")

	token, err := env.jwt.GenerateToken("user-7", "user7@example.com", "user")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	rec := env.request(t, http.MethodGet, "/api/v1/audit/events", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestAuditEndpointForAdmin(t *testing.T) {
	env := newTestEnv(t, "none") // local identity is admin

	rec := env.request(t, http.MethodGet, "/api/v1/audit/events?limit=10", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Events []audit.Event `json:"events"`
		Total  int64         `json:"total"`
		Limit  int           `json:"limit"`
	}
	decodeData(t, rec, &page)
	if page.Limit != 10 {
		t.Errorf("limit = %d, want 10", page.Limit)
	}
}

func TestAuditEndpointRejectsBadQuery(t *testing.T) {
	env := newTestEnv(t, "none")

	rec := env.request(t, http.MethodGet, "/api/v1/audit/events?limit=99999", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
