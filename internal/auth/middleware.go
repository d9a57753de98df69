// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package auth

import (
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/daybook-dev/daybook/internal/logging"
	"github.com/daybook-dev/daybook/internal/models"
)

// localIdentity is used when AuthMode is "none": a single-user deployment
// where every request acts as the local admin.
var localIdentity = Identity{
	UserID: "local",
	Email:  "local@daybook",
	Role:   "admin",
}

// Middleware authenticates requests and attaches the caller's Identity to
// the request context.
type Middleware struct {
	jwtManager *JWTManager
	mode       string
	secLog     *logging.SecurityLogger
}

// NewMiddleware creates the authentication middleware. jwtManager may be nil
// when mode is "none".
func NewMiddleware(jwtManager *JWTManager, mode string) *Middleware {
	return &Middleware{
		jwtManager: jwtManager,
		mode:       mode,
		secLog:     logging.NewSecurityLogger("auth"),
	}
}

// RequireAuth rejects requests without a valid bearer token. In "none" mode
// every request is treated as the local admin user.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.mode == "none" {
			ctx := ContextWithIdentity(r.Context(), localIdentity)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		tokenString, ok := bearerToken(r)
		if !ok {
			m.unauthorized(w, r, "missing bearer token")
			return
		}

		claims, err := m.jwtManager.ValidateToken(tokenString)
		if err != nil {
			m.secLog.LogEvent(r.Context(), logging.SecurityEvent{
				Event:     "token_rejected",
				IPAddress: r.RemoteAddr,
				UserAgent: r.UserAgent(),
				Success:   false,
				Error:     err.Error(),
			})
			m.unauthorized(w, r, "invalid or expired token")
			return
		}

		ctx := ContextWithIdentity(r.Context(), Identity{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects authenticated requests whose identity lacks the admin
// role. Must be mounted after RequireAuth.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := IdentityFromContext(r.Context())
		if err != nil {
			m.unauthorized(w, r, "authentication required")
			return
		}
		if !id.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func (m *Middleware) unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	logging.Ctx(r.Context()).Debug().
		Str("path", logging.Sanitize(r.URL.Path)).
		Str("reason", message).
		Msg("Request rejected by auth middleware")
	writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// writeAuthError writes an API error envelope without importing the api
// package, avoiding an import cycle.
func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := models.APIResponse{
		Status: "error",
		Error:  &models.APIError{Code: code, Message: message},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Failed to encode auth error response")
	}
}
