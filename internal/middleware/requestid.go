// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

// Package middleware provides HTTP middleware shared by the API router:
// request IDs, request logging, Prometheus instrumentation, and gzip
// compression.
package middleware

import (
	"net/http"

	"github.com/daybook-dev/daybook/internal/logging"
)

// RequestID assigns a unique ID to each request, honoring an existing
// X-Request-ID from an upstream proxy. The ID is echoed in the response
// header and injected into the logging context so every log line and
// audit event for the request carries it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = logging.GenerateRequestID()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.ContextWithRequestID(r.Context(), requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
