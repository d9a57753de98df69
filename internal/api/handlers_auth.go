// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package api

import (
	"errors"
	"net/http"

	"github.com/daybook-dev/daybook/internal/auth"
	"github.com/daybook-dev/daybook/internal/audit"
	"github.com/daybook-dev/daybook/internal/metrics"
	"github.com/daybook-dev/daybook/internal/validation"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// Login verifies credentials and issues a JWT. Failed attempts are audit
// logged with the source address; the error message never reveals whether
// the email or the password was wrong.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.authn == nil || h.jwt == nil {
		rw.BadRequest("authentication is disabled")
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		rw.ValidationError(ve)
		return
	}

	source := audit.SourceFromRequest(r)
	identity, err := h.authn.VerifyCredentials(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
			h.audit.LogAuthFailure(r.Context(), req.Email, source, "invalid credentials")
			rw.Unauthorized("invalid email or password")
			return
		}
		rw.InternalError("login failed")
		return
	}

	token, err := h.jwt.GenerateToken(identity.UserID, identity.Email, identity.Role)
	if err != nil {
		rw.InternalError("failed to issue token")
		return
	}

	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	h.audit.LogAuthSuccess(r.Context(), identity.UserID, identity.Email, source)

	rw.Success(loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(h.cfg.Security.SessionTimeout.Seconds()),
		Email:     identity.Email,
		Role:      identity.Role,
	})
}
