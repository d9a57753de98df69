// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/daybook-dev/daybook/internal/config"
)

// ErrInvalidCredentials is returned for any email/password mismatch. The
// error is deliberately indistinct so callers cannot tell a bad email from a
// bad password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator verifies login credentials against the configured admin
// account. Daybook is a single-admin system; multi-user stores would slot in
// behind this same interface.
type Authenticator struct {
	email        string
	passwordHash []byte
}

// NewAuthenticator builds an authenticator from the security configuration.
// AdminPassword may be a bcrypt hash (recommended) or a plaintext value,
// which is hashed at startup so comparisons are uniform.
func NewAuthenticator(cfg *config.SecurityConfig) (*Authenticator, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil, fmt.Errorf("admin credentials are required when auth is enabled")
	}

	hash := []byte(cfg.AdminPassword)
	if !strings.HasPrefix(cfg.AdminPassword, "$2") {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
	}

	return &Authenticator{
		email:        cfg.AdminEmail,
		passwordHash: hash,
	}, nil
}

// VerifyCredentials checks the email and password, returning the admin
// identity on success.
func (a *Authenticator) VerifyCredentials(email, password string) (Identity, error) {
	// Hash both emails so the comparison is constant-time regardless of length.
	wantEmail := sha256.Sum256([]byte(a.email))
	gotEmail := sha256.Sum256([]byte(email))
	emailOK := subtle.ConstantTimeCompare(wantEmail[:], gotEmail[:]) == 1

	passwordErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))

	if !emailOK || passwordErr != nil {
		return Identity{}, ErrInvalidCredentials
	}

	return Identity{
		UserID: "admin",
		Email:  a.email,
		Role:   "admin",
	}, nil
}
