// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package auth

import (
	"context"
	"errors"
)

// Identity is the authenticated user attached to a request. Every operation
// that touches planner data receives the identity explicitly via context;
// nothing below the HTTP layer re-derives the current user.
type Identity struct {
	// UserID is the stable user identifier used as OwnerID on entities.
	UserID string
	// Email is the user's login email.
	Email string
	// Role is "admin" or "user".
	Role string
}

// ErrNoIdentity is returned when a context carries no authenticated identity.
var ErrNoIdentity = errors.New("no identity in context")

type identityKey struct{}

// ContextWithIdentity attaches an identity to the context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext extracts the authenticated identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}

// IsAdmin reports whether the identity has the admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == "admin"
}
