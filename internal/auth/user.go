// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

/*
Package auth implements the identity and session-lifecycle core of the
Amparo platform.

It defines the domain entities (User, RefreshToken, AnonymousSession) and the
logic for authentication, authorization, and the anonymous-to-registered
identity transition.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to identity.
*/
package auth

import (
	"time"

	"github.com/amparo-social/amparo-api/internal/platform/sec"
)

// # Domain Entities

// User represents a registered member of the Amparo platform.
//
// Users are never physically deleted; deactivation flips IsActive and leaves
// the row (and everything keyed to it) intact.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Explicitly omitted from JSON for security.
	Name         string    `json:"name"`
	SocialName   string    `json:"social_name,omitempty"`
	Pronoun      string    `json:"pronoun,omitempty"`
	Role         sec.Role  `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshToken represents one issued refresh credential.
//
// Only the SHA-256 digest of the raw token is stored; the raw value travels
// to the client exactly once and is never persisted. Rotation revokes the
// row and inserts a successor, so at most one credential per login chain is
// active at any time.
type RefreshToken struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	TokenHash string     `json:"-"` // Digest of the refresh token. Omitted for security.
	ExpiresAt time.Time  `json:"expires_at"`
	IsRevoked bool       `json:"is_revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// AnonymousSession is a durable, credential-less identity placeholder that
// lets someone use the support chat before registering.
//
// Lifecycle: created → optionally promoted (its chats are re-owned by a
// registered user and the row becomes a tombstone) → otherwise retained
// indefinitely. A promoted session never again resolves as a valid owner.
type AnonymousSession struct {
	ID             string     `json:"session_id"`
	CreatedAt      time.Time  `json:"created_at"`
	PromotedAt     *time.Time `json:"-"`
	PromotedUserID *int64     `json:"-"`
}

// IsPromoted reports whether the session has been claimed by a registered user.
func (s *AnonymousSession) IsPromoted() bool {
	return s.PromotedAt != nil
}

// # Resolved Identity

// Identity is the outcome of resolving an inbound request's credentials:
// either a registered user or an anonymous session, never both.
type Identity struct {
	// User is set when the caller presented a valid access token.
	User *User

	// Session is set when the caller presented a valid anonymous session id.
	Session *AnonymousSession
}

// IsAnonymous reports whether the identity is a credential-less session.
func (i Identity) IsAnonymous() bool {
	return i.User == nil
}

// Role returns the registered role, or the empty role for anonymous callers.
func (i Identity) Role() sec.Role {
	if i.User == nil {
		return ""
	}
	return i.User.Role
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldName            = "name"
	FieldSocialName      = "social_name"
	FieldPronoun         = "pronoun"
	FieldToken           = "token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldRefreshToken    = "refresh_token"
	FieldSessionID       = "session_id"
	FieldAccessToken     = "access_token"
	FieldTokenType       = "token_type"
	FieldExpiresIn       = "expires_in"
	FieldUser            = "user"
	FieldMessage         = "message"
)
