// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package auth

import (
	"context"
	"time"
)

// # Repository Contracts

// UserRepository defines the persistence contract for registered users.
type UserRepository interface {
	// FindByID retrieves a user by primary key.
	FindByID(ctx context.Context, id int64) (*User, error)

	// FindByEmail retrieves a user by their unique email address.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// CreateWithRefreshToken inserts a new user and their first refresh
	// token in a single transaction. Either both rows exist afterwards or
	// neither does; a registration never leaves a user who cannot log in.
	CreateWithRefreshToken(ctx context.Context, user *User, token *RefreshToken) error

	// UpdateProfile persists name, social name and pronoun changes.
	UpdateProfile(ctx context.Context, user *User) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error

	// SetActive flips the account's active flag. Accounts are never
	// deleted; deactivation is the terminal state.
	SetActive(ctx context.Context, userID int64, active bool) error
}

// RefreshTokenRepository defines the persistence contract for refresh tokens.
type RefreshTokenRepository interface {
	// Create inserts a new refresh token row.
	Create(ctx context.Context, token *RefreshToken) error

	// Rotate atomically consumes the token identified by oldTokenHash and
	// inserts next as its successor, returning the owning user id.
	//
	// The consume step is a conditional update (revoke only if currently
	// valid), so under concurrent presentation of the same token exactly
	// one caller wins; losers receive ErrTokenRevoked. A token that was
	// never issued yields ErrTokenNotFound, an aged-out one
	// ErrTokenExpired.
	Rotate(ctx context.Context, oldTokenHash string, next *RefreshToken) (int64, error)

	// RevokeByHash revokes the token identified by the digest. Idempotent:
	// revoking an unknown or already-revoked token is not an error.
	RevokeByHash(ctx context.Context, tokenHash string) error

	// RevokeOthers revokes every active token of the user except the one
	// identified by exceptTokenHash. Used on password change to keep the
	// current device logged in.
	RevokeOthers(ctx context.Context, userID int64, exceptTokenHash string) error

	// RevokeAll revokes every active token of the user.
	RevokeAll(ctx context.Context, userID int64) error
}

// SessionRepository defines the persistence contract for anonymous sessions.
type SessionRepository interface {
	// Create inserts a new anonymous session. Returns ErrSessionExists on
	// id collision, including collisions with promoted tombstones.
	Create(ctx context.Context, session *AnonymousSession) error

	// FindByID retrieves a live anonymous session. Promoted sessions
	// return ErrSessionNotFound, same as unknown ids.
	FindByID(ctx context.Context, id string) (*AnonymousSession, error)

	// Promote tombstones the session and re-owns its chats to the user,
	// in one transaction. Returns ErrSessionNotFound if the session does
	// not exist or was already promoted.
	Promote(ctx context.Context, sessionID string, userID int64) error
}

// ResetTokenRepository defines the short-lived password reset token store.
//
// Reset tokens are ephemeral by nature, so they live in Redis with a TTL
// rather than in Postgres.
type ResetTokenRepository interface {
	// Set stores the token digest mapped to the user id with a TTL.
	Set(ctx context.Context, tokenHash string, userID int64, ttl time.Duration) error

	// Get resolves a token digest to its user id, or ErrResetTokenNotFound.
	Get(ctx context.Context, tokenHash string) (int64, error)

	// Delete removes the token so it cannot be replayed. Idempotent.
	Delete(ctx context.Context, tokenHash string) error
}
