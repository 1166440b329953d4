// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package auth

import "time"

// # Authentication Constraints

const (
	// AccessTokenTTL is the duration a JWT access token remains valid.
	// We keep it short (15m) to minimize the impact of a leaked token —
	// access tokens are stateless and cannot be revoked early.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the duration a refresh credential remains valid.
	// Long-lived (30 days) to provide a good user experience; revocable.
	RefreshTokenTTL = 30 * 24 * time.Hour

	// RefreshTokenLength is the byte length of the random refresh token.
	RefreshTokenLength = 32

	// ResetTokenTTL is the duration a password reset token remains valid.
	// Short-lived (1 hour) for security.
	ResetTokenTTL = 1 * time.Hour

	// ResetTokenLength is the byte length of the random password reset token.
	ResetTokenLength = 32

	// MinPasswordLength is the minimum accepted password length. Enforced
	// before any hashing work is attempted.
	MinPasswordLength = 8

	// SessionIDPrefix marks anonymous session identifiers.
	SessionIDPrefix = "anon_"

	// SessionIDLength is the byte length of the random part of a generated
	// anonymous session id.
	SessionIDLength = 32

	// MaxSessionIDLength caps client-requested session identifiers.
	MaxSessionIDLength = 255
)
