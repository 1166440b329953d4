// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package auth

import "errors"

// # Store Sentinels

// Sentinel errors returned by the repositories. The service layer maps them
// to client-facing errors; the distinctions below exist for logging and tests,
// the API deliberately collapses them (see Service.RefreshSession).
var (
	// ErrTokenNotFound indicates no refresh token row matches the digest.
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrTokenRevoked indicates the refresh token was already consumed or
	// explicitly revoked. Seeing this for a token the client believes is
	// fresh is a replay signal.
	ErrTokenRevoked = errors.New("refresh token revoked")

	// ErrTokenExpired indicates the refresh token aged out.
	ErrTokenExpired = errors.New("refresh token expired")

	// ErrSessionNotFound indicates the anonymous session does not exist or
	// has been promoted. Promoted sessions are indistinguishable from
	// unknown ones on purpose.
	ErrSessionNotFound = errors.New("anonymous session not found")

	// ErrSessionExists indicates an anonymous session id collided with an
	// existing row (live or tombstoned).
	ErrSessionExists = errors.New("anonymous session already exists")

	// ErrResetTokenNotFound indicates the password reset token is unknown
	// or has expired.
	ErrResetTokenNotFound = errors.New("reset token not found")
)
