// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/amparo-social/amparo-api/internal/platform/apperr"
)

// PostgreSQL SQLSTATE classes we translate explicitly.
const (
	codeUniqueViolation = "23505"
)

// IsUniqueViolation reports whether err is a unique-constraint violation.
// Services use this to race-safely map duplicate inserts (e.g. a concurrent
// registration with the same email) to a domain conflict.
func IsUniqueViolation(err error) bool {
	var pgError *pgconn.PgError
	return errors.As(err, &pgError) && pgError.Code == codeUniqueViolation
}

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	// 2. Unique constraint violations become Conflicts
	if IsUniqueViolation(err) {
		return apperr.Conflict(resource + " already exists")
	}

	// 3. Cancelled or timed-out requests, and connectivity failures, mean the
	// storage layer was unreachable for this operation.
	if isUnreachable(err) {
		return apperr.Unavailable(err)
	}

	// 4. Unknown query errors become Internal Server Errors
	return apperr.Internal(err)
}

// isUnreachable reports whether err means the database could not be reached
// at all, as opposed to rejecting a query it received.
func isUnreachable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	// Refused, dropped, or timed-out connections.
	var connectError *pgconn.ConnectError
	if errors.As(err, &connectError) {
		return true
	}
	var netError net.Error
	return errors.As(err, &netError)
}
