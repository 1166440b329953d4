// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package dberr_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amparo-social/amparo-api/internal/platform/apperr"
	"github.com/amparo-social/amparo-api/internal/platform/dberr"
)

/*
TestWrap_Classification verifies the database error taxonomy: missing rows
are NotFound, duplicates are Conflict, an unreachable store is Unavailable,
and anything else stays an opaque internal error.
*/
func TestWrap_Classification(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	tests := []struct {
		name         string
		err          error
		expectedCode string
	}{
		{"no_rows_is_not_found", pgx.ErrNoRows, apperr.CodeNotFound},
		{"unique_violation_is_conflict", &pgconn.PgError{Code: "23505"}, apperr.CodeConflict},
		{"deadline_is_unavailable", context.DeadlineExceeded, apperr.CodeUnavailable},
		{"cancellation_is_unavailable", context.Canceled, apperr.CodeUnavailable},
		{"refused_connection_is_unavailable", refused, apperr.CodeUnavailable},
		{"wrapped_refused_connection_is_unavailable", fmt.Errorf("acquire: %w", refused), apperr.CodeUnavailable},
		{"unknown_error_is_internal", errors.New("syntax error"), apperr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := dberr.Wrap(tt.err, "User")
			require.Error(t, wrapped)
			assert.True(t, apperr.IsCode(wrapped, tt.expectedCode))
		})
	}
}

/*
TestWrap_NeverCollapsesIntoCredentialErrors pins the outage/credential
separation: no database failure may ever surface as INVALID_CREDENTIALS.
*/
func TestWrap_NeverCollapsesIntoCredentialErrors(t *testing.T) {
	inputs := []error{
		pgx.ErrNoRows,
		context.DeadlineExceeded,
		&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection reset")},
		errors.New("anything"),
	}

	for _, err := range inputs {
		wrapped := dberr.Wrap(err, "User")
		assert.False(t, apperr.IsCode(wrapped, apperr.CodeInvalidCredentials))
	}
}

/*
TestWrap_NilPassesThrough verifies a nil error stays nil.
*/
func TestWrap_NilPassesThrough(t *testing.T) {
	assert.NoError(t, dberr.Wrap(nil, "User"))
}

/*
TestIsUniqueViolation verifies only SQLSTATE 23505 matches.
*/
func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, dberr.IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, dberr.IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, dberr.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, dberr.IsUniqueViolation(errors.New("23505")))
}
