// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package ctxutil_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amparo-social/amparo-api/internal/platform/ctxutil"
	"github.com/amparo-social/amparo-api/internal/platform/sec"
)

/*
TestRequestID_RoundTrip verifies storage and retrieval of the correlation id.
*/
func TestRequestID_RoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	ctx = ctxutil.WithRequestID(ctx, "req-123")
	assert.Equal(t, "req-123", ctxutil.GetRequestID(ctx))
}

/*
TestLogger_FallsBackToDefault ensures GetLogger never returns nil, so
callers can log unconditionally.
*/
func TestLogger_FallsBackToDefault(t *testing.T) {
	require.NotNil(t, ctxutil.GetLogger(context.Background()))

	logger := slog.Default().With(slog.String("component", "test"))
	ctx := ctxutil.WithLogger(context.Background(), logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestAuthUser_RoundTrip verifies claims storage and the nil default for
anonymous requests.
*/
func TestAuthUser_RoundTrip(t *testing.T) {
	assert.Nil(t, ctxutil.GetAuthUser(context.Background()))

	claims := &sec.AccessClaims{UserID: 9, Role: string(sec.RoleAdmin)}
	ctx := ctxutil.WithAuthUser(context.Background(), claims)

	got := ctxutil.GetAuthUser(ctx)
	require.NotNil(t, got)
	assert.Equal(t, int64(9), got.UserID)
	assert.Equal(t, string(sec.RoleAdmin), got.Role)
}
