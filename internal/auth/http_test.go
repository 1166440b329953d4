// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amparo-social/amparo-api/internal/auth"
	"github.com/amparo-social/amparo-api/internal/platform/constants"
)

func newHandlerFixture(t *testing.T) (*serviceFixture, http.Handler) {
	t.Helper()
	fixture := newServiceFixture(t)
	return fixture, auth.NewHandler(fixture.service, fixture.sessionService).Routes()
}

// postJSON runs one request through the router and returns the recorder.
func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

// decodeData unwraps the success envelope into a generic map.
func decodeData(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&envelope))
	return envelope.Data
}

// refreshCookie finds the refresh token cookie in the response, or nil.
func refreshCookie(recorder *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == constants.RefreshTokenCookieName {
			return cookie
		}
	}
	return nil
}

/*
TestRegisterEndpoint_TokenPairOnTheWire verifies the full wire contract of
a registration: both halves of the token pair appear in the JSON body, and
the refresh token additionally rides a scoped HttpOnly cookie.
*/
func TestRegisterEndpoint_TokenPairOnTheWire(t *testing.T) {
	_, router := newHandlerFixture(t)

	recorder := postJSON(router, "/register",
		`{"email":"maria@example.com","password":"hunter2hunter2","name":"Maria Silva"}`)
	require.Equal(t, http.StatusCreated, recorder.Code)

	cookie := refreshCookie(recorder)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, constants.RefreshTokenCookiePath, cookie.Path)

	data := decodeData(t, recorder)
	assert.NotEmpty(t, data[auth.FieldAccessToken])
	assert.Equal(t, "Bearer", data[auth.FieldTokenType])
	assert.NotNil(t, data[auth.FieldUser])

	// The body carries the refresh token too; clients that cannot read the
	// HttpOnly cookie must still receive a usable pair.
	refreshToken, _ := data[auth.FieldRefreshToken].(string)
	require.NotEmpty(t, refreshToken)
	assert.Equal(t, cookie.Value, refreshToken)
}

/*
TestLoginEndpoint_TokenPairOnTheWire verifies a login response carries the
refresh token in both the body and the cookie.
*/
func TestLoginEndpoint_TokenPairOnTheWire(t *testing.T) {
	fixture, router := newHandlerFixture(t)
	fixture.register(t, "maria@example.com")

	recorder := postJSON(router, "/login",
		`{"email":"maria@example.com","password":"hunter2hunter2"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	cookie := refreshCookie(recorder)
	require.NotNil(t, cookie)

	data := decodeData(t, recorder)
	refreshToken, _ := data[auth.FieldRefreshToken].(string)
	require.NotEmpty(t, refreshToken)
	assert.Equal(t, cookie.Value, refreshToken)

	// The body token must actually rotate.
	refresh := postJSON(router, "/refresh", `{"refresh_token":"`+refreshToken+`"}`)
	require.Equal(t, http.StatusOK, refresh.Code)
	rotated := decodeData(t, refresh)
	assert.NotEmpty(t, rotated[auth.FieldRefreshToken])
	assert.NotEqual(t, refreshToken, rotated[auth.FieldRefreshToken])
}
