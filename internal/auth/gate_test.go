// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amparo-social/amparo-api/internal/auth"
	"github.com/amparo-social/amparo-api/internal/platform/apperr"
	"github.com/amparo-social/amparo-api/internal/platform/sec"
)

func registeredIdentity(id int64, role sec.Role) auth.Identity {
	return auth.Identity{User: &auth.User{ID: id, Role: role, IsActive: true}}
}

func anonymousIdentity(sessionID string) auth.Identity {
	return auth.Identity{Session: &auth.AnonymousSession{ID: sessionID}}
}

/*
TestAuthorize covers the role gate across the full hierarchy plus the
anonymous case.
*/
func TestAuthorize(t *testing.T) {
	tests := []struct {
		name         string
		identity     auth.Identity
		required     sec.Role
		expectedCode string // "" means allowed
	}{
		{"admin_can_do_admin", registeredIdentity(1, sec.RoleAdmin), sec.RoleAdmin, ""},
		{"admin_can_do_beneficiary", registeredIdentity(1, sec.RoleAdmin), sec.RoleBeneficiary, ""},
		{"assistant_cannot_do_admin", registeredIdentity(2, sec.RoleAssistant), sec.RoleAdmin, apperr.CodeForbidden},
		{"assistant_can_do_assistant", registeredIdentity(2, sec.RoleAssistant), sec.RoleAssistant, ""},
		{"beneficiary_cannot_do_assistant", registeredIdentity(3, sec.RoleBeneficiary), sec.RoleAssistant, apperr.CodeForbidden},
		{"anonymous_is_unauthenticated", anonymousIdentity("anon_x"), sec.RoleBeneficiary, apperr.CodeUnauthenticated},
		{"empty_identity_is_unauthenticated", auth.Identity{}, sec.RoleBeneficiary, apperr.CodeUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.Authorize(tt.identity, tt.required)
			if tt.expectedCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperr.IsCode(err, tt.expectedCode))
		})
	}
}

/*
TestAuthorizeOwnership checks owner, admin-override, and stranger outcomes.
*/
func TestAuthorizeOwnership(t *testing.T) {
	tests := []struct {
		name         string
		identity     auth.Identity
		ownerID      int64
		expectedCode string
	}{
		{"owner_allowed", registeredIdentity(7, sec.RoleBeneficiary), 7, ""},
		{"admin_override", registeredIdentity(1, sec.RoleAdmin), 7, ""},
		{"assistant_is_not_owner", registeredIdentity(2, sec.RoleAssistant), 7, apperr.CodeForbidden},
		{"stranger_forbidden", registeredIdentity(8, sec.RoleBeneficiary), 7, apperr.CodeForbidden},
		{"anonymous_unauthenticated", anonymousIdentity("anon_x"), 7, apperr.CodeUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.AuthorizeOwnership(tt.identity, tt.ownerID)
			if tt.expectedCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperr.IsCode(err, tt.expectedCode))
		})
	}
}

/*
TestAuthorizeSessionOwnership checks session-owned resources: the owning
session and admins pass, everyone else is refused.
*/
func TestAuthorizeSessionOwnership(t *testing.T) {
	tests := []struct {
		name     string
		identity auth.Identity
		owner    string
		allowed  bool
	}{
		{"owning_session", anonymousIdentity("anon_a"), "anon_a", true},
		{"other_session", anonymousIdentity("anon_b"), "anon_a", false},
		{"admin_override", registeredIdentity(1, sec.RoleAdmin), "anon_a", true},
		{"registered_non_admin", registeredIdentity(2, sec.RoleBeneficiary), "anon_a", false},
		{"empty_identity", auth.Identity{}, "anon_a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.AuthorizeSessionOwnership(tt.identity, tt.owner)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
