// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package auth

import (
	"github.com/amparo-social/amparo-api/internal/platform/apperr"
	"github.com/amparo-social/amparo-api/internal/platform/sec"
)

// # Authorization Gate

// Authorize checks that the identity is a registered user whose role meets
// or exceeds the required role.
//
// Role checks are pure functions of the identity snapshot; they never touch
// storage, so an authorization decision cannot fail with an availability
// error.
func Authorize(identity Identity, required sec.Role) error {
	if identity.User == nil {
		return apperr.Unauthenticated("Authentication required")
	}
	if !identity.User.Role.AtLeast(required) {
		return apperr.Forbidden("Insufficient permissions")
	}
	return nil
}

// AuthorizeOwnership checks that the identity owns the resource keyed by
// the given user id, or holds the admin role.
func AuthorizeOwnership(identity Identity, ownerUserID int64) error {
	if identity.User == nil {
		return apperr.Unauthenticated("Authentication required")
	}
	if identity.User.ID == ownerUserID {
		return nil
	}
	if identity.User.Role == sec.RoleAdmin {
		return nil
	}
	return apperr.Forbidden("You do not own this resource")
}

// AuthorizeSessionOwnership checks that the identity is the anonymous
// session that owns the resource. Registered admins also pass, so support
// staff can inspect anonymous conversations.
func AuthorizeSessionOwnership(identity Identity, ownerSessionID string) error {
	if identity.Session != nil && identity.Session.ID == ownerSessionID {
		return nil
	}
	if identity.User != nil && identity.User.Role == sec.RoleAdmin {
		return nil
	}
	return apperr.Forbidden("You do not own this resource")
}
