// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package sec

// # User Roles

// Role represents the authorization level granted to a registered account.
type Role string

const (
	// Unrestricted platform access
	RoleAdmin Role = "admin"

	// Social assistant: supports beneficiaries assigned to them
	RoleAssistant Role = "assistant"

	// Default role for people seeking support
	RoleBeneficiary Role = "beneficiary"
)

// IsValid reports whether the value is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAssistant, RoleBeneficiary:
		return true
	}
	return false
}

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r Role) AtLeast(target Role) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r Role) level() int {

	// Linear scale (10-30) allows for future intermediate roles
	switch r {
	case RoleAdmin:
		return 30
	case RoleAssistant:
		return 20
	case RoleBeneficiary:
		return 10
	default:
		return 0
	}
}
