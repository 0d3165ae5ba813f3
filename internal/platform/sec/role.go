// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "strings"

// # User Roles

// Role represents the authorization level granted to an account.
//
// The set is closed. Raw values coming from storage or configuration are
// resolved once at the boundary through [ParseRole] or [LookupRole].
type Role string

const (
	// Platform administration, user management
	RoleAdmin Role = "admin"

	// Authors and teaches courses
	RoleInstructor Role = "instructor"

	// Enrolls in and follows courses
	RoleStudent Role = "student"

	// Lowest privilege. Default for new and unrecognised accounts.
	RoleGuest Role = "guest"
)

// allRoles lists every valid role, highest privilege first.
var allRoles = []Role{RoleAdmin, RoleInstructor, RoleStudent, RoleGuest}

// AllRoles returns every valid role, highest privilege first.
func AllRoles() []Role {
	roles := make([]Role, len(allRoles))
	copy(roles, allRoles)
	return roles
}

// LookupRole resolves a raw role name. The second result is false when the
// name is not one of the enumerated roles.
func LookupRole(raw string) (Role, bool) {
	candidate := Role(strings.ToLower(strings.TrimSpace(raw)))
	for _, role := range allRoles {
		if role == candidate {
			return role, true
		}
	}
	return "", false
}

// ParseRole resolves a raw role name, falling back to [RoleGuest] for
// unknown or empty values.
func ParseRole(raw string) Role {
	if role, ok := LookupRole(raw); ok {
		return role
	}
	return RoleGuest
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	for _, role := range allRoles {
		if r == role {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}
