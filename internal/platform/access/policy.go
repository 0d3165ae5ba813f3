// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package access maps protected operations to the roles allowed to invoke them.

The [Policy] is a closed, static table. It is built once at startup, either from
the compiled-in defaults or from a YAML file, validated, and then only read.

Layout:

  - policy.go: Operation identifiers, the Policy table and its loaders.
  - gate.go: The Authorize middleware and the Gate that composes it with authentication.
*/
package access

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/taibuivan/edura/internal/platform/sec"
)

// Operation identifies one protected action, e.g. "admin.users.list".
type Operation string

// # Operations

const (
	OpAuthLogout         Operation = "auth.logout"
	OpAuthChangePassword Operation = "auth.change_password"

	OpAccountRead   Operation = "account.read"
	OpAccountUpdate Operation = "account.update"
	OpAccountDelete Operation = "account.delete"

	OpAccountSessionsList   Operation = "account.sessions.list"
	OpAccountSessionsRevoke Operation = "account.sessions.revoke"

	OpAdminUsersList       Operation = "admin.users.list"
	OpAdminUsersUpdateRole Operation = "admin.users.update_role"
	OpAdminUsersDelete     Operation = "admin.users.delete"
	OpAdminSessionsPurge   Operation = "admin.sessions.purge"

	OpInstructorStudentsList Operation = "instructor.students.list"
)

// Operations lists every operation mounted by the API server.
func Operations() []Operation {
	return []Operation{
		OpAuthLogout, OpAuthChangePassword,
		OpAccountRead, OpAccountUpdate, OpAccountDelete,
		OpAccountSessionsList, OpAccountSessionsRevoke,
		OpAdminUsersList, OpAdminUsersUpdateRole, OpAdminUsersDelete, OpAdminSessionsPurge,
		OpInstructorStudentsList,
	}
}

// # Errors

var (
	// ErrEmptyRoleSet is returned when an operation allows no role at all.
	ErrEmptyRoleSet = errors.New("access_policy_empty_role_set")

	// ErrUnknownRole is returned when a policy names a role outside the closed set.
	ErrUnknownRole = errors.New("access_policy_unknown_role")

	// ErrMissingOperation is returned when a mounted operation has no entry.
	ErrMissingOperation = errors.New("access_policy_missing_operation")
)

// # Policy

// Policy is the immutable operation → allowed roles table.
type Policy struct {
	rules map[Operation]map[sec.Role]struct{}
}

/*
NewPolicy builds a validated policy from a rule table.

Parameters:
  - rules: Operation to allowed roles

Returns:
  - *Policy: The validated table
  - error: ErrEmptyRoleSet or ErrUnknownRole
*/
func NewPolicy(rules map[Operation][]sec.Role) (*Policy, error) {
	policy := &Policy{rules: make(map[Operation]map[sec.Role]struct{}, len(rules))}

	for op, roles := range rules {
		if len(roles) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyRoleSet, op)
		}

		set := make(map[sec.Role]struct{}, len(roles))
		for _, role := range roles {
			if !role.Valid() {
				return nil, fmt.Errorf("%w: %q in %s", ErrUnknownRole, role, op)
			}
			set[role] = struct{}{}
		}
		policy.rules[op] = set
	}

	return policy, nil
}

// DefaultPolicy returns the compiled-in table.
func DefaultPolicy() *Policy {
	everyone := sec.AllRoles()

	policy, err := NewPolicy(map[Operation][]sec.Role{
		OpAuthLogout:         everyone,
		OpAuthChangePassword: everyone,

		OpAccountRead:   everyone,
		OpAccountUpdate: everyone,
		OpAccountDelete: everyone,

		OpAccountSessionsList:   everyone,
		OpAccountSessionsRevoke: everyone,

		OpAdminUsersList:       {sec.RoleAdmin},
		OpAdminUsersUpdateRole: {sec.RoleAdmin},
		OpAdminUsersDelete:     {sec.RoleAdmin},
		OpAdminSessionsPurge:   {sec.RoleAdmin},

		OpInstructorStudentsList: {sec.RoleAdmin, sec.RoleInstructor},
	})
	if err != nil {
		panic("access: invalid default policy: " + err.Error())
	}
	return policy
}

// policyFile is the YAML layout read by [LoadPolicy].
//
//	operations:
//	  admin.users.list: [admin]
type policyFile struct {
	Operations map[string][]string `yaml:"operations"`
}

/*
LoadPolicy reads a policy from a YAML file.

Role names are matched case-insensitively but must belong to the closed set.
Unlike [sec.ParseRole], an unknown name is an error, not a silent guest.
*/
func LoadPolicy(path string) (*Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("access_policy_read_failed: %w", err)
	}

	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("access_policy_decode_failed: %w", err)
	}

	rules := make(map[Operation][]sec.Role, len(file.Operations))
	for op, names := range file.Operations {
		roles := make([]sec.Role, 0, len(names))
		for _, name := range names {
			role, ok := sec.LookupRole(name)
			if !ok {
				return nil, fmt.Errorf("%w: %q in %s", ErrUnknownRole, name, op)
			}
			roles = append(roles, role)
		}
		rules[Operation(op)] = roles
	}

	return NewPolicy(rules)
}

// Allows reports whether role may invoke op. Unknown operations allow nobody.
func (policy *Policy) Allows(op Operation, role sec.Role) bool {
	set, ok := policy.rules[op]
	if !ok {
		return false
	}
	_, ok = set[role]
	return ok
}

// Has reports whether op has an entry.
func (policy *Policy) Has(op Operation) bool {
	_, ok := policy.rules[op]
	return ok
}

// AllowedRoles returns the roles for op in a stable order.
func (policy *Policy) AllowedRoles(op Operation) []sec.Role {
	roles := make([]sec.Role, 0, len(policy.rules[op]))
	for role := range policy.rules[op] {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Validate fails when any of ops has no entry in the table.
func (policy *Policy) Validate(ops ...Operation) error {
	var missing []error
	for _, op := range ops {
		if !policy.Has(op) {
			missing = append(missing, fmt.Errorf("%w: %s", ErrMissingOperation, op))
		}
	}
	return errors.Join(missing...)
}
