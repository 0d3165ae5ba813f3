// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package admin implements the privileged user-management surface.

It serves two audiences behind the access gate:

  - Administrators: list identities, change roles, delete identities and purge
    dead sessions.
  - Instructors: read the student roster.

An administrator cannot change their own role or delete themselves here, so
the platform never loses its last admin through a slip.
*/
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/taibuivan/edura/internal/platform/apperr"
	"github.com/taibuivan/edura/internal/platform/ctxutil"
	"github.com/taibuivan/edura/internal/platform/sec"
	"github.com/taibuivan/edura/internal/platform/validate"
	"github.com/taibuivan/edura/internal/users/auth"
	"github.com/taibuivan/edura/pkg/pagination"
	"github.com/taibuivan/edura/pkg/slice"
)

// # Errors

var (
	// ErrSelfRoleChange blocks an administrator from demoting themselves.
	ErrSelfRoleChange = apperr.New("SELF_MODIFICATION", http.StatusUnprocessableEntity, "You cannot change your own role")

	// ErrSelfDelete blocks an administrator from deleting themselves.
	ErrSelfDelete = apperr.New("SELF_MODIFICATION", http.StatusUnprocessableEntity, "You cannot delete your own account here")
)

// lookupRole resolves raw case-insensitively, or returns the 422 listing the enumeration.
func lookupRole(raw string) (sec.Role, error) {
	if role, ok := sec.LookupRole(raw); ok {
		return role, nil
	}

	names := slice.Map(sec.AllRoles(), sec.Role.String)
	validator := &validate.Validator{}
	return "", validator.OneOf(auth.FieldRole, raw, names...).Err()
}

// # Contracts

// SessionPurger removes expired and revoked sessions. Implemented by [auth.Service].
type SessionPurger interface {
	PurgeExpiredSessions(context context.Context) (int64, error)
}

// # Service Layer

// Service orchestrates administrative operations on identities.
type Service struct {
	userRepository auth.UserRepository
	sessionPurger  SessionPurger
}

// NewService constructs a new admin [Service].
func NewService(userRepo auth.UserRepository, purger SessionPurger) *Service {
	return &Service{userRepository: userRepo, sessionPurger: purger}
}

// ParseRoleFilter resolves an optional ?role= value. Empty means no filter.
func ParseRoleFilter(raw string) (*sec.Role, error) {
	if raw == "" {
		return nil, nil
	}
	role, err := lookupRole(raw)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

/*
ListUsers returns one page of identities, newest first.

Parameters:
  - context: context.Context
  - role: *sec.Role (Optional filter)
  - params: pagination.Params

Returns:
  - []*auth.User: The page
  - int: Total matching identities
  - error: Storage failures
*/
func (service *Service) ListUsers(context context.Context, role *sec.Role, params pagination.Params) ([]*auth.User, int, error) {
	limit, offset := params.Window()

	users, total, err := service.userRepository.List(context, auth.ListFilter{Role: role, Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, fmt.Errorf("admin_service_list_users_failed: %w", err)
	}
	return users, total, nil
}

// ListStudents returns one page of identities holding the student role.
func (service *Service) ListStudents(context context.Context, params pagination.Params) ([]*auth.User, int, error) {
	student := sec.RoleStudent
	return service.ListUsers(context, &student, params)
}

/*
UpdateRole assigns a new role to the identity targetID.

Parameters:
  - context: context.Context
  - actor: *sec.Principal (The administrator making the call)
  - targetID: string
  - rawRole: string (Must name one of the enumerated roles)

Returns:
  - *auth.User: The updated identity
  - error: Validation error, ErrSelfRoleChange, auth.ErrUserNotFound or storage failures
*/
func (service *Service) UpdateRole(context context.Context, actor *sec.Principal, targetID, rawRole string) (*auth.User, error) {
	role, err := lookupRole(rawRole)
	if err != nil {
		return nil, err
	}

	if actor.UserID == targetID {
		return nil, ErrSelfRoleChange
	}

	user, err := service.userRepository.UpdateRole(context, targetID, role)
	if err != nil {
		return nil, fmt.Errorf("admin_service_update_role_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "user_role_changed",
		slog.String("actor_id", actor.UserID),
		slog.String("user_id", targetID),
		slog.String("role", role.String()),
	)
	return user, nil
}

/*
DeleteUser hard-deletes the identity targetID and its sessions.

Returns:
  - error: ErrSelfDelete, auth.ErrUserNotFound or storage failures
*/
func (service *Service) DeleteUser(context context.Context, actor *sec.Principal, targetID string) error {
	if actor.UserID == targetID {
		return ErrSelfDelete
	}

	if err := service.userRepository.Delete(context, targetID); err != nil {
		return fmt.Errorf("admin_service_delete_user_failed: %w", err)
	}

	ctxutil.GetLogger(context).WarnContext(context, "user_deleted_by_admin",
		slog.String("actor_id", actor.UserID),
		slog.String("user_id", targetID),
	)
	return nil
}

// PurgeSessions deletes expired and revoked sessions and returns how many went.
func (service *Service) PurgeSessions(context context.Context) (int64, error) {
	removed, err := service.sessionPurger.PurgeExpiredSessions(context)
	if err != nil {
		return 0, fmt.Errorf("admin_service_purge_sessions_failed: %w", err)
	}
	return removed, nil
}
