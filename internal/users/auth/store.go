// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/taibuivan/edura/internal/platform/sec"
)

// # User Data Access

// ListFilter narrows [UserRepository.List].
type ListFilter struct {
	// Role restricts results to one role when non-nil.
	Role   *sec.Role
	Limit  int
	Offset int
}

// ProfileUpdate carries the mutable identity fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name  *string
	Email *string

	// VerificationCodeHash replaces the outstanding code and resets IsVerified
	// when Email changes. Ignored otherwise.
	VerificationCodeHash *string
}

// UserRepository defines the data access contract for identities.
//
// Emails passed in must already be normalized with [NormalizeEmail].
type UserRepository interface {

	/*
		Create persists a brand-new identity.

		Returns:
		  - error: ErrDuplicateEmail when the address is taken, nothing is written in that case
	*/
	Create(context context.Context, user *User) error

	/*
		FindByID returns the identity with the given ID.

		Returns:
		  - *User: Hydrated entity
		  - error: ErrUserNotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the identity registered under email.

		Returns:
		  - *User: Hydrated entity
		  - error: ErrUserNotFound or storage failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		List returns one page of identities, newest first, and the total count
		matching the filter.
	*/
	List(context context.Context, filter ListFilter) ([]*User, int, error)

	/*
		UpdateProfile applies the non-nil fields of update.

		Returns:
		  - *User: The identity after the update
		  - error: ErrUserNotFound, ErrDuplicateEmail or storage failures
	*/
	UpdateProfile(context context.Context, id string, update ProfileUpdate) (*User, error)

	// UpdatePassword replaces only the password hash.
	UpdatePassword(context context.Context, id, passwordHash string) error

	// UpdateRole replaces only the role.
	UpdateRole(context context.Context, id string, role sec.Role) (*User, error)

	// SetVerificationCode stores a fresh code hash for an identity that is still unverified.
	SetVerificationCode(context context.Context, id, codeHash string) error

	/*
		ConsumeVerificationCode atomically marks the identity owning codeHash as
		verified and clears the code. At most one caller ever succeeds per code.

		Returns:
		  - *User: The newly verified identity
		  - error: ErrInvalidOrExpiredCode when no identity holds the code
	*/
	ConsumeVerificationCode(context context.Context, codeHash string) (*User, error)

	// Delete removes the identity and every session it owns.
	Delete(context context.Context, id string) error
}

// # Session Data Access

// SessionRepository defines the data access contract for bearer sessions.
type SessionRepository interface {

	// Create persists a new session.
	Create(context context.Context, session *Session) error

	/*
		FindActive returns the session if it exists, is not revoked and has not expired.

		Returns:
		  - *Session: Hydrated entity
		  - error: ErrSessionNotFound or storage failures
	*/
	FindActive(context context.Context, id string) (*Session, error)

	// ListActive returns the non-revoked, unexpired sessions of userID, newest first.
	ListActive(context context.Context, userID string) ([]*Session, error)

	// Revoke marks one session as revoked. Revoking twice is not an error.
	Revoke(context context.Context, id string) error

	/*
		RevokeOwned revokes session id only if it is active and belongs to userID.

		Returns:
		  - error: ErrSessionNotFound when the session is missing, inactive or owned by someone else
	*/
	RevokeOwned(context context.Context, userID, id string) error

	// RevokeAll revokes every active session of userID.
	RevokeAll(context context.Context, userID string) error

	// RevokeOthers revokes every active session of userID except keepID.
	RevokeOthers(context context.Context, userID, keepID string) error

	// DeleteExpired removes expired and revoked rows and returns how many went.
	DeleteExpired(context context.Context) (int64, error)
}

// # Volatile Data Access

// ResetTokenRepository stores password reset tokens with a TTL.
//
// Tokens are passed in already hashed with [sec.HashToken].
type ResetTokenRepository interface {

	// Set associates tokenHash with userID until ttl elapses.
	Set(context context.Context, tokenHash, userID string, ttl time.Duration) error

	/*
		Consume returns the owner of tokenHash and deletes it in one step.

		Returns:
		  - string: UserID
		  - error: ErrInvalidOrExpiredCode when absent or expired
	*/
	Consume(context context.Context, tokenHash string) (string, error)
}
