// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account lets an authenticated identity manage itself.

It covers reading the private profile, partial updates of name, email and
password, hard deletion of the account, and the list of signed-in devices.

# Architecture

  - Entities: reuses [auth.User]; [SessionInfo] is the device view of [auth.Session].
  - Storage: goes through [auth.UserRepository], deletion cascades to sessions.
  - Security: every route runs behind the access gate with an account.* operation.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/edura/internal/users/auth"
)

// # Entities

// SessionInfo is one signed-in device as shown to its owner.
type SessionInfo struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// IsCurrent marks the session that made the request.
	IsCurrent bool `json:"is_current"`
}

// # Contracts

// PasswordChanger rotates credentials and signs out the other sessions.
//
// Implemented by [auth.Service].
type PasswordChanger interface {
	ChangePassword(context context.Context, userID, keepSessionID, currentPassword, newPassword string) error
}

// SessionManager lists and signs out the devices of one identity.
//
// Implemented by [auth.Service].
type SessionManager interface {
	ListSessions(context context.Context, userID string) ([]*auth.Session, error)
	RevokeSession(context context.Context, userID, sessionID string) error
	RevokeOtherSessions(context context.Context, userID, keepSessionID string) error
}

// VerificationSender mails a verification code for a changed address.
//
// Implemented by [auth.Notifier].
type VerificationSender interface {
	SendVerification(ctx context.Context, user *auth.User, code string) error
}
