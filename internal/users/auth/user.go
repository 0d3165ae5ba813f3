// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the identity and session core of Edura.

It owns the lifecycle registration → unverified → verified → authenticated
session, and resolves bearer tokens into the identity used for role checks.

Components:

  - Credential Store: [UserRepository] (Postgres or memory).
  - Email-Verification Gate: [Service.VerifyEmail] over an atomic single-use code.
  - Token Issuer/Verifier: [Service.Login] and [Service.Resolve], backed by
    [SessionRepository] rows and RS256 bearer strings.
  - Password Recovery: [ResetTokenRepository] (Redis or memory).
*/
package auth

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/edura/internal/platform/sec"
)

// # Domain Entities

// User is a registered identity.
type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Role         sec.Role `json:"role"`
	IsVerified   bool     `json:"is_verified"`

	// VerificationCodeHash is the SHA-256 of the outstanding email code, nil once consumed.
	VerificationCodeHash *string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is one issued bearer token. The token itself is never stored.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	UserAgent string     `json:"user_agent"`
	IPAddress string     `json:"ip_address"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the session may still authenticate requests at now.
func (session *Session) Active(now time.Time) bool {
	return session.RevokedAt == nil && now.Before(session.ExpiresAt)
}

// # Normalization

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
// A Caser is stateful, so one is built per call.
func NormalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// NormalizeName trims a display name and folds it to Unicode NFC.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// # Field Identifiers

// Field names used in validation errors and JSON payloads.
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldCode            = "code"
	FieldToken           = "token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldRole            = "role"
)
