// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// DefaultSessionTTL is how long a session and its bearer token stay valid.
	DefaultSessionTTL = 24 * time.Hour

	// ResetTokenTTL is the duration a password reset token remains valid.
	ResetTokenTTL = 1 * time.Hour

	// ResetTokenLength is the byte length of the random password reset token.
	ResetTokenLength = 32

	// VerificationCodeLength is the byte length of the random email verification code.
	VerificationCodeLength = 32

	// MinPasswordLength is counted in runes.
	MinPasswordLength = 8

	// MaxNameLength is counted in runes.
	MaxNameLength = 100

	// MaxEmailLength follows the RFC 5321 path limit.
	MaxEmailLength = 254
)
