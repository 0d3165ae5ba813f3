// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/taibuivan/edura/internal/platform/apperr"
)

// # Domain Errors

// These sentinels are returned as-is by [Service] and compared with errors.Is.
var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = apperr.New("INVALID_CREDENTIALS", http.StatusUnauthorized, "Invalid email or password")

	// ErrWrongCurrentPassword is returned when an authenticated caller fails the
	// current password check. The bearer itself stays valid, so it is not a 401.
	ErrWrongCurrentPassword = apperr.New("WRONG_CURRENT_PASSWORD", http.StatusUnprocessableEntity, "Current password is incorrect")

	// ErrEmailNotVerified is returned by login for a correct password on an unverified identity.
	ErrEmailNotVerified = apperr.New("EMAIL_NOT_VERIFIED", http.StatusForbidden, "Email address is not verified")

	// ErrDuplicateEmail is returned when another identity already uses the address.
	ErrDuplicateEmail = apperr.New("DUPLICATE_EMAIL", http.StatusUnprocessableEntity, "Email is already registered")

	// ErrInvalidOrExpiredCode is returned for unknown, consumed or expired verification and reset codes.
	ErrInvalidOrExpiredCode = apperr.New("INVALID_OR_EXPIRED_TOKEN", http.StatusUnprocessableEntity, "Code is invalid or has expired")

	// ErrInvalidToken is returned by [Service.Resolve] for any bearer that does not map to an active session.
	ErrInvalidToken = apperr.Unauthenticated("Invalid or expired token")

	// ErrUserNotFound is returned by repositories for a missing identity.
	ErrUserNotFound = apperr.NotFound("User")

	// ErrSessionNotFound is returned by repositories for a missing, revoked or expired session.
	ErrSessionNotFound = apperr.NotFound("Session")
)
