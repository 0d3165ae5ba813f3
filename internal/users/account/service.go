// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/edura/internal/platform/ctxutil"
	"github.com/taibuivan/edura/internal/platform/sec"
	"github.com/taibuivan/edura/internal/platform/validate"
	"github.com/taibuivan/edura/internal/users/auth"
	"github.com/taibuivan/edura/pkg/pointer"
	"github.com/taibuivan/edura/pkg/slice"
)

// # Service Layer

// Service orchestrates self-service account changes.
type Service struct {
	userRepository  auth.UserRepository
	passwordChanger PasswordChanger
	sessions        SessionManager
	verifier        VerificationSender
}

// NewService constructs a new [Service] with its dependencies.
func NewService(
	userRepo auth.UserRepository,
	passwordChanger PasswordChanger,
	sessions SessionManager,
	verifier VerificationSender,
) *Service {
	return &Service{
		userRepository:  userRepo,
		passwordChanger: passwordChanger,
		sessions:        sessions,
		verifier:        verifier,
	}
}

// # Profile Management

/*
GetProfile retrieves the full private identity of a user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *auth.User: The hydrated identity
  - error: auth.ErrUserNotFound or storage failures
*/
func (service *Service) GetProfile(context context.Context, userID string) (*auth.User, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	return user, nil
}

// UpdateProfileInput is a partial update. Nil fields are left unchanged.
type UpdateProfileInput struct {
	Name            *string
	Email           *string
	CurrentPassword *string
	NewPassword     *string
}

/*
UpdateProfile applies a partial set of changes to the caller's identity.

Description: Every field is validated before anything is written. A password
change requires the current password and keeps only the calling session. An
email change resets verification and mails a fresh code to the new address.

Parameters:
  - context: context.Context
  - principal: *sec.Principal (The caller)
  - input: UpdateProfileInput

Returns:
  - *auth.User: The identity after the update
  - error: Validation error, auth.ErrDuplicateEmail, auth.ErrWrongCurrentPassword or storage failures
*/
func (service *Service) UpdateProfile(context context.Context, principal *sec.Principal, input UpdateProfileInput) (*auth.User, error) {
	var update auth.ProfileUpdate

	validator := &validate.Validator{}
	if input.Name != nil {
		name := auth.NormalizeName(*input.Name)
		auth.ValidateName(validator, auth.FieldName, name)
		update.Name = &name
	}
	if input.Email != nil {
		email := auth.NormalizeEmail(*input.Email)
		auth.ValidateEmail(validator, auth.FieldEmail, email)
		update.Email = &email
	}

	changePassword := input.NewPassword != nil
	if changePassword {
		auth.ValidatePasswordChange(validator, pointer.Fallback(input.CurrentPassword, ""), *input.NewPassword)
	}

	if validator.HasErrors() {
		return nil, validator.Err()
	}

	user, err := service.userRepository.FindByID(context, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("account_service_update_lookup_failed: %w", err)
	}

	// Check the password up front so a wrong one leaves the profile untouched.
	if changePassword && !auth.VerifyPassword(user, *input.CurrentPassword) {
		return nil, auth.ErrWrongCurrentPassword
	}

	var code string
	if update.Email != nil {
		if *update.Email == user.Email {
			update.Email = nil
		} else {
			var codeHash string
			code, codeHash, err = auth.NewVerificationCode()
			if err != nil {
				return nil, err
			}
			update.VerificationCodeHash = &codeHash
		}
	}

	if update.Name != nil || update.Email != nil {
		user, err = service.userRepository.UpdateProfile(context, principal.UserID, update)
		if err != nil {
			return nil, fmt.Errorf("account_service_update_failed: %w", err)
		}
	}

	if changePassword {
		err := service.passwordChanger.ChangePassword(context,
			principal.UserID, principal.SessionID, *input.CurrentPassword, *input.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("account_service_change_password_failed: %w", err)
		}
	}

	logger := ctxutil.GetLogger(context)
	logger.InfoContext(context, "user_profile_updated",
		slog.String("user_id", principal.UserID),
		slog.Bool("email_changed", code != ""),
		slog.Bool("password_changed", changePassword),
	)

	if code != "" {
		if err := service.verifier.SendVerification(context, user, code); err != nil {
			logger.WarnContext(context, "verification_mail_failed",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		}
	}

	return user, nil
}

/*
DeleteAccount hard-deletes the identity and every session it owns.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: auth.ErrUserNotFound or storage failures
*/
func (service *Service) DeleteAccount(context context.Context, userID string) error {
	if err := service.userRepository.Delete(context, userID); err != nil {
		return fmt.Errorf("account_service_delete_failed: %w", err)
	}

	ctxutil.GetLogger(context).WarnContext(context, "user_account_deleted", slog.String("user_id", userID))
	return nil
}

// # Session Security

/*
ListSessions returns the caller's signed-in devices, newest first.

Parameters:
  - context: context.Context
  - principal: *sec.Principal (Its SessionID is flagged as current)

Returns:
  - []SessionInfo: Active devices
  - error: Storage failures
*/
func (service *Service) ListSessions(context context.Context, principal *sec.Principal) ([]SessionInfo, error) {
	sessions, err := service.sessions.ListSessions(context, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("account_service_list_sessions_failed: %w", err)
	}

	return slice.Map(sessions, func(session *auth.Session) SessionInfo {
		return SessionInfo{
			ID:        session.ID,
			UserAgent: session.UserAgent,
			IPAddress: session.IPAddress,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
			IsCurrent: session.ID == principal.SessionID,
		}
	}), nil
}

// RevokeSession signs out one of the caller's devices. The current one is allowed too.
func (service *Service) RevokeSession(context context.Context, principal *sec.Principal, sessionID string) error {
	if err := service.sessions.RevokeSession(context, principal.UserID, sessionID); err != nil {
		return fmt.Errorf("account_service_revoke_session_failed: %w", err)
	}
	return nil
}

// RevokeOtherSessions signs out every device except the one making the request.
func (service *Service) RevokeOtherSessions(context context.Context, principal *sec.Principal) error {
	if err := service.sessions.RevokeOtherSessions(context, principal.UserID, principal.SessionID); err != nil {
		return fmt.Errorf("account_service_revoke_others_failed: %w", err)
	}
	return nil
}
