// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/edura/internal/platform/ctxutil"
	"github.com/taibuivan/edura/internal/platform/sec"
	"github.com/taibuivan/edura/internal/platform/validate"
	"github.com/taibuivan/edura/pkg/uuid"
)

// # Contracts & Types

// TokenIssuer signs and verifies session bearer strings.
type TokenIssuer interface {
	GenerateSessionToken(userID, sessionID string, expiresAt time.Time) (string, error)
	VerifyToken(token string) (*sec.SessionClaims, error)
}

// Options tunes a [Service]. Zero values fall back to defaults.
type Options struct {
	// SessionTTL bounds every issued session. Defaults to [DefaultSessionTTL].
	SessionTTL time.Duration

	// BootstrapAdminEmail is promoted to admin once verified. Empty disables it.
	BootstrapAdminEmail string

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service implements the identity lifecycle use cases.
type Service struct {
	userRepository       UserRepository
	sessionRepository    SessionRepository
	resetTokenRepository ResetTokenRepository
	tokenIssuer          TokenIssuer
	notifier             *Notifier
	sessionTTL           time.Duration
	bootstrapAdminEmail  string
	now                  func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	resetRepo ResetTokenRepository,
	issuer TokenIssuer,
	notifier *Notifier,
	options Options,
) *Service {
	if options.SessionTTL <= 0 {
		options.SessionTTL = DefaultSessionTTL
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &Service{
		userRepository:       userRepo,
		sessionRepository:    sessionRepo,
		resetTokenRepository: resetRepo,
		tokenIssuer:          issuer,
		notifier:             notifier,
		sessionTTL:           options.SessionTTL,
		bootstrapAdminEmail:  NormalizeEmail(options.BootstrapAdminEmail),
		now:                  options.Now,
	}
}

// # Validation Rules

// ValidatePassword applies the password policy to field.
func ValidatePassword(validator *validate.Validator, field, password string) *validate.Validator {
	return validator.
		Required(field, password).
		MinLen(field, password, MinPasswordLength).
		MaxBytes(field, password, sec.MaxPasswordBytes)
}

// ValidatePasswordChange applies the rules for replacing current with next.
func ValidatePasswordChange(validator *validate.Validator, current, next string) *validate.Validator {
	validator.Required(FieldCurrentPassword, current)
	ValidatePassword(validator, FieldNewPassword, next)
	return validator.Custom(FieldNewPassword, current != "" && current == next, "Must differ from the current password")
}

// ValidateEmail applies the address policy to field.
func ValidateEmail(validator *validate.Validator, field, email string) *validate.Validator {
	return validator.
		Required(field, email).
		MaxLen(field, email, MaxEmailLength).
		Email(field, email)
}

// ValidateName applies the display name policy to field.
func ValidateName(validator *validate.Validator, field, name string) *validate.Validator {
	return validator.
		Required(field, name).
		MaxLen(field, name, MaxNameLength)
}

// VerifyPassword reports whether raw matches the stored hash of user.
func VerifyPassword(user *User, raw string) bool {
	return sec.CheckPasswordHash(raw, user.PasswordHash)
}

// NewVerificationCode returns a raw code for mailing and the hash to store.
func NewVerificationCode() (code, codeHash string, err error) {
	code, err = sec.GenerateSecureToken(VerificationCodeLength)
	if err != nil {
		return "", "", fmt.Errorf("auth_verification_code_failed: %w", err)
	}
	return code, sec.HashToken(code), nil
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new identity.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

/*
Register validates, hashes, and persists a brand new identity.

The identity starts unverified with role guest, and the verification code is
mailed. A mail failure is logged and does not undo the registration; the
code can be re-sent.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - error: Validation error, ErrDuplicateEmail or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {
	name := NormalizeName(input.Name)
	email := NormalizeEmail(input.Email)

	validator := &validate.Validator{}
	ValidateName(validator, FieldName, name)
	ValidateEmail(validator, FieldEmail, email)
	ValidatePassword(validator, FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	code, codeHash, err := NewVerificationCode()
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:                   uuid.New(),
		Name:                 name,
		Email:                email,
		PasswordHash:         hashedPassword,
		Role:                 sec.RoleGuest,
		IsVerified:           false,
		VerificationCodeHash: &codeHash,
	}

	// The store enforces uniqueness, so a racing duplicate never lands half-created.
	if err := service.userRepository.Create(context, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	logger := ctxutil.GetLogger(context)
	logger.InfoContext(context, "user_registered", slog.String("user_id", user.ID))

	if err := service.notifier.SendVerification(context, user, code); err != nil {
		logger.WarnContext(context, "verification_mail_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	return user, nil
}

// # Email Verification

/*
VerifyEmail consumes a verification code and marks its owner verified.

Parameters:
  - context: context.Context
  - code: string (Raw code as mailed)

Returns:
  - *User: The verified identity
  - error: ErrInvalidOrExpiredCode for empty, unknown or already used codes
*/
func (service *Service) VerifyEmail(context context.Context, code string) (*User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidOrExpiredCode
	}

	user, err := service.userRepository.ConsumeVerificationCode(context, sec.HashToken(code))
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredCode) {
			return nil, ErrInvalidOrExpiredCode
		}
		return nil, fmt.Errorf("auth_service_verify_email_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "email_verified", slog.String("user_id", user.ID))
	return service.promoteBootstrapAdmin(context, user)
}

/*
PromoteBootstrapAdmin grants admin to the configured bootstrap identity if it
already exists and is verified. Run once at startup; a later verification of
that address is promoted by [Service.VerifyEmail].

Returns:
  - error: Storage failures only. An absent or unverified identity is not an error.
*/
func (service *Service) PromoteBootstrapAdmin(context context.Context) error {
	if service.bootstrapAdminEmail == "" {
		return nil
	}

	user, err := service.userRepository.FindByEmail(context, service.bootstrapAdminEmail)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			ctxutil.GetLogger(context).InfoContext(context, "bootstrap_admin_pending", slog.String("reason", "not_registered"))
			return nil
		}
		return fmt.Errorf("auth_service_bootstrap_lookup_failed: %w", err)
	}

	if !user.IsVerified {
		ctxutil.GetLogger(context).InfoContext(context, "bootstrap_admin_pending", slog.String("reason", "not_verified"))
		return nil
	}

	_, err = service.promoteBootstrapAdmin(context, user)
	return err
}

// promoteBootstrapAdmin raises user to admin when it is the verified bootstrap identity.
func (service *Service) promoteBootstrapAdmin(context context.Context, user *User) (*User, error) {
	if service.bootstrapAdminEmail == "" || user.Email != service.bootstrapAdminEmail ||
		!user.IsVerified || user.Role == sec.RoleAdmin {
		return user, nil
	}

	promoted, err := service.userRepository.UpdateRole(context, user.ID, sec.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("auth_service_bootstrap_promote_failed: %w", err)
	}

	ctxutil.GetLogger(context).WarnContext(context, "bootstrap_admin_promoted", slog.String("user_id", promoted.ID))
	return promoted, nil
}

/*
ResendVerification issues a fresh code for an unverified identity.

Unknown and already verified addresses return nil as well, so the response
never reveals whether an account exists. The previous code stops working.
*/
func (service *Service) ResendVerification(context context.Context, email string) error {
	user, err := service.userRepository.FindByEmail(context, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("auth_service_resend_lookup_failed: %w", err)
	}

	if user.IsVerified {
		return nil
	}

	code, codeHash, err := NewVerificationCode()
	if err != nil {
		return err
	}

	if err := service.userRepository.SetVerificationCode(context, user.ID, codeHash); err != nil {
		// Verified or deleted in between, nothing left to send.
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("auth_service_resend_store_failed: %w", err)
	}

	// A mail outage must look the same as an unknown address.
	if err := service.notifier.SendVerification(context, user, code); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "verification_mail_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}
	return nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// LoginSession represents a successfully established session.
type LoginSession struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
	User      *User
}

/*
Login validates credentials and issues a session bearer token.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Bearer token and identity
  - error: ErrInvalidCredentials, ErrEmailNotVerified or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	email := NormalizeEmail(input.Email)
	logger := ctxutil.GetLogger(context)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, email).Required(FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
		}

		// Keep the unknown-email path as slow as a real comparison.
		sec.BurnPasswordCheck(input.Password)
		logger.InfoContext(context, "login_rejected", slog.String("reason", "unknown_email"))
		return nil, ErrInvalidCredentials
	}

	if !VerifyPassword(user, input.Password) {
		logger.InfoContext(context, "login_rejected",
			slog.String("reason", "wrong_password"),
			slog.String("user_id", user.ID),
		)
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		logger.InfoContext(context, "login_rejected",
			slog.String("reason", "email_not_verified"),
			slog.String("user_id", user.ID),
		)
		return nil, ErrEmailNotVerified
	}

	now := service.now()
	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		UserAgent: input.UserAgent,
		IPAddress: input.IPAddress,
		CreatedAt: now,
		ExpiresAt: now.Add(service.sessionTTL),
	}

	token, err := service.tokenIssuer.GenerateSessionToken(user.ID, session.ID, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	logger.InfoContext(context, "login_succeeded",
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID),
	)

	return &LoginSession{
		Token:     token,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	}, nil
}

/*
Resolve maps a bearer token to the identity behind it.

The token must carry a valid signature, an unexpired exp and a session id whose
row is active and owned by the token subject. The role is read from the
identity store, so role changes apply immediately.

Returns:
  - *sec.Principal: The resolved identity
  - error: ErrInvalidToken on any mismatch, wrapped storage errors otherwise
*/
func (service *Service) Resolve(context context.Context, token string) (*sec.Principal, error) {
	claims, err := service.tokenIssuer.VerifyToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	session, err := service.sessionRepository.FindActive(context, claims.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("auth_service_resolve_session_failed: %w", err)
	}

	if session.UserID != claims.Subject {
		return nil, ErrInvalidToken
	}

	user, err := service.userRepository.FindByID(context, session.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("auth_service_resolve_user_failed: %w", err)
	}

	return &sec.Principal{
		UserID:    user.ID,
		SessionID: session.ID,
		Email:     user.Email,
		Role:      user.Role,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// # Session Management

// Logout revokes one session. Other sessions of the same identity stay valid.
func (service *Service) Logout(context context.Context, sessionID string) error {
	if err := service.sessionRepository.Revoke(context, sessionID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "session_revoked", slog.String("session_id", sessionID))
	return nil
}

// LogoutAll revokes every session of userID.
func (service *Service) LogoutAll(context context.Context, userID string) error {
	if err := service.sessionRepository.RevokeAll(context, userID); err != nil {
		return fmt.Errorf("auth_service_logout_all_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "sessions_revoked", slog.String("user_id", userID))
	return nil
}

// ListSessions returns the active sessions of userID, newest first.
func (service *Service) ListSessions(context context.Context, userID string) ([]*Session, error) {
	sessions, err := service.sessionRepository.ListActive(context, userID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_list_sessions_failed: %w", err)
	}
	return sessions, nil
}

/*
RevokeSession signs out one device of userID.

Returns:
  - error: ErrSessionNotFound when sessionID is not an active session of userID
*/
func (service *Service) RevokeSession(context context.Context, userID, sessionID string) error {
	if err := service.sessionRepository.RevokeOwned(context, userID, sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("auth_service_revoke_session_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "session_revoked",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)
	return nil
}

// RevokeOtherSessions signs out every device of userID except keepSessionID.
func (service *Service) RevokeOtherSessions(context context.Context, userID, keepSessionID string) error {
	if err := service.sessionRepository.RevokeOthers(context, userID, keepSessionID); err != nil {
		return fmt.Errorf("auth_service_revoke_others_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "other_sessions_revoked", slog.String("user_id", userID))
	return nil
}

// PurgeExpiredSessions deletes expired and revoked session rows and returns the count.
func (service *Service) PurgeExpiredSessions(context context.Context) (int64, error) {
	removed, err := service.sessionRepository.DeleteExpired(context)
	if err != nil {
		return 0, fmt.Errorf("auth_service_purge_sessions_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "sessions_purged", slog.Int64("removed", removed))
	return removed, nil
}

// # Password Recovery

/*
RequestPasswordReset initiates the forgot-password flow.

A random token is stored hashed with a one hour TTL and mailed. Unknown
addresses and mail failures both return nil, so the endpoint cannot be used
to discover accounts.
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) error {
	user, err := service.userRepository.FindByEmail(context, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("auth_service_reset_lookup_failed: %w", err)
	}

	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return fmt.Errorf("auth_service_generate_reset_token_failed: %w", err)
	}

	if err := service.resetTokenRepository.Set(context, sec.HashToken(token), user.ID, ResetTokenTTL); err != nil {
		return fmt.Errorf("auth_service_save_reset_token_failed: %w", err)
	}

	if err := service.notifier.SendPasswordReset(context, user, token); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "reset_mail_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}
	return nil
}

/*
ResetPassword completes the forgot-password flow.

The token is consumed before anything else, so it is single-use even when
the request later fails. Every session of the identity is revoked.

Returns:
  - error: Validation error, ErrInvalidOrExpiredCode or storage errors
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {
	validator := &validate.Validator{}
	validator.Required(FieldToken, token)
	ValidatePassword(validator, FieldPassword, newPassword)
	if err := validator.Err(); err != nil {
		return err
	}

	userID, err := service.resetTokenRepository.Consume(context, sec.HashToken(strings.TrimSpace(token)))
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredCode) {
			return ErrInvalidOrExpiredCode
		}
		return fmt.Errorf("auth_service_reset_token_consume_failed: %w", err)
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_password_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		// The identity was deleted after the token was issued.
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidOrExpiredCode
		}
		return fmt.Errorf("auth_service_reset_password_update_failed: %w", err)
	}

	return service.LogoutAll(context, userID)
}

/*
ChangePassword updates the credentials of an authenticated identity.

The current password must match. Every session except keepSessionID is
revoked, so the caller stays logged in on this device only.

Returns:
  - error: Validation error, ErrWrongCurrentPassword or storage errors
*/
func (service *Service) ChangePassword(context context.Context, userID, keepSessionID, currentPassword, newPassword string) error {
	validator := &validate.Validator{}
	ValidatePasswordChange(validator, currentPassword, newPassword)
	if err := validator.Err(); err != nil {
		return err
	}

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_lookup_failed: %w", err)
	}

	if !VerifyPassword(user, currentPassword) {
		return ErrWrongCurrentPassword
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_change_password_update_failed: %w", err)
	}

	if err := service.sessionRepository.RevokeOthers(context, userID, keepSessionID); err != nil {
		return fmt.Errorf("auth_service_change_password_revoke_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "password_changed", slog.String("user_id", userID))
	return nil
}
