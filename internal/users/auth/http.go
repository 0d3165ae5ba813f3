// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/edura/internal/platform/access"
	"github.com/taibuivan/edura/internal/platform/constants"
	requestutil "github.com/taibuivan/edura/internal/platform/request"
	"github.com/taibuivan/edura/internal/platform/respond"
)

// # Definitions & Constructors

// Handler implements the /api/v1/auth endpoints.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

/*
Routes returns a [chi.Router] with the authentication routes.

Public:
  - POST /register, /login, /verify-email, /verify-email/resend,
    /forgot-password, /reset-password

Protected (through gate):
  - POST /logout, /change-password
*/
func (handler *Handler) Routes(gate *access.Gate) chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/verify-email", handler.verifyEmail)
	router.Post("/verify-email/resend", handler.resendVerification)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)

	router.With(gate.Middleware(access.OpAuthLogout)).Post("/logout", handler.logout)
	router.With(gate.Middleware(access.OpAuthChangePassword)).Post("/change-password", handler.changePassword)

	return router
}

// # Request Payloads

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	Code string `json:"code"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// # Response Payloads

type registerResponse struct {
	User                 *User   `json:"user"`
	Token                *string `json:"token"`
	VerificationRequired bool    `json:"verification_required"`
}

type loginResponse struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

type userResponse struct {
	User *User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Generic replies for endpoints that must not reveal whether an address is registered.
const (
	msgVerificationSent = "If the address belongs to an unverified account, a new code has been sent"
	msgResetSent        = "If the address belongs to an account, a reset link has been sent"
)

/*
Register handles the creation of a new identity.

POST /api/v1/auth/register

Response:
  - 201: registerResponse, token is always null until the email is verified
  - 422: VALIDATION_ERROR or DUPLICATE_EMAIL
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), RegisterInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, registerResponse{User: user, Token: nil, VerificationRequired: true})
}

/*
Login authenticates an identity and opens a session.

POST /api/v1/auth/login

Response:
  - 200: loginResponse
  - 401: INVALID_CREDENTIALS
  - 403: EMAIL_NOT_VERIFIED
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Email:     input.Email,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
		IPAddress: requestutil.ClientIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, loginResponse{
		User:      session.User,
		Token:     session.Token,
		TokenType: constants.BearerScheme,
		ExpiresAt: session.ExpiresAt,
	})
}

/*
Logout revokes the session behind the presented bearer token.

POST /api/v1/auth/logout

Response:
  - 200: messageResponse
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), principal.SessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: "Logged out"})
}

/*
VerifyEmail consumes a verification code.

POST /api/v1/auth/verify-email

Response:
  - 200: userResponse
  - 422: INVALID_OR_EXPIRED_TOKEN
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	var input verifyEmailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.VerifyEmail(request.Context(), input.Code)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, userResponse{User: user})
}

/*
ResendVerification mails a fresh code.

POST /api/v1/auth/verify-email/resend

Response:
  - 200: messageResponse, identical for unknown addresses
*/
func (handler *Handler) resendVerification(writer http.ResponseWriter, request *http.Request) {
	var input emailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResendVerification(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: msgVerificationSent})
}

/*
ForgotPassword starts password recovery.

POST /api/v1/auth/forgot-password

Response:
  - 200: messageResponse, identical for unknown addresses
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input emailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: msgResetSent})
}

/*
ResetPassword completes password recovery.

POST /api/v1/auth/reset-password

Response:
  - 200: messageResponse
  - 422: VALIDATION_ERROR or INVALID_OR_EXPIRED_TOKEN
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: "Password has been reset. Please log in again"})
}

/*
ChangePassword rotates the caller's password.

POST /api/v1/auth/change-password

Response:
  - 200: messageResponse
  - 422: WRONG_CURRENT_PASSWORD
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.authService.ChangePassword(request.Context(),
		principal.UserID, principal.SessionID, input.CurrentPassword, input.NewPassword)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: "Password changed. Other sessions have been signed out"})
}
