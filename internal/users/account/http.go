// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/edura/internal/platform/access"
	requestutil "github.com/taibuivan/edura/internal/platform/request"
	"github.com/taibuivan/edura/internal/platform/respond"
)

// Handler implements the HTTP layer for self-service account management.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] with the /api/v1/user endpoints, each behind the gate.
func (handler *Handler) Routes(gate *access.Gate) chi.Router {
	router := chi.NewRouter()

	router.With(gate.Middleware(access.OpAccountRead)).Get("/", handler.getMe)
	router.With(gate.Middleware(access.OpAccountUpdate)).Patch("/", handler.updateMe)
	router.With(gate.Middleware(access.OpAccountDelete)).Delete("/", handler.deleteMe)

	// Session Security
	router.Method(http.MethodGet, "/sessions", gate.Protect(access.OpAccountSessionsList, handler.listSessions))
	router.Method(http.MethodDelete, "/sessions", gate.Protect(access.OpAccountSessionsRevoke, handler.revokeOtherSessions))
	router.Method(http.MethodDelete, "/sessions/{id}", gate.Protect(access.OpAccountSessionsRevoke, handler.revokeSession))

	return router
}

/*
GET /api/v1/user.

Description: Retrieves the full private profile of the authenticated identity.

Response:
  - 200: auth.User (no password, hash or code fields)
  - 401: UNAUTHENTICATED
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetProfile(request.Context(), principal.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// updateMeRequest defines the expected JSON payload for profile updates.
type updateMeRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	CurrentPassword *string `json:"current_password"`
	NewPassword     *string `json:"new_password"`
}

/*
PATCH /api/v1/user.

Description: Applies partial updates to the authenticated identity.

Request:
  - body: updateMeRequest (Partial JSON)

Response:
  - 200: auth.User
  - 401: UNAUTHENTICATED
  - 422: VALIDATION_ERROR, DUPLICATE_EMAIL or WRONG_CURRENT_PASSWORD
*/
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateMeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.UpdateProfile(request.Context(), principal, UpdateProfileInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
DELETE /api/v1/user.

Description: Hard-deletes the authenticated identity. Its sessions go with it.

Response:
  - 204: No Content
  - 401: UNAUTHENTICATED
*/
func (handler *Handler) deleteMe(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.DeleteAccount(request.Context(), principal.UserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Session Security Endpoints

/*
GET /api/v1/user/sessions.

Description: Lists the devices currently signed in to the caller's account.

Response:
  - 200: []SessionInfo (the requesting device has is_current set)
  - 401: UNAUTHENTICATED
*/
func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.accountService.ListSessions(request.Context(), principal)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessions)
}

/*
DELETE /api/v1/user/sessions/{id}.

Description: Signs out one device. Only the caller's own sessions can be targeted.

Response:
  - 204: No Content
  - 401: UNAUTHENTICATED
  - 404: NOT_FOUND (unknown, inactive or foreign session)
*/
func (handler *Handler) revokeSession(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessionID := requestutil.Param(request, "id")

	if err := handler.accountService.RevokeSession(request.Context(), principal, sessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
DELETE /api/v1/user/sessions.

Description: Signs out every device except the one making the request.

Response:
  - 204: No Content
  - 401: UNAUTHENTICATED
*/
func (handler *Handler) revokeOtherSessions(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.RevokeOtherSessions(request.Context(), principal); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
