// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/edura/internal/platform/access"
	requestutil "github.com/taibuivan/edura/internal/platform/request"
	"github.com/taibuivan/edura/internal/platform/respond"
	"github.com/taibuivan/edura/pkg/pagination"
)

// Handler implements the /api/v1/admin and /api/v1/instructor endpoints.
type Handler struct {
	adminService *Service
}

// NewHandler constructs a new admin [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{adminService: service}
}

/*
Routes returns the administrator router, mounted at /api/v1/admin.

  - GET    /users
  - PATCH  /users/{id}/role
  - DELETE /users/{id}
  - POST   /sessions/purge
*/
func (handler *Handler) Routes(gate *access.Gate) chi.Router {
	router := chi.NewRouter()

	router.With(gate.Middleware(access.OpAdminUsersList)).Get("/users", handler.listUsers)
	router.With(gate.Middleware(access.OpAdminUsersUpdateRole)).Patch("/users/{id}/role", handler.updateRole)
	router.With(gate.Middleware(access.OpAdminUsersDelete)).Delete("/users/{id}", handler.deleteUser)
	router.With(gate.Middleware(access.OpAdminSessionsPurge)).Post("/sessions/purge", handler.purgeSessions)

	return router
}

// InstructorRoutes returns the instructor router, mounted at /api/v1/instructor.
func (handler *Handler) InstructorRoutes(gate *access.Gate) chi.Router {
	router := chi.NewRouter()

	router.With(gate.Middleware(access.OpInstructorStudentsList)).Get("/students", handler.listStudents)

	return router
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

type purgeResponse struct {
	Removed int64 `json:"removed"`
}

/*
GET /api/v1/admin/users.

Request:
  - page, limit: pagination query
  - role: optional role filter

Response:
  - 200: paginated []auth.User
  - 422: VALIDATION_ERROR for an unknown role
*/
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	role, err := ParseRoleFilter(request.URL.Query().Get("role"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)
	users, total, err := handler.adminService.ListUsers(request.Context(), role, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, users, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
PATCH /api/v1/admin/users/{id}/role.

Response:
  - 200: auth.User
  - 404: NOT_FOUND
  - 422: VALIDATION_ERROR or SELF_MODIFICATION
*/
func (handler *Handler) updateRole(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateRoleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.adminService.UpdateRole(request.Context(), actor, requestutil.Param(request, "id"), input.Role)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
DELETE /api/v1/admin/users/{id}.

Response:
  - 204: No Content
  - 404: NOT_FOUND
  - 422: SELF_MODIFICATION
*/
func (handler *Handler) deleteUser(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.adminService.DeleteUser(request.Context(), actor, requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// POST /api/v1/admin/sessions/purge.
func (handler *Handler) purgeSessions(writer http.ResponseWriter, request *http.Request) {
	removed, err := handler.adminService.PurgeSessions(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, purgeResponse{Removed: removed})
}

/*
GET /api/v1/instructor/students.

Response:
  - 200: paginated []auth.User with role student
*/
func (handler *Handler) listStudents(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	users, total, err := handler.adminService.ListStudents(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, users, pagination.NewMeta(params.Page, params.Limit, total))
}
