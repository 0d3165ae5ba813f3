// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/edura/internal/platform/access"
	"github.com/taibuivan/edura/internal/platform/apperr"
	"github.com/taibuivan/edura/internal/platform/constants"
	"github.com/taibuivan/edura/internal/platform/sec"
	"github.com/taibuivan/edura/internal/users/admin"
	"github.com/taibuivan/edura/internal/users/auth"
	"github.com/taibuivan/edura/pkg/pagination"
)

// # Fixtures

const adminID = "0190a6b4-0000-7000-8000-000000000000"

type purgerFunc func(ctx context.Context) (int64, error)

func (f purgerFunc) PurgeExpiredSessions(ctx context.Context) (int64, error) { return f(ctx) }

type staticResolver map[string]*sec.Principal

func (resolver staticResolver) Resolve(_ context.Context, token string) (*sec.Principal, error) {
	principal, ok := resolver[token]
	if !ok {
		return nil, apperr.Unauthenticated("Invalid token")
	}
	return principal, nil
}

/*
seed creates one admin, two instructors and three students, in that order.
*/
func seed(t *testing.T) *auth.MemoryStore {
	t.Helper()
	store := auth.NewMemoryStore()

	roles := []sec.Role{sec.RoleAdmin, sec.RoleInstructor, sec.RoleInstructor, sec.RoleStudent, sec.RoleStudent, sec.RoleStudent}
	for i, role := range roles {
		require.NoError(t, store.Users().Create(context.Background(), &auth.User{
			ID:    fmt.Sprintf("0190a6b4-0000-7000-8000-%012d", i),
			Name:  fmt.Sprintf("User %d", i),
			Email: fmt.Sprintf("user%d@edura.app", i),
			Role:  role,
		}))
	}
	return store
}

func newService(store *auth.MemoryStore) *admin.Service {
	return admin.NewService(store.Users(), purgerFunc(func(ctx context.Context) (int64, error) {
		return store.Sessions().DeleteExpired(ctx)
	}))
}

func actor() *sec.Principal {
	return &sec.Principal{UserID: adminID, Role: sec.RoleAdmin}
}

// # Service

/*
TestListUsers verifies paging, ordering and the role filter.
*/
func TestListUsers(t *testing.T) {
	service := newService(seed(t))

	users, total, err := service.ListUsers(context.Background(), nil, pagination.Params{Page: 1, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, users, 4)
	assert.Equal(t, "0190a6b4-0000-7000-8000-000000000005", users[0].ID)

	users, _, err = service.ListUsers(context.Background(), nil, pagination.Params{Page: 2, Limit: 4})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, adminID, users[1].ID)

	instructor := sec.RoleInstructor
	users, total, err = service.ListUsers(context.Background(), &instructor, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, user := range users {
		assert.Equal(t, sec.RoleInstructor, user.Role)
	}

	students, total, err := service.ListStudents(context.Background(), pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, students, 3)
}

/*
TestParseRoleFilter covers empty, known and unknown values.
*/
func TestParseRoleFilter(t *testing.T) {
	role, err := admin.ParseRoleFilter("")
	require.NoError(t, err)
	assert.Nil(t, role)

	role, err = admin.ParseRoleFilter("Instructor")
	require.NoError(t, err)
	assert.Equal(t, sec.RoleInstructor, *role)

	_, err = admin.ParseRoleFilter("superuser")
	assert.True(t, apperr.HasStatus(err, http.StatusUnprocessableEntity))

	appError := apperr.As(err)
	require.NotNil(t, appError)
	require.Len(t, appError.Details, 1)
	assert.Equal(t, auth.FieldRole, appError.Details[0].Field)
	assert.Equal(t, "Must be one of: admin, instructor, student, guest", appError.Details[0].Message)
}

/*
TestUpdateRole verifies promotion plus the self and unknown-role guards.
*/
func TestUpdateRole(t *testing.T) {
	store := seed(t)
	service := newService(store)
	target := "0190a6b4-0000-7000-8000-000000000003"

	user, err := service.UpdateRole(context.Background(), actor(), target, "instructor")
	require.NoError(t, err)
	assert.Equal(t, sec.RoleInstructor, user.Role)

	_, err = service.UpdateRole(context.Background(), actor(), target, "root")
	assert.True(t, apperr.HasStatus(err, http.StatusUnprocessableEntity))

	_, err = service.UpdateRole(context.Background(), actor(), adminID, "guest")
	assert.ErrorIs(t, err, admin.ErrSelfRoleChange)

	_, err = service.UpdateRole(context.Background(), actor(), "missing", "guest")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	stored, err := store.Users().FindByID(context.Background(), adminID)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleAdmin, stored.Role)
}

/*
TestDeleteUser verifies deletion and the self guard.
*/
func TestDeleteUser(t *testing.T) {
	store := seed(t)
	service := newService(store)
	target := "0190a6b4-0000-7000-8000-000000000004"

	require.NoError(t, service.DeleteUser(context.Background(), actor(), target))
	_, err := store.Users().FindByID(context.Background(), target)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	assert.ErrorIs(t, service.DeleteUser(context.Background(), actor(), adminID), admin.ErrSelfDelete)
	assert.ErrorIs(t, service.DeleteUser(context.Background(), actor(), target), auth.ErrUserNotFound)
}

/*
TestPurgeSessions verifies only dead sessions are removed.
*/
func TestPurgeSessions(t *testing.T) {
	store := seed(t)
	service := newService(store)
	owner := "0190a6b4-0000-7000-8000-000000000003"

	now := time.Now()
	for id, expiresAt := range map[string]time.Time{"live": now.Add(time.Hour), "dead": now.Add(-time.Hour)} {
		require.NoError(t, store.Sessions().Create(context.Background(), &auth.Session{
			ID: id, UserID: owner, CreatedAt: now, ExpiresAt: expiresAt,
		}))
	}

	removed, err := service.PurgeSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = store.Sessions().FindActive(context.Background(), "live")
	assert.NoError(t, err)
}

// # HTTP

func newRouter(store *auth.MemoryStore) http.Handler {
	resolver := staticResolver{
		"admin-token":      actor(),
		"instructor-token": {UserID: "0190a6b4-0000-7000-8000-000000000001", Role: sec.RoleInstructor},
		"student-token":    {UserID: "0190a6b4-0000-7000-8000-000000000003", Role: sec.RoleStudent},
	}
	gate := access.NewGate(resolver, access.DefaultPolicy())
	handler := admin.NewHandler(newService(store))

	router := chi.NewRouter()
	router.Mount("/api/v1/admin", handler.Routes(gate))
	router.Mount("/api/v1/instructor", handler.InstructorRoutes(gate))
	return router
}

func serve(handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		request.Header.Set(constants.HeaderAuthorization, constants.BearerScheme+" "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

/*
TestHandler_Access verifies each route against the three roles.
*/
func TestHandler_Access(t *testing.T) {
	router := newRouter(seed(t))

	tests := []struct {
		method, path string
		token        string
		want         int
	}{
		{http.MethodGet, "/api/v1/admin/users", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/admin/users", "forged", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/admin/users", "student-token", http.StatusForbidden},
		{http.MethodGet, "/api/v1/admin/users", "instructor-token", http.StatusForbidden},
		{http.MethodGet, "/api/v1/admin/users", "admin-token", http.StatusOK},
		{http.MethodPost, "/api/v1/admin/sessions/purge", "instructor-token", http.StatusForbidden},
		{http.MethodPost, "/api/v1/admin/sessions/purge", "admin-token", http.StatusOK},
		{http.MethodGet, "/api/v1/instructor/students", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/instructor/students", "student-token", http.StatusForbidden},
		{http.MethodGet, "/api/v1/instructor/students", "instructor-token", http.StatusOK},
		{http.MethodGet, "/api/v1/instructor/students", "admin-token", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s %s", tt.method, tt.path, tt.token), func(t *testing.T) {
			assert.Equal(t, tt.want, serve(router, tt.method, tt.path, tt.token, "").Code)
		})
	}
}

/*
TestHandler_ListUsers verifies the paginated envelope and the role query.
*/
func TestHandler_ListUsers(t *testing.T) {
	router := newRouter(seed(t))

	recorder := serve(router, http.MethodGet, "/api/v1/admin/users?role=student&limit=2", "admin-token", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope struct {
		Data []auth.User     `json:"data"`
		Meta pagination.Meta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)
	assert.Equal(t, pagination.Meta{Page: 1, Limit: 2, Total: 3, TotalPages: 2}, envelope.Meta)

	recorder = serve(router, http.MethodGet, "/api/v1/admin/users?role=wizard", "admin-token", "")
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

/*
TestHandler_RoleChangeTakesEffect verifies the role update reaches the store.
*/
func TestHandler_RoleChangeTakesEffect(t *testing.T) {
	store := seed(t)
	router := newRouter(store)
	target := "0190a6b4-0000-7000-8000-000000000005"

	recorder := serve(router, http.MethodPatch, "/api/v1/admin/users/"+target+"/role", "admin-token", `{"role":"instructor"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"role":"instructor"`)

	stored, err := store.Users().FindByID(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleInstructor, stored.Role)

	recorder = serve(router, http.MethodPatch, "/api/v1/admin/users/"+adminID+"/role", "admin-token", `{"role":"guest"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "SELF_MODIFICATION")

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodDelete, "/api/v1/admin/users/"+target, "admin-token", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodDelete, "/api/v1/admin/users/"+target, "admin-token", "").Code)
}
