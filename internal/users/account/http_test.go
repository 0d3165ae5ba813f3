// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/edura/internal/platform/access"
	"github.com/taibuivan/edura/internal/platform/apperr"
	"github.com/taibuivan/edura/internal/platform/constants"
	"github.com/taibuivan/edura/internal/platform/sec"
	"github.com/taibuivan/edura/internal/users/account"
)

type staticResolver map[string]*sec.Principal

func (resolver staticResolver) Resolve(_ context.Context, token string) (*sec.Principal, error) {
	principal, ok := resolver[token]
	if !ok {
		return nil, apperr.Unauthenticated("Invalid token")
	}
	return principal, nil
}

func newRouter(f *fixture) http.Handler {
	gate := access.NewGate(staticResolver{"alice-token": f.principal()}, access.DefaultPolicy())

	router := chi.NewRouter()
	router.Mount("/api/v1/user", account.NewHandler(f.service).Routes(gate))
	return router
}

func serve(handler http.Handler, method, token, body string) *httptest.ResponseRecorder {
	return serveAt(handler, method, "/api/v1/user", token, body)
}

func serveAt(handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set(constants.HeaderAuthorization, constants.BearerScheme+" "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

/*
TestHandler_GetMe verifies the profile never exposes credential material.
*/
func TestHandler_GetMe(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "", "").Code)

	recorder := serve(router, http.MethodGet, "alice-token", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))

	assert.Equal(t, "alice@example.com", envelope.Data["email"])
	assert.Equal(t, "student", envelope.Data["role"])
	for key := range envelope.Data {
		lowered := strings.ToLower(key)
		assert.NotContains(t, lowered, "password")
		assert.NotContains(t, lowered, "hash")
		assert.NotContains(t, lowered, "code")
	}
}

/*
TestHandler_UpdateMe covers success, unknown fields and a wrong current password.
*/
func TestHandler_UpdateMe(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	recorder := serve(router, http.MethodPatch, "alice-token", `{"name":"Alice Nguyen"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"Alice Nguyen"`)

	recorder = serve(router, http.MethodPatch, "alice-token", `{"nickname":"al"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "VALIDATION_ERROR")

	recorder = serve(router, http.MethodPatch, "alice-token", `{"current_password":"nope-nope","new_password":"brand-new-pass"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "WRONG_CURRENT_PASSWORD")
}

/*
TestHandler_DeleteMe verifies deletion and that the profile is gone afterwards.
*/
func TestHandler_DeleteMe(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodDelete, "alice-token", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "alice-token", "").Code)
}

/*
TestHandler_Sessions verifies listing, single revocation and sign-out of the
other devices.
*/
func TestHandler_Sessions(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	assert.Equal(t, http.StatusUnauthorized, serveAt(router, http.MethodGet, "/api/v1/user/sessions", "", "").Code)

	recorder := serveAt(router, http.MethodGet, "/api/v1/user/sessions", "alice-token", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope struct {
		Data []account.SessionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)

	current := 0
	for _, session := range envelope.Data {
		if session.IsCurrent {
			current++
			assert.Equal(t, f.sessions[0], session.ID)
		}
	}
	assert.Equal(t, 1, current)

	path := "/api/v1/user/sessions/" + f.sessions[1]
	assert.Equal(t, http.StatusNoContent, serveAt(router, http.MethodDelete, path, "alice-token", "").Code)
	assert.Equal(t, http.StatusNotFound, serveAt(router, http.MethodDelete, path, "alice-token", "").Code)
	assert.Equal(t, http.StatusNotFound, serveAt(router, http.MethodDelete, "/api/v1/user/sessions/not-a-session", "alice-token", "").Code)

	assert.Equal(t, http.StatusNoContent, serveAt(router, http.MethodDelete, "/api/v1/user/sessions", "alice-token", "").Code)
	assert.True(t, f.sessionActive(t, f.sessions[0]))
}
