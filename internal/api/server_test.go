// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/edura/internal/api"
	"github.com/taibuivan/edura/internal/platform/access"
	"github.com/taibuivan/edura/internal/platform/config"
	"github.com/taibuivan/edura/internal/platform/constants"
	"github.com/taibuivan/edura/internal/platform/mail"
	"github.com/taibuivan/edura/internal/platform/sec"
	"github.com/taibuivan/edura/internal/users/account"
	"github.com/taibuivan/edura/internal/users/admin"
	"github.com/taibuivan/edura/internal/users/auth"
)

// # Fixtures

var (
	issuerOnce sync.Once
	issuer     *sec.TokenService
)

func sharedIssuer() *sec.TokenService {
	issuerOnce.Do(func() {
		var err error
		issuer, err = sec.NewEphemeralTokenService(constants.AuthIssuer)
		if err != nil {
			panic(err)
		}
	})
	return issuer
}

type testApp struct {
	handler http.Handler
	store   *auth.MemoryStore
	outbox  *mail.Recorder
}

/*
newApp assembles the full server over the memory stores, the same way main
does with STORAGE_DRIVER=memory.
*/
func newApp(t *testing.T, environ map[string]string) *testApp {
	t.Helper()

	environ["STORAGE_DRIVER"] = config.DriverMemory
	cfg, err := config.LoadFrom(environ)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := auth.NewMemoryStore()
	outbox := mail.NewRecorder()
	notifier := auth.NewNotifier(outbox, cfg.AppBaseURL)

	authService := auth.NewService(store.Users(), store.Sessions(), auth.NewMemoryResetTokenRepository(),
		sharedIssuer(), notifier, auth.Options{SessionTTL: cfg.SessionTTL, BootstrapAdminEmail: cfg.BootstrapAdminEmail})

	policy := access.DefaultPolicy()
	require.NoError(t, policy.Validate(access.Operations()...))
	gate := access.NewGate(authService, policy)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server := api.NewServer(ctx, cfg, logger, gate, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService),
		Account:   account.NewHandler(account.NewService(store.Users(), authService, authService, notifier)),
		Admin:     admin.NewHandler(admin.NewService(store.Users(), authService)),
	})

	return &testApp{handler: server.Handler(), store: store, outbox: outbox}
}

func (app *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return app.doFrom(t, "", nil, method, path, token, body)
}

// doFrom is do with an explicit socket address and extra headers.
func (app *testApp) doFrom(t *testing.T, remoteAddr string, headers map[string]string, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}

	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if remoteAddr != "" {
		request.RemoteAddr = remoteAddr
	}
	for name, value := range headers {
		request.Header.Set(name, value)
	}
	if token != "" {
		request.Header.Set(constants.HeaderAuthorization, constants.BearerScheme+" "+token)
	}

	recorder := httptest.NewRecorder()
	app.handler.ServeHTTP(recorder, request)
	return recorder
}

func (app *testApp) codeFor(t *testing.T, email string) string {
	t.Helper()
	message, ok := app.outbox.Last(email)
	require.True(t, ok, "no mail sent to %s", email)
	fields := strings.Fields(message.Text)
	return fields[len(fields)-1]
}

// registerAndLogin runs the happy path and returns the bearer token.
func (app *testApp) registerAndLogin(t *testing.T, name, email, password string) string {
	t.Helper()
	require.Equal(t, http.StatusCreated, app.do(t, http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"name": name, "email": email, "password": password}).Code)
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, "/api/v1/auth/verify-email", "",
		map[string]string{"code": app.codeFor(t, email)}).Code)

	recorder := app.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.Token)
	return envelope.Data.Token
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope
}

// # Round Trips

/*
TestRoundTrip_RegisterVerifyLoginProfile walks the whole identity lifecycle
over HTTP and checks the profile never carries credential data.
*/
func TestRoundTrip_RegisterVerifyLoginProfile(t *testing.T) {
	app := newApp(t, map[string]string{})

	// Register
	recorder := app.do(t, http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"name": "Alice", "email": "alice@example.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, recorder.Code)

	registered := decode(t, recorder)["data"].(map[string]any)
	assert.Nil(t, registered["token"])
	assert.Equal(t, true, registered["verification_required"])

	// Login before verification
	recorder = app.do(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "alice@example.com", "password": "secret123"})
	require.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", decode(t, recorder)["code"])

	// Verify, then the same code again
	code := app.codeFor(t, "alice@example.com")
	recorder = app.do(t, http.MethodPost, "/api/v1/auth/verify-email", "", map[string]string{"code": code})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = app.do(t, http.MethodPost, "/api/v1/auth/verify-email", "", map[string]string{"code": code})
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Equal(t, "INVALID_OR_EXPIRED_TOKEN", decode(t, recorder)["code"])

	// Wrong password
	recorder = app.do(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "alice@example.com", "password": "secret124"})
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decode(t, recorder)["code"])
	assert.NotContains(t, recorder.Body.String(), "token\"")

	// Login
	recorder = app.do(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "alice@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, recorder.Code)
	session := decode(t, recorder)["data"].(map[string]any)
	token, _ := session["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, constants.BearerScheme, session["token_type"])

	// Profile
	recorder = app.do(t, http.MethodGet, "/api/v1/user", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	profile := decode(t, recorder)["data"].(map[string]any)
	assert.Equal(t, "alice@example.com", profile["email"])
	assert.Equal(t, true, profile["is_verified"])

	body := strings.ToLower(recorder.Body.String())
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "secret123")
	assert.NotContains(t, body, "$2a$")

	// Logout invalidates that token only
	second := app.do(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "alice@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, second.Code)
	secondToken := decode(t, second)["data"].(map[string]any)["token"].(string)

	require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil).Code)

	recorder = app.do(t, http.MethodGet, "/api/v1/user", token, nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "UNAUTHENTICATED", decode(t, recorder)["code"])
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/v1/user", secondToken, nil).Code)
}

/*
TestRoundTrip_RoleGate verifies a student never reaches admin data, while
401 and 403 stay distinct.
*/
func TestRoundTrip_RoleGate(t *testing.T) {
	app := newApp(t, map[string]string{})

	studentToken := app.registerAndLogin(t, "Sam", "sam@example.com", "secret123")
	student, err := app.store.Users().FindByEmail(context.Background(), "sam@example.com")
	require.NoError(t, err)
	_, err = app.store.Users().UpdateRole(context.Background(), student.ID, sec.RoleStudent)
	require.NoError(t, err)

	adminToken := app.registerAndLogin(t, "Ada", "ada@example.com", "secret123")
	adminUser, err := app.store.Users().FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	_, err = app.store.Users().UpdateRole(context.Background(), adminUser.ID, sec.RoleAdmin)
	require.NoError(t, err)

	for _, path := range []string{"/api/v1/admin/users", "/api/v1/admin/users?role=student"} {
		recorder := app.do(t, http.MethodGet, path, studentToken, nil)
		assert.Equal(t, http.StatusForbidden, recorder.Code)
		assert.Equal(t, "UNAUTHORIZED", decode(t, recorder)["code"])
		assert.NotContains(t, recorder.Body.String(), "ada@example.com")

		assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, path, "", nil).Code)
		assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, path, "garbage", nil).Code)
	}

	recorder := app.do(t, http.MethodGet, "/api/v1/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "sam@example.com")

	// Demotion applies on the very next request
	recorder = app.do(t, http.MethodPatch, "/api/v1/admin/users/"+student.ID+"/role", adminToken, map[string]string{"role": "instructor"})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/v1/instructor/students", studentToken, nil).Code)

	// Deleted identities lose their sessions
	require.Equal(t, http.StatusNoContent, app.do(t, http.MethodDelete, "/api/v1/admin/users/"+student.ID, adminToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/v1/user", studentToken, nil).Code)
}

/*
TestRoundTrip_PasswordReset verifies forgot and reset over HTTP.
*/
func TestRoundTrip_PasswordReset(t *testing.T) {
	app := newApp(t, map[string]string{"APP_BASE_URL": "https://app.edura.test"})
	token := app.registerAndLogin(t, "Alice", "alice@example.com", "secret123")

	recorder := app.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{"email": "ghost@example.com"})
	require.Equal(t, http.StatusOK, recorder.Code)
	generic := recorder.Body.String()

	recorder = app.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, generic, recorder.Body.String())

	message, ok := app.outbox.Last("alice@example.com")
	require.True(t, ok)
	start := strings.Index(message.Text, "token=")
	require.Positive(t, start)
	resetToken := strings.Fields(message.Text[start+len("token="):])[0]

	recorder = app.do(t, http.MethodPost, "/api/v1/auth/reset-password", "",
		map[string]string{"token": resetToken, "password": "brand-new-pass"})
	require.Equal(t, http.StatusOK, recorder.Code)

	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/v1/user", token, nil).Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "alice@example.com", "password": "brand-new-pass"}).Code)
}

/*
TestRegister_Rejections covers the 422 paths over HTTP.
*/
func TestRegister_Rejections(t *testing.T) {
	app := newApp(t, map[string]string{})

	recorder := app.do(t, http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"name": "", "email": "bad", "password": "short"})
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	envelope := decode(t, recorder)
	assert.Equal(t, "VALIDATION_ERROR", envelope["code"])
	assert.Len(t, envelope["details"], 3)

	app.do(t, http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"name": "Alice", "email": "alice@example.com", "password": "secret123"})
	recorder = app.do(t, http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"name": "Alice", "email": "Alice@Example.com", "password": "secret123"})
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Equal(t, "DUPLICATE_EMAIL", decode(t, recorder)["code"])
}

/*
TestAuthRateLimit verifies the stricter limiter on the auth routes only.
*/
func TestAuthRateLimit(t *testing.T) {
	app := newApp(t, map[string]string{"AUTH_RATE_LIMIT_RPS": "0.5", "AUTH_RATE_LIMIT_BURST": "2"})
	credentials := map[string]string{"email": "ghost@example.com", "password": "secret123"}

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodPost, "/api/v1/auth/login", "", credentials).Code)
	}

	recorder := app.do(t, http.MethodPost, "/api/v1/auth/login", "", credentials)
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "2", recorder.Header().Get(constants.HeaderRetryAfter))

	// Outside /auth only the global limiter applies
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/health", "", nil).Code)
}

// # Health

/*
TestHealth covers liveness and both readiness outcomes.
*/
func TestHealth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(context.Context) error { return nil },
	}, logger)

	recorder := httptest.NewRecorder()
	liveness(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	readiness(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"ready"`)

	_, readiness = api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(context.Context) error { return nil },
		CheckCache:    func(context.Context) error { return errors.New("connection refused") },
	}, logger)

	recorder = httptest.NewRecorder()
	readiness(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"degraded"`)
	assert.Contains(t, recorder.Body.String(), "connection refused")
}

/*
TestRoundTrip_BootstrapAdmin verifies the configured address reaches the admin
and instructor routes after the normal register and verify flow.
*/
func TestRoundTrip_BootstrapAdmin(t *testing.T) {
	app := newApp(t, map[string]string{"BOOTSTRAP_ADMIN_EMAIL": "root@example.com"})

	rootToken := app.registerAndLogin(t, "Root", "root@example.com", "secret123")
	guestToken := app.registerAndLogin(t, "Alice", "alice@example.com", "secret123")

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/v1/admin/users", rootToken, nil).Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/v1/instructor/students", rootToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/v1/admin/users", guestToken, nil).Code)
}

/*
TestAuthRateLimit_SpoofedForwardedFor verifies a client rotating
X-Forwarded-For still shares one bucket, while a trusted proxy's forwarded
addresses get their own.
*/
func TestAuthRateLimit_SpoofedForwardedFor(t *testing.T) {
	app := newApp(t, map[string]string{
		"AUTH_RATE_LIMIT_RPS":   "0.5",
		"AUTH_RATE_LIMIT_BURST": "2",
		"TRUSTED_PROXIES":       "10.0.0.0/8",
	})
	credentials := map[string]string{"email": "ghost@example.com", "password": "secret123"}

	limited := 0
	for i := 0; i < 20; i++ {
		headers := map[string]string{constants.HeaderXForwardedFor: fmt.Sprintf("198.51.100.%d", i)}
		recorder := app.doFrom(t, "203.0.113.7:51000", headers, http.MethodPost, "/api/v1/auth/login", "", credentials)
		if recorder.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 18, limited)

	// Behind the trusted proxy each forwarded client has its own bucket
	for i := 0; i < 5; i++ {
		headers := map[string]string{constants.HeaderXForwardedFor: fmt.Sprintf("198.51.100.%d", i)}
		recorder := app.doFrom(t, "10.0.0.5:443", headers, http.MethodPost, "/api/v1/auth/login", "", credentials)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	}
}

/*
TestRoundTrip_DeviceSessions verifies a user can see and sign out their own
devices from another device.
*/
func TestRoundTrip_DeviceSessions(t *testing.T) {
	app := newApp(t, map[string]string{})
	laptop := app.registerAndLogin(t, "Alice", "alice@example.com", "secret123")

	recorder := app.doFrom(t, "", map[string]string{"User-Agent": "phone-browser"}, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "alice@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, recorder.Code)
	var login struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &login))
	phone := login.Data.Token

	recorder = app.do(t, http.MethodGet, "/api/v1/user/sessions", laptop, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var listing struct {
		Data []account.SessionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listing))
	require.Len(t, listing.Data, 2)

	var phoneID string
	for _, session := range listing.Data {
		if !session.IsCurrent {
			phoneID = session.ID
			assert.Equal(t, "phone-browser", session.UserAgent)
		}
	}
	require.NotEmpty(t, phoneID)

	assert.Equal(t, http.StatusNoContent, app.do(t, http.MethodDelete, "/api/v1/user/sessions/"+phoneID, laptop, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/v1/user", phone, nil).Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/v1/user", laptop, nil).Code)
}
