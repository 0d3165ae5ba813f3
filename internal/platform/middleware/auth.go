// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/edura/internal/platform/apperr"
	"github.com/taibuivan/edura/internal/platform/constants"
	"github.com/taibuivan/edura/internal/platform/ctxutil"
	"github.com/taibuivan/edura/internal/platform/respond"
	"github.com/taibuivan/edura/internal/platform/sec"
)

// IdentityResolver turns a raw bearer token into the caller's identity.
//
// Implementations must return an error carrying HTTP 401 for any token that
// does not map to an active session.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*sec.Principal, error)
}

// BearerToken extracts the token from an 'Authorization: Bearer <token>' header.
// The scheme match is case-insensitive. It returns false when the header is
// absent or malformed.
func BearerToken(request *http.Request) (string, bool) {
	header := request.Header.Get(constants.HeaderAuthorization)
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, constants.BearerScheme) {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

/*
Authenticate resolves the bearer token and attaches the [*sec.Principal].

Unlike an optional-auth decorator, it rejects the request outright when the
header is missing or the token does not resolve.

Flow:
 1. Read 'Authorization: Bearer <token>'. Missing or malformed gives 401.
 2. Resolve the token through [IdentityResolver]. A 401 failure gives 401.
 3. Any other resolver failure is a server error.
 4. Inject the principal into the request context.
*/
func Authenticate(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Format validation
			token, ok := BearerToken(request)
			if !ok {
				respond.Error(writer, request, apperr.Unauthenticated("Authentication required"))
				return
			}

			// 2. Identity resolution
			principal, err := resolver.Resolve(request.Context(), token)
			if err != nil {
				if apperr.HasStatus(err, http.StatusUnauthorized) {
					respond.Error(writer, request, apperr.Unauthenticated("Invalid or expired token"))
					return
				}
				respond.Error(writer, request, err)
				return
			}

			ctxutil.GetLogger(request.Context()).DebugContext(request.Context(), "principal_resolved",
				slog.String("user_id", principal.UserID),
				slog.String("role", principal.Role.String()),
			)

			// 3. Context injection
			ctx := ctxutil.WithPrincipal(request.Context(), principal)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}
