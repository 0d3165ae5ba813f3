// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package access

import (
	"log/slog"
	"net/http"

	"github.com/taibuivan/edura/internal/platform/apperr"
	"github.com/taibuivan/edura/internal/platform/ctxutil"
	"github.com/taibuivan/edura/internal/platform/middleware"
	"github.com/taibuivan/edura/internal/platform/respond"
)

// Authorize checks the attached principal's role against op.
//
// It must run after [middleware.Authenticate]. A request without a principal
// gets 401; a role outside the allowed set gets 403 and next never runs.
func Authorize(policy *Policy, op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			principal := ctxutil.GetPrincipal(request.Context())

			if principal == nil {
				respond.Error(writer, request, apperr.Unauthenticated("Authentication required"))
				return
			}

			if !policy.Allows(op, principal.Role) {
				ctxutil.GetLogger(request.Context()).InfoContext(request.Context(), "access_denied",
					slog.String("operation", string(op)),
					slog.String("user_id", principal.UserID),
					slog.String("role", principal.Role.String()),
					slog.Any("allowed_roles", policy.AllowedRoles(op)),
				)
				respond.Error(writer, request, apperr.Unauthorized("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// Gate binds an identity resolver to a policy for route wiring.
type Gate struct {
	resolver middleware.IdentityResolver
	policy   *Policy
}

// NewGate returns a [Gate] over resolver and policy.
func NewGate(resolver middleware.IdentityResolver, policy *Policy) *Gate {
	return &Gate{resolver: resolver, policy: policy}
}

// Middleware returns the authenticate-then-authorize chain for op, for use
// with chi's With. It panics when op is absent from the policy.
func (gate *Gate) Middleware(op Operation) func(http.Handler) http.Handler {
	if !gate.policy.Has(op) {
		panic("access: operation " + string(op) + " has no policy entry")
	}

	authenticate := middleware.Authenticate(gate.resolver)
	authorize := Authorize(gate.policy, op)

	return func(next http.Handler) http.Handler {
		return authenticate(authorize(next))
	}
}

// Protect wraps handler so it only runs for callers whose role may invoke op.
func (gate *Gate) Protect(op Operation, handler http.HandlerFunc) http.Handler {
	return gate.Middleware(op)(handler)
}
