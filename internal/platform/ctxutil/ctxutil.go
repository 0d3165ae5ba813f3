// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ctxutil reads and writes the per-request values carried in a [context.Context].

Three values travel with every request:

  - The correlation id set by the RequestID middleware.
  - The request logger set by StructuredLogger.
  - The [sec.Principal] set once a bearer token resolves to a live session.

Attaching a principal also tags the request logger with the user and session
ids, so every later log line of that request names who made it.
*/
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/edura/internal/platform/ctxkey"
	"github.com/taibuivan/edura/internal/platform/sec"
)

// # Correlation

// WithRequestID stores the correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID returns the correlation id, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Logging

// WithLogger stores the request logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger returns the request logger, falling back to [slog.Default] for
// background work and startup code.
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// # Principal

/*
WithPrincipal stores the resolved identity of the caller.

When a request logger is present it is replaced by one carrying user_id and
session_id. A nil principal is stored as-is and leaves the logger alone.
*/
func WithPrincipal(ctx context.Context, principal *sec.Principal) context.Context {
	ctx = context.WithValue(ctx, ctxkey.KeyPrincipal, principal)
	if principal == nil {
		return ctx
	}

	if logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger); ok && logger != nil {
		ctx = WithLogger(ctx, logger.With(
			slog.String("user_id", principal.UserID),
			slog.String("session_id", principal.SessionID),
		))
	}
	return ctx
}

// GetPrincipal returns the caller, or nil for anonymous requests.
func GetPrincipal(ctx context.Context) *sec.Principal {
	principal, _ := ctx.Value(ctxkey.KeyPrincipal).(*sec.Principal)
	return principal
}
