// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/edura/internal/platform/ctxutil"
	"github.com/taibuivan/edura/internal/platform/sec"
)

/*
TestEmptyContext verifies the zero answers outside a request.
*/
func TestEmptyContext(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, ctxutil.GetRequestID(ctx))
	assert.Same(t, slog.Default(), ctxutil.GetLogger(ctx))
	assert.Nil(t, ctxutil.GetPrincipal(ctx))
}

/*
TestRequestValues verifies each stored value reads back unchanged.
*/
func TestRequestValues(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	principal := &sec.Principal{UserID: "0190a6b4-0000-7000-8000-000000000001", SessionID: "s-1", Role: sec.RoleInstructor}

	ctx := ctxutil.WithRequestID(context.Background(), "req-42")
	ctx = ctxutil.WithPrincipal(ctx, principal)

	assert.Equal(t, "req-42", ctxutil.GetRequestID(ctx))
	assert.Same(t, principal, ctxutil.GetPrincipal(ctx))

	// No request logger yet, so the principal leaves the default untouched
	assert.Same(t, slog.Default(), ctxutil.GetLogger(ctx))

	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Same(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestWithPrincipal_TagsLogger verifies log lines written after authentication
name the caller.
*/
func TestWithPrincipal_TagsLogger(t *testing.T) {
	var buffer bytes.Buffer
	ctx := ctxutil.WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buffer, nil)))

	ctx = ctxutil.WithPrincipal(ctx, &sec.Principal{UserID: "user-7", SessionID: "session-9", Role: sec.RoleStudent})
	ctxutil.GetLogger(ctx).Info("profile_read")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &line))
	assert.Equal(t, "user-7", line["user_id"])
	assert.Equal(t, "session-9", line["session_id"])

	// A nil principal is the anonymous case and adds nothing
	buffer.Reset()
	anonymous := ctxutil.WithPrincipal(ctxutil.WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buffer, nil))), nil)
	assert.Nil(t, ctxutil.GetPrincipal(anonymous))
	ctxutil.GetLogger(anonymous).Info("health_checked")

	line = nil
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &line))
	assert.Equal(t, "health_checked", line["msg"])
	_, tagged := line["user_id"]
	assert.False(t, tagged)
}
