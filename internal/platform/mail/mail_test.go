// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestRecorder verifies messages are kept in order and failures are injectable.
*/
func TestRecorder(t *testing.T) {
	recorder := NewRecorder()
	ctx := context.Background()

	require.NoError(t, recorder.Send(ctx, Message{To: "a@edura.app", Subject: "one"}))
	require.NoError(t, recorder.Send(ctx, Message{To: "b@edura.app", Subject: "two"}))
	require.NoError(t, recorder.Send(ctx, Message{To: "a@edura.app", Subject: "three"}))

	assert.Len(t, recorder.Messages(), 3)

	last, ok := recorder.Last("a@edura.app")
	require.True(t, ok)
	assert.Equal(t, "three", last.Subject)

	_, ok = recorder.Last("nobody@edura.app")
	assert.False(t, ok)

	boom := errors.New("provider down")
	recorder.FailWith(boom)
	assert.ErrorIs(t, recorder.Send(ctx, Message{To: "a@edura.app"}), boom)
	assert.ErrorIs(t, recorder.Send(ctx, Message{To: "not an address"}), ErrInvalidRecipient)
}

/*
TestConsoleMailer verifies delivery goes to the log.
*/
func TestConsoleMailer(t *testing.T) {
	var buffer bytes.Buffer
	mailer := NewConsoleMailer(slog.New(slog.NewJSONHandler(&buffer, nil)))

	require.NoError(t, mailer.Send(context.Background(), Message{To: "tai@edura.app", Subject: "Verify", Text: "code"}))
	assert.Contains(t, buffer.String(), "mail_console_delivery")
	assert.Contains(t, buffer.String(), "tai@edura.app")

	assert.ErrorIs(t, mailer.Send(context.Background(), Message{}), ErrInvalidRecipient)
}

/*
TestSendGridMailer_Prepare checks the provider payload without network access.
*/
func TestSendGridMailer_Prepare(t *testing.T) {
	mailer := NewSendGridMailer("SG.test", "Edura", "no-reply@edura.app")

	payload := mailer.prepare(Message{To: "tai@edura.app", Subject: "Verify your email", Text: "hello"})

	require.Len(t, payload.Personalizations, 1)
	assert.Equal(t, "[Edura] Verify your email", payload.Personalizations[0].Subject)
	require.Len(t, payload.Personalizations[0].To, 1)
	assert.Equal(t, "tai@edura.app", payload.Personalizations[0].To[0].Address)
	assert.Equal(t, "no-reply@edura.app", payload.From.Address)
	require.Len(t, payload.Content, 1)
	assert.Equal(t, "text/plain", payload.Content[0].Type)
}
