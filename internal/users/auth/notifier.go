// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/taibuivan/edura/internal/platform/mail"
)

// Notifier renders and sends the emails of the identity lifecycle.
type Notifier struct {
	mailer  mail.Mailer
	baseURL string
}

// NewNotifier builds a notifier whose links point at baseURL (the web client).
func NewNotifier(mailer mail.Mailer, baseURL string) *Notifier {
	return &Notifier{mailer: mailer, baseURL: strings.TrimRight(baseURL, "/")}
}

// link builds a client URL carrying one query parameter.
func (notifier *Notifier) link(path, key, value string) string {
	return notifier.baseURL + path + "?" + url.Values{key: {value}}.Encode()
}

// SendVerification mails the raw verification code to user.
func (notifier *Notifier) SendVerification(ctx context.Context, user *User, code string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nConfirm your email address to start learning on Edura:\n\n%s\n\nOr enter this code in the app:\n\n%s\n",
		user.Name, notifier.link("/verify-email", FieldCode, code), code,
	)

	return notifier.mailer.Send(ctx, mail.Message{
		To:      user.Email,
		Subject: "Verify your email address",
		Text:    body,
	})
}

// SendPasswordReset mails a reset link valid for [ResetTokenTTL].
func (notifier *Notifier) SendPasswordReset(ctx context.Context, user *User, token string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nSomeone asked to reset your Edura password. The link below is valid for %s:\n\n%s\n\nIf it was not you, ignore this email.\n",
		user.Name, ResetTokenTTL, notifier.link("/reset-password", FieldToken, token),
	)

	return notifier.mailer.Send(ctx, mail.Message{
		To:      user.Email,
		Subject: "Reset your password",
		Text:    body,
	})
}
