// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	"context"
	"log/slog"
)

// ConsoleMailer logs every message instead of delivering it.
//
// The body is logged on purpose: in development it is the only way to read
// a verification code. It must never be configured in production.
type ConsoleMailer struct {
	logger *slog.Logger
}

// NewConsoleMailer returns a mailer that writes to logger.
func NewConsoleMailer(logger *slog.Logger) *ConsoleMailer {
	return &ConsoleMailer{logger: logger}
}

// Send implements [Mailer].
func (mailer *ConsoleMailer) Send(ctx context.Context, message Message) error {
	if err := message.validate(); err != nil {
		return err
	}

	mailer.logger.InfoContext(ctx, "mail_console_delivery",
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
		slog.String("text", message.Text),
	)
	return nil
}
