// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail delivers transactional email such as verification codes and
password reset links.

Implementations:

  - SendGridMailer: Production delivery over the SendGrid v3 API.
  - ConsoleMailer: Writes messages to the structured log. Used when no API key is set.
  - Recorder: Keeps messages in memory so tests can read codes back.
*/
package mail

import (
	"context"
	"errors"
	"net/mail"
)

// Message is one plain-text email to a single recipient.
type Message struct {
	To      string
	Subject string
	Text    string
}

// Mailer sends a [Message]. Send blocks until the provider accepts or rejects it.
type Mailer interface {
	Send(ctx context.Context, message Message) error
}

// ErrInvalidRecipient is returned for messages without a parseable address.
var ErrInvalidRecipient = errors.New("mail_invalid_recipient")

// validate checks fields every implementation requires.
func (message Message) validate() error {
	if _, err := mail.ParseAddress(message.To); err != nil {
		return ErrInvalidRecipient
	}
	return nil
}
