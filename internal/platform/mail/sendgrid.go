// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridMailer delivers messages through the SendGrid v3 mail/send endpoint.
type SendGridMailer struct {
	client     *sendgrid.Client
	from       *sgmail.Email
	subjPrefix string
}

// NewSendGridMailer builds a mailer for apiKey sending from fromAddress.
func NewSendGridMailer(apiKey, fromName, fromAddress string) *SendGridMailer {
	return &SendGridMailer{
		client:     sendgrid.NewSendClient(apiKey),
		from:       sgmail.NewEmail(fromName, fromAddress),
		subjPrefix: "[" + fromName + "] ",
	}
}

// prepare converts a [Message] into the SendGrid payload.
func (mailer *SendGridMailer) prepare(message Message) *sgmail.SGMailV3 {
	personalization := sgmail.NewPersonalization()
	personalization.Subject = mailer.subjPrefix + message.Subject
	personalization.AddTos(sgmail.NewEmail("", message.To))

	payload := sgmail.NewV3Mail()
	payload.SetFrom(mailer.from)
	payload.AddPersonalizations(personalization)
	payload.AddContent(sgmail.NewContent("text/plain", message.Text))

	return payload
}

// Send implements [Mailer]. Any status at or above 400 is an error.
func (mailer *SendGridMailer) Send(ctx context.Context, message Message) error {
	if err := message.validate(); err != nil {
		return err
	}

	response, err := mailer.client.SendWithContext(ctx, mailer.prepare(message))
	if err != nil {
		return fmt.Errorf("mail_sendgrid_request_failed: %w", err)
	}

	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("mail_sendgrid_rejected: status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}
