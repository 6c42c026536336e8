package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGridSender struct {
	client *sendgrid.Client
}

func NewSendGridSender(apiKey string) *SendGridSender {
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey)}
}

func (s *SendGridSender) Name() string { return "sendgrid" }

func (s *SendGridSender) Send(ctx context.Context, msg Message) Result {
	if err := validateMessage(msg); err != nil {
		return failed(err)
	}

	m := newSendGridMail(msg)
	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return failed(fmt.Errorf("sendgrid: %w", err))
	}
	if resp.StatusCode >= 300 {
		return failed(fmt.Errorf("sendgrid: unexpected status %d", resp.StatusCode))
	}

	var id string
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		id = ids[0]
	}
	return Result{Success: true, MessageID: id}
}

// newSendGridMail builds a text-only message; SendGrid rejects empty HTML parts.
func newSendGridMail(msg Message) *mail.SGMailV3 {
	from := mail.NewEmail("", msg.From)
	to := mail.NewEmail("", msg.To)
	return mail.NewV3MailInit(from, msg.Subject, to, mail.NewContent("text/plain", msg.Body))
}
