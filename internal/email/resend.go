package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

type ResendSender struct {
	client *resend.Client
}

func NewResendSender(apiKey string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey)}
}

func (s *ResendSender) Name() string { return "resend" }

func (s *ResendSender) Send(ctx context.Context, msg Message) Result {
	if err := validateMessage(msg); err != nil {
		return failed(err)
	}

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Body,
	})
	if err != nil {
		return failed(fmt.Errorf("resend: %w", err))
	}
	return Result{Success: true, MessageID: sent.Id}
}
