// Package email delivers the digest through one of the configured providers.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/inboxlens/inboxlens/internal/config"
)

type Message struct {
	To      string
	From    string
	Subject string
	Body    string // plain text
}

type Result struct {
	Success   bool
	MessageID string
	Error     error
}

type Sender interface {
	Send(ctx context.Context, msg Message) Result
	Name() string
}

var errMissingAPIKey = errors.New("api_key is required")

// NewSender builds the sender named by cfg.Provider. An empty provider means smtp.
func NewSender(cfg config.Digest) (Sender, error) {
	switch cfg.Provider {
	case "", "smtp":
		return NewSMTPSender(cfg.SMTP), nil
	case "resend":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("resend: %w", errMissingAPIKey)
		}
		return NewResendSender(cfg.APIKey), nil
	case "sendgrid":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("sendgrid: %w", errMissingAPIKey)
		}
		return NewSendGridSender(cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown email provider: %s (smtp, resend or sendgrid)", cfg.Provider)
	}
}

// ValidateEmail checks for injection characters and RFC 5322 compliance
func ValidateEmail(email string) error {
	if strings.ContainsAny(email, "\r\n,;") {
		return fmt.Errorf("email contains invalid characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	return nil
}

func validateMessage(msg Message) error {
	if err := ValidateEmail(msg.From); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := ValidateEmail(msg.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	if strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("subject contains invalid characters")
	}
	return nil
}

func failed(err error) Result {
	return Result{Success: false, Error: err}
}
