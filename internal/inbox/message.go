package inbox

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Email is a retrieved message reduced to what the analyzer and the store
// need.
type Email struct {
	UID           uint32 // IMAP UID, zero for messages read from files
	MessageID     string
	From          string
	FromName      string // Sender display name (e.g., "Mail Delivery System")
	FromDomain    string
	Subject       string
	Body          string
	HTMLBody      string
	ReceivedAt    time.Time
	Starred       bool
	AutoSubmitted string // Auto-Submitted header value, if any
}

// ParseMessage reads an RFC 5322 message. The first text/plain and
// text/html inline parts become Body and HTMLBody. A missing Message-Id is
// replaced by a stable hash of subject and body.
func ParseMessage(r io.Reader) (*Email, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	email := &Email{AutoSubmitted: strings.TrimSpace(mr.Header.Get("Auto-Submitted"))}
	email.Subject, _ = mr.Header.Subject()
	email.ReceivedAt, _ = mr.Header.Date()
	if id, err := mr.Header.MessageID(); err == nil {
		email.MessageID = id
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		email.setSender(from[0].Name, from[0].Address)
	}

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			// Keep whatever parts were readable.
			break
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		body, err := io.ReadAll(p.Body)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(ct, "text/plain") && email.Body == "":
			email.Body = string(body)
		case strings.HasPrefix(ct, "text/html") && email.HTMLBody == "":
			email.HTMLBody = string(body)
		}
	}

	if email.MessageID == "" {
		email.MessageID = SyntheticMessageID(email.Subject, email.AnalysisBody())
	}
	return email, nil
}

func (e *Email) setSender(name, address string) {
	e.FromName = name
	e.From = address
	if _, domain, ok := strings.Cut(address, "@"); ok {
		e.FromDomain = strings.ToLower(domain)
	}
}

// AnalysisBody is the text handed to the analyzer: the plain part when it
// has content, otherwise the HTML part reduced to text.
func (e *Email) AnalysisBody() string {
	if strings.TrimSpace(e.Body) != "" {
		return e.Body
	}
	if e.HTMLBody != "" {
		return PrepareHTML(e.HTMLBody)
	}
	return ""
}

// SyntheticMessageID derives a stable id for messages that carry none.
func SyntheticMessageID(subject, body string) string {
	sum := sha256.Sum256([]byte(subject + "\x00" + body))
	return hex.EncodeToString(sum[:12]) + "@inboxlens.local"
}

// normalizeMessageID strips the angle brackets IMAP envelopes keep.
func normalizeMessageID(id string) string {
	return strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(id), "<"), ">")
}
