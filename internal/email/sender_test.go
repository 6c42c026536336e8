package email

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxlens/inboxlens/internal/config"
)

func TestNewSender(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Digest
		expected string
		wantErr  bool
	}{
		{"default is smtp", config.Digest{}, "smtp", false},
		{"smtp", config.Digest{Provider: "smtp"}, "smtp", false},
		{"resend", config.Digest{Provider: "resend", APIKey: "re_123"}, "resend", false},
		{"sendgrid", config.Digest{Provider: "sendgrid", APIKey: "SG.x"}, "sendgrid", false},
		{"resend without key", config.Digest{Provider: "resend"}, "", true},
		{"sendgrid without key", config.Digest{Provider: "sendgrid"}, "", true},
		{"unknown", config.Digest{Provider: "pigeon"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSender(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s.Name())
		})
	}
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"valid", Message{From: "me@example.com", To: "you@example.com", Subject: "Digest"}, false},
		{"bad sender", Message{From: "nope", To: "you@example.com"}, true},
		{"recipient list", Message{From: "me@example.com", To: "a@example.com,b@example.com"}, true},
		{"header injection", Message{From: "me@example.com", To: "you@example.com", Subject: "hi\r\nBcc: x@example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateMessage(tt.msg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSendersRejectInvalidMessages(t *testing.T) {
	bad := Message{From: "nope", To: "you@example.com"}
	for _, s := range []Sender{
		NewSMTPSender(config.SMTPConfig{Host: "127.0.0.1", Port: 1}),
		NewResendSender("re_123"),
		NewSendGridSender("SG.x"),
	} {
		t.Run(s.Name(), func(t *testing.T) {
			res := s.Send(context.Background(), bad)
			assert.False(t, res.Success)
			assert.Error(t, res.Error)
		})
	}
}

func TestBuildMessage(t *testing.T) {
	msg := Message{From: "me@example.com", To: "you@example.com", Subject: "Digest", Body: "line one\nline two"}
	raw := string(buildMessage(msg, "id@example.com", time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC)))

	assert.Contains(t, raw, "Message-Id: <id@example.com>\r\n")
	assert.Contains(t, raw, "Date: Wed, 11 Mar 2026 07:00:00 +0000\r\n")
	assert.Contains(t, raw, "Auto-Submitted: auto-generated\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nline one\r\nline two"))
}

func TestMessageID(t *testing.T) {
	assert.True(t, strings.HasSuffix(messageID("me@example.com"), "@example.com"))
	assert.True(t, strings.HasSuffix(messageID("nobody"), "@localhost"))
}

func TestNewSendGridMail(t *testing.T) {
	m := newSendGridMail(Message{From: "me@example.com", To: "you@example.com", Subject: "Digest", Body: "hello"})
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "hello", m.Content[0].Value)
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "you@example.com", m.Personalizations[0].To[0].Address)
}

// fakeSMTP accepts one session and returns the DATA payload.
func fakeSMTP(t *testing.T) (addr string, data <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
		reply("220 localhost ESMTP")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 localhost")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				reply("250 OK")
			case cmd == "DATA":
				reply("354 go ahead")
				var body strings.Builder
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					body.WriteString(l)
				}
				out <- body.String()
				reply("250 queued")
			case cmd == "QUIT":
				reply("221 bye")
				return
			default:
				reply("500 unknown")
			}
		}
	}()
	return ln.Addr().String(), out
}

func TestSMTPSend(t *testing.T) {
	addr, data := fakeSMTP(t)
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	p, err := net.LookupPort("tcp", port)
	require.NoError(t, err)

	s := NewSMTPSender(config.SMTPConfig{Host: host, Port: p})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res := s.Send(ctx, Message{From: "me@example.com", To: "you@example.com", Subject: "Digest", Body: "hello"})
	require.NoError(t, res.Error)
	assert.True(t, res.Success)
	assert.True(t, strings.HasSuffix(res.MessageID, "@example.com"))

	payload := <-data
	assert.Contains(t, payload, "Subject: Digest\r\n")
	assert.Contains(t, payload, "hello")
}

func TestSMTPSendRefusesPlaintextAuth(t *testing.T) {
	s := NewSMTPSender(config.SMTPConfig{Host: "127.0.0.1", Port: 25, Username: "me"})
	res := s.Send(context.Background(), Message{From: "me@example.com", To: "you@example.com"})
	assert.False(t, res.Success)
	assert.EqualError(t, res.Error, "SMTP auth requires TLS")
}
