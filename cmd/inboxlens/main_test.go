package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxlens/inboxlens/internal/config"
)

const rawMessage = "From: Ann Lee <ann@example.com>\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Budget review\r\n" +
	"Message-Id: <budget-1@example.com>\r\n" +
	"Date: Wed, 11 Mar 2026 09:00:00 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please send the budget by Friday.\r\n"

func TestLooksLikeMessage(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		want bool
	}{
		{"eml extension", "mail.EML", "just text", true},
		{"header block", "stdin", rawMessage, true},
		{"plain text", "note.txt", "Hi team,\n\nLunch tomorrow?", false},
		{"colon without header shape", "note.txt", "Note: call Bob\nthen lunch", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, looksLikeMessage(tt.file, []byte(tt.data)))
		})
	}
}

func TestReadInputMessage(t *testing.T) {
	em, err := readInput("budget.eml", strings.NewReader(rawMessage), "")
	require.NoError(t, err)
	assert.Equal(t, "Budget review", em.Subject)
	assert.Equal(t, "budget-1@example.com", em.MessageID)
	assert.Equal(t, "ann@example.com", em.From)
	assert.Contains(t, em.Body, "budget by Friday")
}

func TestReadInputPlainText(t *testing.T) {
	em, err := readInput("note.txt", strings.NewReader("Please review the draft."), "Draft")
	require.NoError(t, err)
	assert.Equal(t, "Draft", em.Subject)
	assert.Equal(t, "Please review the draft.", em.Body)
	assert.True(t, strings.HasSuffix(em.MessageID, "@inboxlens.local"))

	again, err := readInput("note.txt", strings.NewReader("Please review the draft."), "Draft")
	require.NoError(t, err)
	assert.Equal(t, em.MessageID, again.MessageID)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(config.Log{Level: "warn", Format: "auto"}, &buf)

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Str("message_id", "m@x").Msg("shown")
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"message_id":"m@x"`)
}

func TestNewLoggerBadLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(config.Log{Level: "loud", Format: "json"}, &buf)
	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "héllo w...", truncateString("héllo wörld!", 10))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "-", formatDate(nil))
	d := time.Date(2026, 3, 13, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-13", formatDate(&d))
}
