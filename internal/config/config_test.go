package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "inbox:\n  provider: gmail\n  email: me@example.com\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Analysis.SummarySentences)
	assert.Equal(t, 10, cfg.Analysis.KeywordLimit)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.True(t, cfg.Analysis.EntitiesEnabled())
	assert.Equal(t, "imap.gmail.com", cfg.Inbox.Server)
	assert.Equal(t, 993, cfg.Inbox.Port)
	assert.Equal(t, "INBOX", cfg.Inbox.Folder)
	assert.Equal(t, 7, cfg.Inbox.Days)
	assert.True(t, cfg.Inbox.SkipAutomatedMail())
	assert.Equal(t, 7.0, cfg.Digest.MinPriority)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.MetricsEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadExplicitFalse(t *testing.T) {
	path := writeConfig(t, "analysis:\n  entities: false\ninbox:\n  skip_automated: false\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Analysis.EntitiesEnabled())
	assert.False(t, cfg.Inbox.SkipAutomatedMail())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvInboxPassword, "from-env")
	t.Setenv(EnvDigestAPIKey, "key-env")
	path := writeConfig(t, "inbox:\n  password: from-file\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Inbox.Password)
	assert.Equal(t, "key-env", cfg.Digest.APIKey)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Inbox.Email = "me@example.com"

	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", loaded.Inbox.Email)
}

func TestValidateDigest(t *testing.T) {
	tests := []struct {
		name    string
		digest  Digest
		wantErr string
	}{
		{"missing from", Digest{Provider: "smtp", To: "a@b.co"}, "digest: from address is required"},
		{"missing provider", Digest{From: "a@b.co", To: "a@b.co"}, "digest: provider is required"},
		{"smtp host", Digest{Provider: "smtp", From: "a@b.co", To: "a@b.co"}, "digest.smtp: host is required"},
		{"resend key", Digest{Provider: "resend", From: "a@b.co", To: "a@b.co"}, "digest: api_key is required for resend"},
		{"unknown", Digest{Provider: "pigeon", From: "a@b.co", To: "a@b.co"}, `digest: unknown provider "pigeon"`},
		{"ok", Digest{Provider: "sendgrid", From: "a@b.co", To: "a@b.co", APIKey: "k"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Digest: tt.digest}
			err := cfg.ValidateDigest()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestValidateRejectsBadTimezone(t *testing.T) {
	cfg := Default()
	cfg.Analysis.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}
