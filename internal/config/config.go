package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultSummarySentences = 3
	defaultKeywordLimit     = 10
	defaultWorkers          = 4
	defaultInboxDays        = 7
	defaultMaxMessages      = 200
	defaultMinPriority      = 7.0
	defaultServerPort       = 8080
)

// Environment variables that override secrets from the config file.
const (
	EnvInboxPassword = "INBOXLENS_INBOX_PASSWORD"
	EnvDigestAPIKey  = "INBOXLENS_DIGEST_API_KEY"
)

func checkFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %04o; should be 0600", path, perm)
	}
	return nil
}

type Config struct {
	Analysis Analysis    `yaml:"analysis"`
	Inbox    InboxConfig `yaml:"inbox,omitempty"`
	Digest   Digest      `yaml:"digest,omitempty"`
	Server   Server      `yaml:"server,omitempty"`
	Log      Log         `yaml:"log,omitempty"`
}

// Analysis tunes the content analysis pipeline
type Analysis struct {
	SummarySentences int    `yaml:"summary_sentences"`     // Sentence budget for summaries
	KeywordLimit     int    `yaml:"keyword_limit"`         // Max keywords per message
	Entities         *bool  `yaml:"entities,omitempty"`    // Load the NER model (default: true)
	Timezone         string `yaml:"timezone,omitempty"`    // IANA zone for deadlines (default: Local)
	LexiconDir       string `yaml:"lexicon_dir,omitempty"` // Extra sentiment lexicon files
	Workers          int    `yaml:"workers"`               // Concurrent analyses during sync
}

// EntitiesEnabled reports whether entity recognition should be loaded.
func (a Analysis) EntitiesEnabled() bool {
	return a.Entities == nil || *a.Entities
}

// Location resolves Timezone, falling back to the local zone.
func (a Analysis) Location() *time.Location {
	if a.Timezone == "" || a.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// InboxConfig holds IMAP settings for the mailbox being analyzed
type InboxConfig struct {
	Provider      string `yaml:"provider"`                 // "gmail", "outlook", "imap"
	Server        string `yaml:"server"`                   // e.g., "imap.gmail.com"
	Port          int    `yaml:"port"`                     // e.g., 993
	Email         string `yaml:"email"`                    // Email address to read
	Password      string `yaml:"password"`                 // App password (not main password)
	Folder        string `yaml:"folder"`                   // Folder to read (default: "INBOX")
	Days          int    `yaml:"days"`                     // How far back a sync looks
	MaxMessages   int    `yaml:"max_messages"`             // Cap on messages fetched per sync
	SkipAutomated *bool  `yaml:"skip_automated,omitempty"` // Skip bounces and auto-replies (default: true)
}

// SkipAutomatedMail reports whether bounces and auto-replies are skipped.
func (i InboxConfig) SkipAutomatedMail() bool {
	return i.SkipAutomated == nil || *i.SkipAutomated
}

// Digest configures the daily digest delivery
type Digest struct {
	Provider    string     `yaml:"provider"` // "smtp", "resend", "sendgrid"
	From        string     `yaml:"from"`
	To          string     `yaml:"to"`
	APIKey      string     `yaml:"api_key,omitempty"`
	SMTP        SMTPConfig `yaml:"smtp,omitempty"`
	MinPriority float64    `yaml:"min_priority"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	UseTLS   bool   `yaml:"use_tls"`
}

type Server struct {
	Port    int   `yaml:"port"`
	Metrics *bool `yaml:"metrics,omitempty"`
}

// MetricsEnabled reports whether /metrics is exposed.
func (s Server) MetricsEnabled() bool {
	return s.Metrics == nil || *s.Metrics
}

type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // auto, console, json
}

// DefaultDir is the data directory shared by the config file and the database.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".inboxlens"
	}
	return filepath.Join(home, ".inboxlens")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	if err := checkFilePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: %v\n", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Analysis.SummarySentences <= 0 {
		c.Analysis.SummarySentences = defaultSummarySentences
	}
	if c.Analysis.KeywordLimit <= 0 {
		c.Analysis.KeywordLimit = defaultKeywordLimit
	}
	if c.Analysis.Workers <= 0 {
		c.Analysis.Workers = defaultWorkers
	}
	if c.Analysis.Timezone == "" {
		c.Analysis.Timezone = "Local"
	}

	// Set inbox defaults
	if c.Inbox.Folder == "" {
		c.Inbox.Folder = "INBOX"
	}
	if c.Inbox.Days <= 0 {
		c.Inbox.Days = defaultInboxDays
	}
	if c.Inbox.MaxMessages <= 0 {
		c.Inbox.MaxMessages = defaultMaxMessages
	}
	if c.Inbox.Provider == "gmail" && c.Inbox.Server == "" {
		c.Inbox.Server = "imap.gmail.com"
		c.Inbox.Port = 993
	}
	if c.Inbox.Provider == "outlook" && c.Inbox.Server == "" {
		c.Inbox.Server = "outlook.office365.com"
		c.Inbox.Port = 993
	}

	if c.Digest.MinPriority == 0 {
		c.Digest.MinPriority = defaultMinPriority
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultServerPort
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "auto"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvInboxPassword); v != "" {
		c.Inbox.Password = v
	}
	if v := os.Getenv(EnvDigestAPIKey); v != "" {
		c.Digest.APIKey = v
	}
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) Validate() error {
	if c.Analysis.SummarySentences < 1 {
		return fmt.Errorf("analysis: summary_sentences must be at least 1")
	}
	if c.Analysis.KeywordLimit < 1 {
		return fmt.Errorf("analysis: keyword_limit must be at least 1")
	}
	if c.Analysis.Timezone != "Local" {
		if _, err := time.LoadLocation(c.Analysis.Timezone); err != nil {
			return fmt.Errorf("analysis: unknown timezone %q", c.Analysis.Timezone)
		}
	}
	if c.Log.Format != "auto" && c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}
	return nil
}

// ValidateInbox validates inbox configuration (only called when syncing)
func (c *Config) ValidateInbox() error {
	if c.Inbox.Email == "" {
		return fmt.Errorf("inbox: email address is required")
	}
	if c.Inbox.Password == "" {
		return fmt.Errorf("inbox: password (app password) is required")
	}
	if c.Inbox.Server == "" {
		return fmt.Errorf("inbox: IMAP server is required")
	}
	if c.Inbox.Port == 0 {
		return fmt.Errorf("inbox: IMAP port is required")
	}
	return nil
}

// ValidateDigest validates digest delivery (only called when sending)
func (c *Config) ValidateDigest() error {
	if c.Digest.From == "" {
		return fmt.Errorf("digest: from address is required")
	}
	if c.Digest.To == "" {
		return fmt.Errorf("digest: to address is required")
	}

	switch c.Digest.Provider {
	case "smtp":
		if c.Digest.SMTP.Host == "" {
			return fmt.Errorf("digest.smtp: host is required")
		}
		if c.Digest.SMTP.Port == 0 {
			return fmt.Errorf("digest.smtp: port is required")
		}
	case "resend", "sendgrid":
		if c.Digest.APIKey == "" {
			return fmt.Errorf("digest: api_key is required for %s", c.Digest.Provider)
		}
	case "":
		return fmt.Errorf("digest: provider is required")
	default:
		return fmt.Errorf("digest: unknown provider %q", c.Digest.Provider)
	}
	return nil
}
