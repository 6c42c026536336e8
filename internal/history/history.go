// Package history persists analyzed messages and the entities, keywords,
// action items and contacts extracted from them.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by update operations whose target row is missing.
var ErrNotFound = errors.New("not found")

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps PRAGMAs in effect.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	query := `
	PRAGMA foreign_keys = ON;

	CREATE TABLE IF NOT EXISTS emails (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id TEXT NOT NULL UNIQUE,
		subject TEXT,
		sender TEXT,
		sender_email TEXT,
		received_at DATETIME,
		raw_content TEXT,
		clean_content TEXT,
		summary TEXT,
		content_type TEXT,
		is_important INTEGER DEFAULT 0,
		is_starred INTEGER DEFAULT 0,
		category TEXT,
		sentiment TEXT,
		sentiment_score REAL,
		priority_score REAL,
		needs_followup INTEGER DEFAULT 0,
		followup_date DATETIME,
		analyzed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_emails_received_at ON emails(received_at);
	CREATE INDEX IF NOT EXISTS idx_emails_category ON emails(category);
	CREATE INDEX IF NOT EXISTS idx_emails_sentiment ON emails(sentiment);
	CREATE INDEX IF NOT EXISTS idx_emails_followup ON emails(needs_followup, followup_date);

	CREATE TABLE IF NOT EXISTS entities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		type TEXT NOT NULL,
		UNIQUE(text, type)
	);

	CREATE TABLE IF NOT EXISTS keywords (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		word TEXT NOT NULL UNIQUE,
		score REAL
	);

	CREATE TABLE IF NOT EXISTS action_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email_id INTEGER NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		deadline DATETIME,
		completed INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_action_items_email ON action_items(email_id);
	CREATE INDEX IF NOT EXISTS idx_action_items_completed ON action_items(completed);

	CREATE TABLE IF NOT EXISTS contacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT,
		email TEXT NOT NULL UNIQUE,
		phone TEXT,
		company TEXT,
		position TEXT
	);

	CREATE TABLE IF NOT EXISTS email_entities (
		email_id INTEGER NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
		entity_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
		PRIMARY KEY (email_id, entity_id)
	);

	CREATE TABLE IF NOT EXISTS email_keywords (
		email_id INTEGER NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
		keyword_id INTEGER NOT NULL REFERENCES keywords(id) ON DELETE CASCADE,
		PRIMARY KEY (email_id, keyword_id)
	);

	CREATE TABLE IF NOT EXISTS email_contacts (
		email_id INTEGER NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
		contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
		PRIMARY KEY (email_id, contact_id)
	);
	`

	_, err := s.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "inboxlens.db"
	}
	return filepath.Join(home, ".inboxlens", "inboxlens.db")
}

// nullTime stores times in UTC so DATETIME columns sort as text.
func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
