package history

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/inboxlens/inboxlens/internal/analysis"
)

// StoredMessage is the envelope of a message as retrieved from the mailbox.
type StoredMessage struct {
	MessageID   string
	Subject     string
	Sender      string
	SenderEmail string
	ReceivedAt  time.Time
	RawContent  string
	IsStarred   bool
}

// Email is an analyzed message row.
type Email struct {
	ID             int64      `json:"id"`
	MessageID      string     `json:"message_id"`
	Subject        string     `json:"subject"`
	Sender         string     `json:"sender"`
	SenderEmail    string     `json:"sender_email"`
	ReceivedAt     time.Time  `json:"received_at"`
	RawContent     string     `json:"-"`
	CleanContent   string     `json:"clean_content"`
	Summary        string     `json:"summary"`
	ContentType    string     `json:"content_type"`
	IsImportant    bool       `json:"is_important"`
	IsStarred      bool       `json:"is_starred"`
	Category       string     `json:"category"`
	Sentiment      string     `json:"sentiment"`
	SentimentScore float64    `json:"sentiment_score"`
	PriorityScore  float64    `json:"priority_score"`
	NeedsFollowup  bool       `json:"needs_followup"`
	FollowupDate   *time.Time `json:"followup_date"`
	AnalyzedAt     time.Time  `json:"analyzed_at"`
}

// EmailDetail is an email with everything extracted from it.
type EmailDetail struct {
	Email
	Entities    []Entity     `json:"entities"`
	Keywords    []Keyword    `json:"keywords"`
	ActionItems []ActionItem `json:"action_items"`
	Contacts    []Contact    `json:"contacts"`
}

// EmailFilter narrows ListEmails. Zero values do not filter.
type EmailFilter struct {
	Category      string
	Sentiment     string
	Important     bool
	Starred       bool
	NeedsFollowup bool
	Limit         int
	Offset        int
}

const emailColumns = `id, message_id, subject, sender, sender_email, received_at, raw_content,
	clean_content, summary, content_type, is_important, is_starred, category, sentiment,
	sentiment_score, priority_score, needs_followup, followup_date, analyzed_at`

// scanEmail handles nullable columns when scanning a row
func scanEmail(scanner interface{ Scan(...any) error }) (*Email, error) {
	var e Email
	var subject, sender, senderEmail, raw, clean, summary, contentType, category, sentiment sql.NullString
	var receivedAt, followupDate, analyzedAt sql.NullTime
	var sentimentScore, priorityScore sql.NullFloat64

	err := scanner.Scan(&e.ID, &e.MessageID, &subject, &sender, &senderEmail, &receivedAt, &raw,
		&clean, &summary, &contentType, &e.IsImportant, &e.IsStarred, &category, &sentiment,
		&sentimentScore, &priorityScore, &e.NeedsFollowup, &followupDate, &analyzedAt)
	if err != nil {
		return nil, err
	}

	e.Subject = subject.String
	e.Sender = sender.String
	e.SenderEmail = senderEmail.String
	e.ReceivedAt = receivedAt.Time
	e.RawContent = raw.String
	e.CleanContent = clean.String
	e.Summary = summary.String
	e.ContentType = contentType.String
	e.Category = category.String
	e.Sentiment = sentiment.String
	e.SentimentScore = sentimentScore.Float64
	e.PriorityScore = priorityScore.Float64
	e.FollowupDate = timePtr(followupDate)
	e.AnalyzedAt = analyzedAt.Time
	return &e, nil
}

// SaveAnalysis stores a message and its analysis in one transaction and
// returns the email id. A message id that is already stored is not
// re-analyzed; only its starred flag is refreshed.
func (s *Store) SaveAnalysis(msg StoredMessage, res analysis.Result) (int64, error) {
	if msg.MessageID == "" {
		return 0, errors.New("message id is required")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRow(`SELECT id FROM emails WHERE message_id = ?`, msg.MessageID).Scan(&existing)
	switch {
	case err == nil:
		if _, err := tx.Exec(`UPDATE emails SET is_starred = ? WHERE id = ?`, msg.IsStarred, existing); err != nil {
			return 0, fmt.Errorf("failed to update starred flag: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("failed to commit: %w", err)
		}
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("failed to look up message: %w", err)
	}

	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}
	analyzedAt := s.now()

	result, err := tx.Exec(`
	INSERT INTO emails (message_id, subject, sender, sender_email, received_at, raw_content,
		clean_content, summary, content_type, is_important, is_starred, category, sentiment,
		sentiment_score, priority_score, needs_followup, followup_date, analyzed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.MessageID, msg.Subject, msg.Sender, msg.SenderEmail, nullTime(&receivedAt), msg.RawContent,
		res.CleanContent, res.Summary, string(res.ContentType), res.IsImportant, msg.IsStarred,
		res.Category, res.Sentiment, res.SentimentScore, res.PriorityScore, res.NeedsFollowup,
		nullTime(res.FollowupDate), nullTime(&analyzedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert email: %w", err)
	}
	emailID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	for _, ent := range lo.Uniq(res.Entities) {
		if err := linkEntity(tx, emailID, ent); err != nil {
			return 0, err
		}
	}
	for _, kw := range res.Keywords {
		if err := linkKeyword(tx, emailID, kw); err != nil {
			return 0, err
		}
	}
	for _, item := range res.ActionItems {
		if _, err := tx.Exec(`INSERT INTO action_items (email_id, text, deadline, completed) VALUES (?, ?, ?, 0)`,
			emailID, item.Text, nullTime(item.Deadline)); err != nil {
			return 0, fmt.Errorf("failed to insert action item: %w", err)
		}
	}
	for _, c := range res.Contacts {
		if err := linkContact(tx, emailID, c); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return emailID, nil
}

func linkEntity(tx *sql.Tx, emailID int64, ent analysis.Entity) error {
	_, err := tx.Exec(`INSERT INTO entities (text, type) VALUES (?, ?) ON CONFLICT(text, type) DO NOTHING`,
		ent.Text, string(ent.Type))
	if err != nil {
		return fmt.Errorf("failed to upsert entity: %w", err)
	}
	var id int64
	if err := tx.QueryRow(`SELECT id FROM entities WHERE text = ? AND type = ?`, ent.Text, string(ent.Type)).Scan(&id); err != nil {
		return fmt.Errorf("failed to look up entity: %w", err)
	}
	if _, err := tx.Exec(`INSERT OR IGNORE INTO email_entities (email_id, entity_id) VALUES (?, ?)`, emailID, id); err != nil {
		return fmt.Errorf("failed to link entity: %w", err)
	}
	return nil
}

func linkKeyword(tx *sql.Tx, emailID int64, kw analysis.Keyword) error {
	_, err := tx.Exec(`INSERT INTO keywords (word, score) VALUES (?, ?)
		ON CONFLICT(word) DO UPDATE SET score = excluded.score`, kw.Word, kw.Score)
	if err != nil {
		return fmt.Errorf("failed to upsert keyword: %w", err)
	}
	var id int64
	if err := tx.QueryRow(`SELECT id FROM keywords WHERE word = ?`, kw.Word).Scan(&id); err != nil {
		return fmt.Errorf("failed to look up keyword: %w", err)
	}
	if _, err := tx.Exec(`INSERT OR IGNORE INTO email_keywords (email_id, keyword_id) VALUES (?, ?)`, emailID, id); err != nil {
		return fmt.Errorf("failed to link keyword: %w", err)
	}
	return nil
}

// linkContact fills contact fields that are empty or changed, never
// overwriting a known value with an empty one.
func linkContact(tx *sql.Tx, emailID int64, c analysis.Contact) error {
	_, err := tx.Exec(`
	INSERT INTO contacts (name, email, phone, company, position) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(email) DO UPDATE SET
		name = COALESCE(NULLIF(excluded.name, ''), contacts.name),
		phone = COALESCE(NULLIF(excluded.phone, ''), contacts.phone),
		company = COALESCE(NULLIF(excluded.company, ''), contacts.company),
		position = COALESCE(NULLIF(excluded.position, ''), contacts.position)`,
		c.Name, c.Email, c.Phone, c.Company, c.Position)
	if err != nil {
		return fmt.Errorf("failed to upsert contact: %w", err)
	}
	var id int64
	if err := tx.QueryRow(`SELECT id FROM contacts WHERE email = ?`, c.Email).Scan(&id); err != nil {
		return fmt.Errorf("failed to look up contact: %w", err)
	}
	if _, err := tx.Exec(`INSERT OR IGNORE INTO email_contacts (email_id, contact_id) VALUES (?, ?)`, emailID, id); err != nil {
		return fmt.Errorf("failed to link contact: %w", err)
	}
	return nil
}

// GetEmail returns nil when no email has the id.
func (s *Store) GetEmail(id int64) (*Email, error) {
	e, err := scanEmail(s.db.QueryRow(`SELECT `+emailColumns+` FROM emails WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query email: %w", err)
	}
	return e, nil
}

// FindByMessageID returns nil when the message has not been stored.
func (s *Store) FindByMessageID(messageID string) (*Email, error) {
	e, err := scanEmail(s.db.QueryRow(`SELECT `+emailColumns+` FROM emails WHERE message_id = ?`, messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query email: %w", err)
	}
	return e, nil
}

// KnownMessageIDs returns the subset of ids that are already stored.
func (s *Store) KnownMessageIDs(ids []string) (map[string]bool, error) {
	known := make(map[string]bool)
	for _, chunk := range lo.Chunk(lo.Uniq(ids), 500) {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := lo.Map(chunk, func(id string, _ int) any { return id })

		rows, err := s.db.Query(`SELECT message_id FROM emails WHERE message_id IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query message ids: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan message id: %w", err)
			}
			known[id] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return known, nil
}

// ListEmails returns emails newest first, or by follow-up date when the
// filter asks for follow-ups.
func (s *Store) ListEmails(f EmailFilter) ([]Email, error) {
	var where []string
	var args []any

	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Sentiment != "" {
		where = append(where, "sentiment = ?")
		args = append(args, f.Sentiment)
	}
	if f.Important {
		where = append(where, "is_important = 1")
	}
	if f.Starred {
		where = append(where, "is_starred = 1")
	}
	if f.NeedsFollowup {
		where = append(where, "needs_followup = 1")
	}

	query := `SELECT ` + emailColumns + ` FROM emails`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if f.NeedsFollowup {
		query += ` ORDER BY followup_date ASC, id ASC`
	} else {
		query += ` ORDER BY received_at DESC, id DESC`
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, defaultLimit(f.Limit), max(0, f.Offset))

	return s.queryEmails(query, args...)
}

// DueFollowups lists emails needing a reply whose follow-up date is on or
// before the given day.
func (s *Store) DueFollowups(on time.Time) ([]Email, error) {
	endOfDay := time.Date(on.Year(), on.Month(), on.Day(), 23, 59, 59, 0, on.Location())
	return s.queryEmails(`SELECT `+emailColumns+` FROM emails
		WHERE needs_followup = 1 AND followup_date IS NOT NULL AND followup_date <= ?
		ORDER BY followup_date ASC, id ASC`, endOfDay.UTC())
}

// HighPriority lists emails scoring at least minScore, highest first.
func (s *Store) HighPriority(minScore float64, limit int) ([]Email, error) {
	return s.queryEmails(`SELECT `+emailColumns+` FROM emails
		WHERE priority_score >= ? ORDER BY priority_score DESC, received_at DESC LIMIT ?`, minScore, defaultLimit(limit))
}

func (s *Store) queryEmails(query string, args ...any) ([]Email, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}
	defer rows.Close()

	emails := []Email{}
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		emails = append(emails, *e)
	}
	return emails, rows.Err()
}

// GetEmailDetail returns nil when no email has the id.
func (s *Store) GetEmailDetail(id int64) (*EmailDetail, error) {
	e, err := s.GetEmail(id)
	if err != nil || e == nil {
		return nil, err
	}
	d := &EmailDetail{Email: *e}

	if d.Entities, err = s.queryEntities(`SELECT en.id, en.text, en.type FROM entities en
		JOIN email_entities ee ON ee.entity_id = en.id WHERE ee.email_id = ? ORDER BY en.id`, id); err != nil {
		return nil, err
	}
	if d.Keywords, err = s.queryKeywords(`SELECT k.id, k.word, k.score FROM keywords k
		JOIN email_keywords ek ON ek.keyword_id = k.id WHERE ek.email_id = ? ORDER BY k.score DESC, k.word`, id); err != nil {
		return nil, err
	}
	if d.ActionItems, err = s.queryActionItems(`SELECT a.id, a.email_id, a.text, a.deadline, a.completed, e.subject
		FROM action_items a JOIN emails e ON e.id = a.email_id WHERE a.email_id = ? ORDER BY a.id`, id); err != nil {
		return nil, err
	}
	if d.Contacts, err = s.queryContacts(`SELECT c.id, c.name, c.email, c.phone, c.company, c.position FROM contacts c
		JOIN email_contacts ec ON ec.contact_id = c.id WHERE ec.email_id = ? ORDER BY c.id`, id); err != nil {
		return nil, err
	}
	return d, nil
}
