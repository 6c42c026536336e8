package history

import (
	"database/sql"
	"fmt"
	"time"
)

type Entity struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"`
}

type Keyword struct {
	ID    int64   `json:"id"`
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// ActionItem is a stored action item with the subject of its email.
type ActionItem struct {
	ID           int64      `json:"id"`
	EmailID      int64      `json:"email_id"`
	Text         string     `json:"text"`
	Deadline     *time.Time `json:"deadline"`
	Completed    bool       `json:"completed"`
	EmailSubject string     `json:"email_subject"`
}

type Contact struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
	Position string `json:"position"`
}

// PriorityBuckets counts emails by priority: low <= 3 < medium <= 7 < high.
type PriorityBuckets struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

type Stats struct {
	Total           int             `json:"total"`
	ByCategory      map[string]int  `json:"by_category"`
	BySentiment     map[string]int  `json:"by_sentiment"`
	Priority        PriorityBuckets `json:"priority"`
	Important       int             `json:"important"`
	Followups       int             `json:"followups"`
	OpenActionItems int             `json:"open_action_items"`
}

// ListEntities returns each distinct (text, type) entity once.
func (s *Store) ListEntities(limit, offset int) ([]Entity, error) {
	return s.queryEntities(`SELECT id, text, type FROM entities ORDER BY type, text LIMIT ? OFFSET ?`,
		defaultLimit(limit), max(0, offset))
}

// ListKeywords returns each word once with its latest score, highest first.
func (s *Store) ListKeywords(limit, offset int) ([]Keyword, error) {
	return s.queryKeywords(`SELECT id, word, score FROM keywords ORDER BY score DESC, word LIMIT ? OFFSET ?`,
		defaultLimit(limit), max(0, offset))
}

// ListActionItems filters by completion when completed is non-nil. Items
// with a deadline come first, earliest deadline first.
func (s *Store) ListActionItems(completed *bool, limit, offset int) ([]ActionItem, error) {
	query := `SELECT a.id, a.email_id, a.text, a.deadline, a.completed, e.subject
		FROM action_items a JOIN emails e ON e.id = a.email_id`
	var args []any
	if completed != nil {
		query += ` WHERE a.completed = ?`
		args = append(args, *completed)
	}
	query += ` ORDER BY a.deadline IS NULL, a.deadline ASC, a.id ASC LIMIT ? OFFSET ?`
	args = append(args, defaultLimit(limit), max(0, offset))
	return s.queryActionItems(query, args...)
}

// SetActionItemCompleted returns ErrNotFound when no item has the id.
func (s *Store) SetActionItemCompleted(id int64, completed bool) error {
	result, err := s.db.Exec(`UPDATE action_items SET completed = ? WHERE id = ?`, completed, id)
	if err != nil {
		return fmt.Errorf("failed to update action item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("action item %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListContacts returns contacts sorted by name.
func (s *Store) ListContacts(limit, offset int) ([]Contact, error) {
	return s.queryContacts(`SELECT id, name, email, phone, company, position FROM contacts
		ORDER BY name COLLATE NOCASE, email LIMIT ? OFFSET ?`, defaultLimit(limit), max(0, offset))
}

func (s *Store) Stats() (*Stats, error) {
	st := &Stats{
		ByCategory:  make(map[string]int),
		BySentiment: make(map[string]int),
	}

	var low, medium, high, important, followups sql.NullInt64
	err := s.db.QueryRow(`SELECT COUNT(*),
		SUM(CASE WHEN priority_score <= 3 THEN 1 ELSE 0 END),
		SUM(CASE WHEN priority_score > 3 AND priority_score <= 7 THEN 1 ELSE 0 END),
		SUM(CASE WHEN priority_score > 7 THEN 1 ELSE 0 END),
		SUM(is_important),
		SUM(needs_followup)
		FROM emails`).Scan(&st.Total, &low, &medium, &high, &important, &followups)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	st.Priority = PriorityBuckets{Low: int(low.Int64), Medium: int(medium.Int64), High: int(high.Int64)}
	st.Important = int(important.Int64)
	st.Followups = int(followups.Int64)

	if err := s.countBy(`SELECT category, COUNT(*) FROM emails GROUP BY category`, st.ByCategory); err != nil {
		return nil, err
	}
	if err := s.countBy(`SELECT sentiment, COUNT(*) FROM emails GROUP BY sentiment`, st.BySentiment); err != nil {
		return nil, err
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM action_items WHERE completed = 0`).Scan(&st.OpenActionItems); err != nil {
		return nil, fmt.Errorf("failed to count action items: %w", err)
	}
	return st, nil
}

func (s *Store) countBy(query string, into map[string]int) error {
	rows, err := s.db.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key sql.NullString
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan count: %w", err)
		}
		into[key.String] = count
	}
	return rows.Err()
}

func (s *Store) queryEntities(query string, args ...any) ([]Entity, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	entities := []Entity{}
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Text, &e.Type); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (s *Store) queryKeywords(query string, args ...any) ([]Keyword, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query keywords: %w", err)
	}
	defer rows.Close()

	keywords := []Keyword{}
	for rows.Next() {
		var k Keyword
		var score sql.NullFloat64
		if err := rows.Scan(&k.ID, &k.Word, &score); err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		k.Score = score.Float64
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

func (s *Store) queryActionItems(query string, args ...any) ([]ActionItem, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query action items: %w", err)
	}
	defer rows.Close()

	items := []ActionItem{}
	for rows.Next() {
		var a ActionItem
		var deadline sql.NullTime
		var subject sql.NullString
		if err := rows.Scan(&a.ID, &a.EmailID, &a.Text, &deadline, &a.Completed, &subject); err != nil {
			return nil, fmt.Errorf("failed to scan action item: %w", err)
		}
		a.Deadline = timePtr(deadline)
		a.EmailSubject = subject.String
		items = append(items, a)
	}
	return items, rows.Err()
}

func (s *Store) queryContacts(query string, args ...any) ([]Contact, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	contacts := []Contact{}
	for rows.Next() {
		var c Contact
		var name, phone, company, position sql.NullString
		if err := rows.Scan(&c.ID, &name, &c.Email, &phone, &company, &position); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		c.Name = name.String
		c.Phone = phone.String
		c.Company = company.String
		c.Position = position.String
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
