package analysis

import "time"

// ContentType is the structural shape of a message body.
type ContentType string

const (
	ContentReceipt ContentType = "receipt"
	ContentList    ContentType = "list"
	ContentGeneral ContentType = "general"
)

// EntityType is a named-entity label kept by the extractor.
type EntityType string

const (
	EntityPerson  EntityType = "PERSON"
	EntityOrg     EntityType = "ORG"
	EntityGPE     EntityType = "GPE"
	EntityDate    EntityType = "DATE"
	EntityTime    EntityType = "TIME"
	EntityMoney   EntityType = "MONEY"
	EntityProduct EntityType = "PRODUCT"
	EntityLoc     EntityType = "LOC"
)

var keptEntityTypes = map[EntityType]bool{
	EntityPerson:  true,
	EntityOrg:     true,
	EntityGPE:     true,
	EntityDate:    true,
	EntityTime:    true,
	EntityMoney:   true,
	EntityProduct: true,
	EntityLoc:     true,
}

// Sentiment labels.
const (
	SentimentPositive = "Positive"
	SentimentNegative = "Negative"
	SentimentNeutral  = "Neutral"
	SentimentUrgent   = "Urgent"
)

// CategoryOther is returned when no category scores high enough.
const CategoryOther = "Other"

type Entity struct {
	Text string     `json:"text"`
	Type EntityType `json:"type"`
}

type Keyword struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

type ActionItem struct {
	Text     string     `json:"text"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

type Contact struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`
}

// Message is one (subject, body) pair handed to the pipeline.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Result is the complete annotation of one message.
type Result struct {
	CleanContent   string       `json:"clean_content"`
	ContentType    ContentType  `json:"content_type"`
	Summary        string       `json:"summary"`
	Entities       []Entity     `json:"entities"`
	Keywords       []Keyword    `json:"keywords"`
	IsImportant    bool         `json:"is_important"`
	Category       string       `json:"category"`
	Sentiment      string       `json:"sentiment"`
	SentimentScore float64      `json:"sentiment_score"`
	ActionItems    []ActionItem `json:"action_items"`
	NeedsFollowup  bool         `json:"needs_followup"`
	FollowupDate   *time.Time   `json:"followup_date,omitempty"`
	Contacts       []Contact    `json:"contacts"`
	PriorityScore  float64      `json:"priority_score"`
}
