// Package analysis turns a raw email (subject, body) into a structured
// annotation: cleaned text, summary, entities, keywords, category, sentiment,
// action items, follow-up need, contacts and a priority score.
//
// An Analyzer is built once and never mutated afterwards, so a single value
// can serve any number of goroutines.
package analysis

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/inboxlens/inboxlens/internal/config"
	"github.com/inboxlens/inboxlens/internal/lexicon"
	"github.com/inboxlens/inboxlens/internal/sentiment"
)

const (
	defaultSummaryBudget = 3
	defaultKeywordLimit  = 10
)

// Analyzer holds the loaded language resources used by every stage.
type Analyzer struct {
	recognizer    Recognizer // nil when unavailable
	sentiment     *sentiment.Analyzer
	lex           *lexicon.Lexicon
	now           func() time.Time
	log           zerolog.Logger
	summaryBudget int
	keywordLimit  int
	observe       func(contentType string, took time.Duration)
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRecognizer sets the named-entity recognizer. Passing nil disables
// entity and contact extraction.
func WithRecognizer(r Recognizer) Option {
	return func(a *Analyzer) { a.recognizer = r }
}

// WithSentiment replaces the polarity scorer.
func WithSentiment(s *sentiment.Analyzer) Option {
	return func(a *Analyzer) { a.sentiment = s }
}

// WithLexicon sets the stopwords and, unless WithSentiment is also given,
// the sentiment overrides applied on top of the stock VADER lexicon.
func WithLexicon(lex *lexicon.Lexicon) Option {
	return func(a *Analyzer) { a.lex = lex }
}

// WithClock sets the time source for relative deadlines and follow-up dates.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithLogger sets the logger for degraded stages. The default discards.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Analyzer) { a.log = log }
}

// WithObserver registers a hook called after every Analyze with the
// detected content type and the elapsed time.
func WithObserver(fn func(contentType string, took time.Duration)) Option {
	return func(a *Analyzer) { a.observe = fn }
}

// WithSummaryBudget sets the default number of summary sentences.
func WithSummaryBudget(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.summaryBudget = n
		}
	}
}

// WithKeywordLimit sets the default number of keywords.
func WithKeywordLimit(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.keywordLimit = n
		}
	}
}

// New builds an Analyzer. Without WithRecognizer no entities are extracted.
// A recognizer that fails to load is dropped and the failure is logged once.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		now:           time.Now,
		log:           zerolog.Nop(),
		summaryBudget: defaultSummaryBudget,
		keywordLimit:  defaultKeywordLimit,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.lex == nil {
		a.lex = lexicon.Default()
	}
	if a.sentiment == nil {
		a.sentiment = sentiment.New(a.lex)
	}

	if a.recognizer != nil {
		if err := a.recognizer.Load(); err != nil {
			a.log.Warn().Err(err).Msg("entity recognizer unavailable; entities and contacts will be empty")
			a.recognizer = nil
		}
	}

	return a
}

// NewFromConfig wires the default recognizer, lexicon and limits from cfg.
// Extra options are applied last.
func NewFromConfig(cfg config.Analysis, log zerolog.Logger, extra ...Option) *Analyzer {
	lex := lexicon.Default()
	if cfg.LexiconDir != "" {
		loaded, err := lexicon.LoadFromDir(cfg.LexiconDir)
		if err != nil {
			log.Warn().Err(err).Str("dir", cfg.LexiconDir).Msg("failed to load lexicon overrides; using defaults")
		} else {
			lex = loaded
		}
	}

	loc := cfg.Location()
	opts := []Option{
		WithLogger(log),
		WithLexicon(lex),
		WithClock(func() time.Time { return time.Now().In(loc) }),
		WithSummaryBudget(cfg.SummarySentences),
		WithKeywordLimit(cfg.KeywordLimit),
	}
	if cfg.EntitiesEnabled() {
		opts = append(opts, WithRecognizer(DefaultRecognizer()))
	} else {
		log.Info().Msg("entity recognition disabled by config")
	}

	return New(append(opts, extra...)...)
}

// EntitiesAvailable reports whether a recognizer is loaded.
func (a *Analyzer) EntitiesAvailable() bool {
	return a.recognizer != nil
}

// Analyze runs every stage over one message.
func (a *Analyzer) Analyze(subject, body string) Result {
	start := time.Now()

	structured := normalizeStructured(body)
	clean := collapseSpace(structured)
	contentType := DetectContentType(structured)

	res := Result{
		CleanContent: clean,
		ContentType:  contentType,
		Summary:      a.summarize(structured, contentType, a.summaryBudget),
	}

	res.Entities = a.ExtractEntities(clean)
	res.Keywords = a.ExtractKeywords(clean, a.keywordLimit)
	res.IsImportant = DetectImportance(subject, clean, res.Entities, res.Keywords)
	res.Category = Categorize(subject, clean, res.Entities)
	res.Sentiment, res.SentimentScore = a.AnalyzeSentiment(clean)
	res.ActionItems = a.ExtractActionItems(clean)
	res.NeedsFollowup, res.FollowupDate = a.DetectFollowup(subject, clean)
	res.Contacts = a.ExtractContacts(clean)
	res.PriorityScore = PriorityScore(PriorityInput{
		Subject:       subject,
		IsImportant:   res.IsImportant,
		Sentiment:     res.Sentiment,
		NeedsFollowup: res.NeedsFollowup,
		Entities:      res.Entities,
	})

	took := time.Since(start)
	if a.observe != nil {
		a.observe(string(contentType), took)
	}
	a.log.Debug().
		Str("content_type", string(contentType)).
		Str("category", res.Category).
		Float64("priority", res.PriorityScore).
		Dur("took", took).
		Msg("analyzed message")

	return res
}
