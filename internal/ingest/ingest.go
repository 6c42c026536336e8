// Package ingest moves mail from the mailbox into the history store:
// fetch, screen out automated mail, skip messages already analyzed, analyze
// the rest concurrently and persist each result.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/inboxlens/inboxlens/internal/analysis"
	"github.com/inboxlens/inboxlens/internal/history"
	"github.com/inboxlens/inboxlens/internal/inbox"
	"github.com/inboxlens/inboxlens/internal/metrics"
)

// Fetcher returns recent mailbox messages. *inbox.Monitor implements it.
type Fetcher interface {
	FetchRecent(ctx context.Context, days, limit int) ([]inbox.Email, error)
}

// Watcher blocks and reports new messages until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, callback func(inbox.Email)) error
}

// Store is the part of *history.Store a sync writes to.
type Store interface {
	KnownMessageIDs(ids []string) (map[string]bool, error)
	SaveAnalysis(msg history.StoredMessage, res analysis.Result) (int64, error)
}

// Report counts what happened to the messages of one sync.
type Report struct {
	Fetched  int `json:"fetched"`
	Skipped  int `json:"skipped"`  // already in the store
	Screened int `json:"screened"` // bounces and auto-replies
	Analyzed int `json:"analyzed"`
	Failed   int `json:"failed"`
}

func (r *Report) add(o Report) {
	r.Fetched += o.Fetched
	r.Skipped += o.Skipped
	r.Screened += o.Screened
	r.Analyzed += o.Analyzed
	r.Failed += o.Failed
}

// Progress receives the running totals after each stage.
type Progress func(Report)

type Syncer struct {
	store         Store
	analyzer      *analysis.Analyzer
	workers       int
	skipAutomated bool
	log           zerolog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithWorkers sets how many messages are analyzed at once.
func WithWorkers(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithScreening controls whether bounces and auto-replies are dropped.
func WithScreening(enabled bool) Option {
	return func(s *Syncer) { s.skipAutomated = enabled }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Syncer) { s.log = log }
}

func NewSyncer(store Store, analyzer *analysis.Analyzer, opts ...Option) *Syncer {
	s := &Syncer{
		store:         store,
		analyzer:      analyzer,
		workers:       4,
		skipAutomated: true,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync fetches the last days of mail (at most limit messages) and processes it.
func (s *Syncer) Sync(ctx context.Context, f Fetcher, days, limit int, progress Progress) (Report, error) {
	emails, err := f.FetchRecent(ctx, days, limit)
	if err != nil {
		return Report{}, fmt.Errorf("failed to fetch mail: %w", err)
	}
	s.log.Info().Int("fetched", len(emails)).Int("days", days).Msg("fetched mail")
	return s.Process(ctx, emails, progress)
}

// Process runs already retrieved messages through the pipeline. A message
// that fails to save is counted and logged; the rest still go through.
// Only cancellation of ctx aborts the run.
func (s *Syncer) Process(ctx context.Context, emails []inbox.Email, progress Progress) (Report, error) {
	report := Report{Fetched: len(emails)}
	notify := func() {
		if progress != nil {
			progress(report)
		}
	}

	candidates := make([]inbox.Email, 0, len(emails))
	for _, email := range emails {
		if s.skipAutomated {
			if d := inbox.Screen(&email); d != inbox.DispositionRegular {
				ev := s.log.Debug().Str("message_id", email.MessageID).Str("disposition", string(d))
				if d == inbox.DispositionBounce {
					ev = ev.Str("bounced", inbox.BouncedRecipient(&email))
				}
				ev.Msg("screened out")
				report.Screened++
				metrics.IncrementSync(metrics.OutcomeScreened)
				continue
			}
		}
		candidates = append(candidates, email)
	}

	// A mailbox can list the same message twice (e.g. a thread copy in the folder).
	unique := lo.UniqBy(candidates, func(e inbox.Email) string { return e.MessageID })
	report.Skipped += len(candidates) - len(unique)

	known, err := s.store.KnownMessageIDs(lo.Map(unique, func(e inbox.Email, _ int) string { return e.MessageID }))
	if err != nil {
		return report, fmt.Errorf("failed to look up known messages: %w", err)
	}
	fresh := lo.Filter(unique, func(e inbox.Email, _ int) bool { return !known[e.MessageID] })
	report.Skipped += len(unique) - len(fresh)
	for range report.Skipped {
		metrics.IncrementSync(metrics.OutcomeKnown)
	}
	notify()

	if len(fresh) == 0 {
		return report, nil
	}

	msgs := lo.Map(fresh, func(e inbox.Email, _ int) analysis.Message {
		return analysis.Message{Subject: e.Subject, Body: e.AnalysisBody()}
	})
	results, err := s.analyzer.AnalyzeBatch(ctx, msgs, s.workers)
	if err != nil {
		return report, err
	}

	for i, email := range fresh {
		if _, err := s.store.SaveAnalysis(StoredMessage(email), results[i]); err != nil {
			s.log.Warn().Err(err).Str("message_id", email.MessageID).Msg("failed to save analysis")
			report.Failed++
			metrics.IncrementSync(metrics.OutcomeFailed)
		} else {
			report.Analyzed++
			metrics.IncrementSync(metrics.OutcomeAnalyzed)
		}
		notify()
	}

	s.log.Info().
		Int("fetched", report.Fetched).
		Int("skipped", report.Skipped).
		Int("screened", report.Screened).
		Int("analyzed", report.Analyzed).
		Int("failed", report.Failed).
		Msg("sync complete")

	return report, nil
}

// Watch processes every message w reports until ctx is done. Reports of the
// individual passes are summed into total.
func (s *Syncer) Watch(ctx context.Context, w Watcher, progress Progress) (Report, error) {
	var total Report
	err := w.Watch(ctx, func(email inbox.Email) {
		r, err := s.Process(ctx, []inbox.Email{email}, nil)
		total.add(r)
		if err != nil {
			s.log.Warn().Err(err).Str("message_id", email.MessageID).Msg("failed to process new mail")
			return
		}
		if r.Analyzed > 0 && progress != nil {
			progress(total)
		}
	})
	return total, err
}

// StoredMessage maps a retrieved email onto the envelope the store keeps.
func StoredMessage(e inbox.Email) history.StoredMessage {
	sender := e.FromName
	if strings.TrimSpace(sender) == "" {
		sender = e.From
	}
	raw := e.Body
	if strings.TrimSpace(raw) == "" {
		raw = e.HTMLBody
	}
	return history.StoredMessage{
		MessageID:   e.MessageID,
		Subject:     e.Subject,
		Sender:      sender,
		SenderEmail: e.From,
		ReceivedAt:  e.ReceivedAt,
		RawContent:  raw,
		IsStarred:   e.Starred,
	}
}
