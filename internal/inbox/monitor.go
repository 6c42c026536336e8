package inbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/rs/zerolog"

	"github.com/inboxlens/inboxlens/internal/config"
)

const fetchBatchSize = 50

var errNotConnected = errors.New("not connected to IMAP server")

// Monitor handles IMAP connection and email retrieval
type Monitor struct {
	config config.InboxConfig
	client *client.Client
	log    zerolog.Logger
}

// NewMonitor creates a new inbox monitor
func NewMonitor(cfg config.InboxConfig, log zerolog.Logger) *Monitor {
	return &Monitor{
		config: cfg,
		log:    log.With().Str("component", "inbox").Logger(),
	}
}

// Connect establishes IMAP connection
func (m *Monitor) Connect(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)
	m.log.Debug().Str("addr", addr).Msg("connecting to IMAP server")

	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	if ctx.Err() != nil {
		c.Logout()
		return ctx.Err()
	}

	if err := c.Login(m.config.Email, m.config.Password); err != nil {
		c.Logout()
		return fmt.Errorf("failed to login: %w", err)
	}

	m.client = c
	m.log.Info().Str("addr", addr).Str("user", m.config.Email).Msg("connected to mailbox")
	return nil
}

// Disconnect closes the IMAP connection
func (m *Monitor) Disconnect() error {
	if m.client == nil {
		return nil
	}
	err := m.client.Logout()
	m.client = nil
	return err
}

// FetchRecent fetches up to limit messages received in the last days days,
// newest last. Bodies are fetched with PEEK so messages stay unread.
func (m *Monitor) FetchRecent(ctx context.Context, days, limit int) ([]Email, error) {
	if m.client == nil {
		return nil, errNotConnected
	}

	mbox, err := m.client.Select(m.config.Folder, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", m.config.Folder, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	since := time.Now().AddDate(0, 0, -days)
	criteria := imap.NewSearchCriteria()
	criteria.Since = since

	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}
	m.log.Debug().Int("count", len(uids)).Time("since", since).Msg("found messages")

	var emails []Email
	for i := 0; i < len(uids); i += fetchBatchSize {
		if err := ctx.Err(); err != nil {
			return emails, err
		}
		end := min(i+fetchBatchSize, len(uids))

		batch, err := m.fetchBatch(uids[i:end])
		if err != nil {
			m.log.Warn().Err(err).Int("batch_start", i).Msg("error fetching batch")
		}
		emails = append(emails, batch...)
	}
	return emails, nil
}

func (m *Monitor) fetchBatch(uids []uint32) ([]Email, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqSet, items, messages)
	}()

	var emails []Email
	for msg := range messages {
		email, err := fromIMAP(msg, section)
		if err != nil {
			m.log.Warn().Err(err).Uint32("uid", msg.Uid).Msg("failed to parse message")
			continue
		}
		if email != nil {
			emails = append(emails, *email)
		}
	}

	if err := <-done; err != nil {
		return emails, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return emails, nil
}

// fromIMAP converts an IMAP message, preferring the parsed headers and
// falling back to the envelope.
func fromIMAP(msg *imap.Message, section *imap.BodySectionName) (*Email, error) {
	if msg == nil || msg.Envelope == nil {
		return nil, nil
	}

	email := &Email{}
	if r := msg.GetBody(section); r != nil {
		parsed, err := ParseMessage(r)
		if err != nil {
			return nil, err
		}
		email = parsed
	}

	email.UID = msg.Uid
	for _, flag := range msg.Flags {
		if flag == imap.FlaggedFlag {
			email.Starred = true
		}
	}

	env := msg.Envelope
	if env.MessageId != "" {
		email.MessageID = normalizeMessageID(env.MessageId)
	}
	if email.Subject == "" {
		email.Subject = env.Subject
	}
	if email.ReceivedAt.IsZero() {
		email.ReceivedAt = env.Date
	}
	if email.From == "" && len(env.From) > 0 {
		email.setSender(env.From[0].PersonalName, env.From[0].Address())
	}
	if email.MessageID == "" {
		email.MessageID = SyntheticMessageID(email.Subject, email.AnalysisBody())
	}
	return email, nil
}

// Watch blocks in IDLE and hands every message of the last day to callback
// whenever the mailbox changes. Callers dedupe by message id.
func (m *Monitor) Watch(ctx context.Context, callback func(Email)) error {
	if m.client == nil {
		return errNotConnected
	}
	if _, err := m.client.Select(m.config.Folder, true); err != nil {
		return fmt.Errorf("failed to select mailbox: %w", err)
	}

	updates := make(chan client.Update, 64)
	m.client.Updates = updates
	defer func() { m.client.Updates = nil }()

	stop := make(chan struct{})
	idleDone := make(chan error, 1)
	go func() {
		idleDone <- m.client.Idle(stop, nil)
	}()

	m.log.Info().Str("folder", m.config.Folder).Msg("watching for new mail")

	for {
		select {
		case <-ctx.Done():
			close(stop)
			<-idleDone
			return ctx.Err()
		case update := <-updates:
			u, ok := update.(*client.MailboxUpdate)
			if !ok {
				continue
			}
			m.log.Debug().Uint32("messages", u.Mailbox.Messages).Msg("mailbox changed")

			close(stop)
			<-idleDone

			emails, err := m.FetchRecent(ctx, 1, m.config.MaxMessages)
			if err != nil {
				m.log.Warn().Err(err).Msg("error fetching new mail")
			}
			for _, email := range emails {
				callback(email)
			}

			stop = make(chan struct{})
			go func() {
				idleDone <- m.client.Idle(stop, nil)
			}()
		case err := <-idleDone:
			if err != nil {
				return fmt.Errorf("IDLE error: %w", err)
			}
			return nil
		}
	}
}
