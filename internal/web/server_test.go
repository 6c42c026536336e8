package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxlens/inboxlens/internal/analysis"
	"github.com/inboxlens/inboxlens/internal/config"
	"github.com/inboxlens/inboxlens/internal/history"
	"github.com/inboxlens/inboxlens/internal/inbox"
	"github.com/inboxlens/inboxlens/internal/ingest"
)

type fakeFetcher struct {
	emails []inbox.Email
}

func (f fakeFetcher) FetchRecent(context.Context, int, int) ([]inbox.Email, error) {
	return f.emails, nil
}

func date(d int) *time.Time {
	t := time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type testServer struct {
	*Server
	store   *history.Store
	handler http.Handler
}

func newTestServer(t *testing.T, mailbox ...inbox.Email) *testServer {
	t.Helper()

	store, err := history.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.Inbox.Email = "me@example.com"
	cfg.Inbox.Password = "secret"
	cfg.Inbox.Server = "imap.example.com"
	cfg.Inbox.Port = 993

	source := func(context.Context) (ingest.Fetcher, func(), error) {
		return fakeFetcher{emails: mailbox}, func() {}, nil
	}
	clock := func() time.Time { return time.Date(2026, time.March, 13, 8, 0, 0, 0, time.UTC) }

	srv, err := NewServer(cfg, store, analysis.New(analysis.WithClock(clock)), zerolog.Nop(),
		WithMailSource(source), WithDataDir(t.TempDir()), WithClock(clock))
	require.NoError(t, err)

	return &testServer{Server: srv, store: store, handler: srv.Handler()}
}

func (ts *testServer) seed(t *testing.T) int64 {
	t.Helper()
	id, err := ts.store.SaveAnalysis(history.StoredMessage{
		MessageID:   "deck@acme.com",
		Subject:     "Quarterly deck",
		Sender:      "Maria Lopez",
		SenderEmail: "maria@acme.com",
		ReceivedAt:  time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
	}, analysis.Result{
		ContentType:   analysis.ContentGeneral,
		Summary:       "Please send the deck by friday.",
		Entities:      []analysis.Entity{{Text: "Acme", Type: analysis.EntityOrg}},
		Keywords:      []analysis.Keyword{{Word: "deck", Score: 0.9}},
		IsImportant:   true,
		Category:      "Meeting",
		Sentiment:     analysis.SentimentNeutral,
		ActionItems:   []analysis.ActionItem{{Text: "Please send the deck by friday.", Deadline: date(13)}},
		NeedsFollowup: true,
		FollowupDate:  date(13),
		Contacts:      []analysis.Contact{{Name: "Maria Lopez", Email: "maria@acme.com"}},
		PriorityScore: 8.5,
	})
	require.NoError(t, err)
	return id
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAPIAnalyze(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/analyze",
		`{"subject":"URGENT: action required","body":"The production server is down. Please call me asap."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[analysis.Result](t, rec)
	assert.Equal(t, analysis.ContentGeneral, res.ContentType)
	assert.Equal(t, analysis.SentimentUrgent, res.Sentiment)
	assert.True(t, res.IsImportant)
	assert.NotEmpty(t, res.Summary)
}

func TestAPIAnalyzeBadBody(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/analyze", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON body")
}

func TestAPIEmails(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seed(t)

	tests := []struct {
		name     string
		target   string
		expected int
	}{
		{"all", "/api/emails", 1},
		{"important", "/api/emails/important", 1},
		{"starred", "/api/emails/starred", 0},
		{"followup", "/api/emails/followup", 1},
		{"category match", "/api/emails/category/Meeting", 1},
		{"category miss", "/api/emails/category/Finance", 0},
		{"sentiment", "/api/emails/sentiment/Neutral", 1},
		{"query filter", "/api/emails?category=Meeting&important=true", 1},
		{"offset past end", "/api/emails?offset=5", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, rec.Code)
			emails := decode[[]history.Email](t, rec)
			assert.Len(t, emails, tt.expected)
			if tt.expected > 0 {
				assert.Equal(t, id, emails[0].ID)
			}
		})
	}
}

func TestAPIEmailsBadQuery(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/emails?limit=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/emails?important=maybe", "").Code)
}

func TestAPIEmailDetail(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seed(t)

	rec := ts.do(http.MethodGet, "/api/emails/"+itoa(id), "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[history.EmailDetail](t, rec)
	assert.Equal(t, "Quarterly deck", detail.Subject)
	assert.Len(t, detail.Entities, 1)
	assert.Len(t, detail.ActionItems, 1)
	assert.Len(t, detail.Contacts, 1)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/emails/999", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/emails/abc", "").Code)
}

func TestAPICatalog(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	assert.Len(t, decode[[]history.Entity](t, ts.do(http.MethodGet, "/api/entities", "")), 1)
	assert.Len(t, decode[[]history.Keyword](t, ts.do(http.MethodGet, "/api/keywords", "")), 1)
	assert.Len(t, decode[[]history.Contact](t, ts.do(http.MethodGet, "/api/contacts", "")), 1)

	stats := decode[history.Stats](t, ts.do(http.MethodGet, "/api/stats", ""))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Priority.High)
}

func TestAPIEmptyListsAreArrays(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/contacts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestAPIActionItems(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	items := decode[[]history.ActionItem](t, ts.do(http.MethodGet, "/api/action-items?completed=false", ""))
	require.Len(t, items, 1)
	assert.Equal(t, "Quarterly deck", items[0].EmailSubject)

	rec := ts.do(http.MethodPatch, "/api/action-items/"+itoa(items[0].ID), `{"completed":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, decode[[]history.ActionItem](t, ts.do(http.MethodGet, "/api/action-items?completed=false", "")))
	assert.Len(t, decode[[]history.ActionItem](t, ts.do(http.MethodGet, "/api/action-items?completed=true", "")), 1)
	assert.Len(t, decode[[]history.ActionItem](t, ts.do(http.MethodGet, "/api/action-items", "")), 1)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPatch, "/api/action-items/999", `{"completed":true}`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPatch, "/api/action-items/1", `{}`).Code)
}

func TestAPISync(t *testing.T) {
	ts := newTestServer(t,
		inbox.Email{MessageID: "a@x", From: "ann@example.com", Subject: "Budget", Body: "Please send the budget by Friday."},
		inbox.Email{MessageID: "b@x", From: "MAILER-DAEMON@mx.example.com", Subject: "Undeliverable: hi",
			Body: "Delivery to the following recipient failed: bob@example.org"},
	)

	rec := ts.do(http.MethodPost, "/api/sync", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	job := decode[JobSnapshot](t, rec)

	require.Eventually(t, func() bool {
		snap := decode[JobSnapshot](t, ts.do(http.MethodGet, "/api/jobs/"+job.ID, ""))
		return snap.Status == JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	snap := decode[JobSnapshot](t, ts.do(http.MethodGet, "/api/jobs/"+job.ID, ""))
	assert.Equal(t, ingest.Report{Fetched: 2, Screened: 1, Analyzed: 1}, snap.Report)
	assert.NotNil(t, snap.CompletedAt)

	emails := decode[[]history.Email](t, ts.do(http.MethodGet, "/api/emails", ""))
	require.Len(t, emails, 1)
	assert.Equal(t, "a@x", emails[0].MessageID)

	// The outcome is written just after the job finishes.
	require.Eventually(t, func() bool {
		last, err := ts.jobPersistence.Load()
		return err == nil && last != nil && last.ID == job.ID
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/jobs/nope", "").Code)
}

func TestAPISyncRequiresInbox(t *testing.T) {
	ts := newTestServer(t)
	ts.config.Inbox.Password = ""
	rec := ts.do(http.MethodPost, "/api/sync", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "inbox: password")
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	rec := ts.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "Quarterly deck")
	assert.Contains(t, body, "Please send the deck by friday.")
	assert.Contains(t, body, `name="gorilla.csrf.Token"`)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestFormsRequireCSRFToken(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	for _, target := range []string{"/sync", "/actions/1/toggle"} {
		t.Run(target, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, target, strings.NewReader("completed=true"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			ts.handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodGet, "/api/stats", "")

	rec := ts.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `inboxlens_http_request_duration_seconds_count{method="GET",route="/api/stats",status="200"}`)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
