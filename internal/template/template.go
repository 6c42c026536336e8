package template

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/samber/lo"

	"github.com/inboxlens/inboxlens/internal/history"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// DigestData is everything the digest template can show.
type DigestData struct {
	Date        string
	Followups   []history.Email
	ActionItems []history.ActionItem
	Priority    []history.Email
}

// Empty reports whether the digest has nothing to list.
func (d DigestData) Empty() bool {
	return len(d.Followups) == 0 && len(d.ActionItems) == 0 && len(d.Priority) == 0
}

// Email represents a rendered email ready to send
type Email struct {
	Subject string
	Body    string
}

// Engine handles digest rendering
type Engine struct {
	templates map[string]*template.Template
}

var funcs = template.FuncMap{
	"day": func(t time.Time) string { return t.Format("Mon Jan 2") },
	"sender": func(e history.Email) string {
		if e.Sender != "" {
			return e.Sender
		}
		return e.SenderEmail
	},
	"oneline": func(s string) string { return strings.Join(strings.Fields(s), " ") },
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	e := &Engine{
		templates: make(map[string]*template.Template),
	}

	for _, name := range []string{"digest"} {
		content, err := embeddedTemplates.ReadFile("templates/" + name + ".tmpl")
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded template %s: %w", name, err)
		}

		tmpl, err := template.New(name).Funcs(funcs).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		e.templates[name] = tmpl
	}

	return e, nil
}

// BuildDigest selects what a digest for the given day shows: follow-ups due
// on or before it, open action items with a deadline on or before it, and
// emails scoring at least minPriority that are not already listed.
func BuildDigest(on time.Time, followups []history.Email, items []history.ActionItem, priority []history.Email, minPriority float64) DigestData {
	endOfDay := time.Date(on.Year(), on.Month(), on.Day(), 23, 59, 59, 0, on.Location())
	due := func(t *time.Time) bool { return t != nil && !t.After(endOfDay) }

	data := DigestData{
		Date: on.Format("Monday, January 2, 2006"),
		Followups: lo.Filter(followups, func(e history.Email, _ int) bool {
			return e.NeedsFollowup && due(e.FollowupDate)
		}),
		ActionItems: lo.Filter(items, func(a history.ActionItem, _ int) bool {
			return !a.Completed && due(a.Deadline)
		}),
	}

	listed := lo.SliceToMap(data.Followups, func(e history.Email) (int64, bool) { return e.ID, true })
	data.Priority = lo.Filter(priority, func(e history.Email, _ int) bool {
		return e.PriorityScore >= minPriority && !listed[e.ID]
	})
	return data
}

// RenderDigest renders the digest email for data.
func (e *Engine) RenderDigest(data DigestData) (*Email, error) {
	tmpl, ok := e.templates["digest"]
	if !ok {
		return nil, fmt.Errorf("unknown template: digest")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Email{
		Subject: digestSubject(data),
		Body:    strings.TrimSpace(buf.String()) + "\n",
	}, nil
}

func digestSubject(d DigestData) string {
	n := len(d.Followups) + len(d.ActionItems) + len(d.Priority)
	if n == 0 {
		return "InboxLens digest: all clear"
	}
	return fmt.Sprintf("InboxLens digest: %d %s attention", n, lo.Ternary(n == 1, "item needs", "items need"))
}
