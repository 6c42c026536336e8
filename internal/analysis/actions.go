package analysis

import (
	"regexp"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

var actionPhrases = []string{
	"please", "would you", "could you", "can you", "need you to", "should", "must",
	"review", "update", "create", "send", "share", "prepare", "complete", "follow up",
	"call", "email", "submit", "provide", "check", "confirm", "schedule", "organize",
}

// deadlinePatterns are tried in order against the lowercased sentence; the
// first match is the deadline.
var deadlinePatterns = []regexp.Regexp{
	*regexp.MustCompile(`by\s(tomorrow|today|monday|tuesday|wednesday|thursday|friday|saturday|sunday)`),
	*regexp.MustCompile(`by\s(january|february|march|april|may|june|july|august|september|october|november|december)\s\d{1,2}`),
	*regexp.MustCompile(`by\s\d{1,2}/\d{1,2}(/\d{2,4})?`),
	*regexp.MustCompile(`by\send\sof\s(day|week|month)`),
	*regexp.MustCompile(`by\s(next|this)\s(week|month|monday|tuesday|wednesday|thursday|friday)`),
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ExtractActionItems returns one item per sentence containing an action
// phrase, with the deadline resolved from the first deadline phrase found.
func (a *Analyzer) ExtractActionItems(text string) []ActionItem {
	out := []ActionItem{}
	if strings.TrimSpace(text) == "" {
		return out
	}

	now := a.now()
	for _, sentence := range sentences(text) {
		lower := strings.ToLower(sentence)
		if !containsPhrase(lower, actionPhrases) {
			continue
		}

		item := ActionItem{Text: strings.TrimSpace(sentence)}
		for i := range deadlinePatterns {
			if m := deadlinePatterns[i].FindString(lower); m != "" {
				item.Deadline = a.resolveDeadline(strings.TrimPrefix(m, "by "), now)
				break
			}
		}
		out = append(out, item)
	}
	return out
}

// resolveDeadline turns a deadline phrase into a time. Unparseable phrases
// resolve to nil.
func (a *Analyzer) resolveDeadline(phrase string, now time.Time) *time.Time {
	var t time.Time
	switch {
	case strings.Contains(phrase, "tomorrow"):
		t = now.AddDate(0, 0, 1)
	case strings.Contains(phrase, "today"):
		t = now
	case strings.Contains(phrase, "next week"):
		t = now.AddDate(0, 0, 7)
	case strings.Contains(phrase, "end of day"):
		t = time.Date(now.Year(), now.Month(), now.Day(), 17, 0, 0, 0, now.Location())
	case strings.Contains(phrase, "end of week"):
		t = now.AddDate(0, 0, daysUntil(now.Weekday(), time.Friday))
	default:
		if wd, ok := weekdays[phrase]; ok {
			day := midnight(now)
			t = day.AddDate(0, 0, daysUntil(now.Weekday(), wd))
			break
		}
		parsed, ok := a.parseDate(phrase, now)
		if !ok {
			return nil
		}
		t = parsed
	}
	return &t
}

func (a *Analyzer) parseDate(phrase string, now time.Time) (time.Time, bool) {
	cfg := &dps.Configuration{
		CurrentTime:          now,
		DefaultTimezone:      now.Location(),
		PreferredDayOfMonth:  dps.Current,
		PreferredMonthOfYear: dps.CurrentMonth,
		PreferredDateSource:  dps.CurrentPeriod,
	}
	parsed, err := dps.Parse(cfg, phrase)
	if err != nil || parsed.Time.IsZero() {
		a.log.Debug().Str("phrase", phrase).Msg("could not parse deadline")
		return time.Time{}, false
	}
	return parsed.Time, true
}

// daysUntil counts days forward from one weekday to the next occurrence of
// another, zero when they are the same.
func daysUntil(from, to time.Weekday) int {
	return (int(to) - int(from) + 7) % 7
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func containsPhrase(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
