package analysis

import (
	"strings"
	"time"
)

var followupPhrases = []string{
	"follow up", "followup", "follow-up", "get back to", "let me know",
	"waiting for your response", "waiting for your reply",
	"looking forward to hearing", "would appreciate your response",
	"please respond", "hope to hear", "let's discuss", "will you be able to",
}

const followupDelayDays = 2

// DetectFollowup reports whether the message asks for a reply. The
// suggested date is two days out, moved to Monday if that is a weekend.
func (a *Analyzer) DetectFollowup(subject, content string) (bool, *time.Time) {
	text := strings.ToLower(subject + " " + content)
	if !containsPhrase(text, followupPhrases) {
		return false, nil
	}

	date := FollowupDate(a.now())
	return true, &date
}

// FollowupDate is today+2 at midnight, rolled forward to Monday when it
// falls on Saturday or Sunday.
func FollowupDate(now time.Time) time.Time {
	date := midnight(now).AddDate(0, 0, followupDelayDays)
	switch date.Weekday() {
	case time.Saturday:
		date = date.AddDate(0, 0, 2)
	case time.Sunday:
		date = date.AddDate(0, 0, 1)
	}
	return date
}
