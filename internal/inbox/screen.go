package inbox

import (
	"regexp"
	"strings"
)

// Disposition tells the sync job whether a message is worth analyzing.
type Disposition string

const (
	DispositionRegular   Disposition = "regular"
	DispositionBounce    Disposition = "bounce"     // Delivery status notification
	DispositionAutoReply Disposition = "auto-reply" // Out of office and other machine replies
)

var (
	// Bounce/undeliverable indicators
	bouncePatterns = []regexp.Regexp{
		*regexp.MustCompile(`(?i)delivery\s+(to\s+.+\s+)?(has\s+)?failed`),
		*regexp.MustCompile(`(?i)undeliverable`),
		*regexp.MustCompile(`(?i)delivery\s+status\s+notification`),
		*regexp.MustCompile(`(?i)returned\s+mail`),
		*regexp.MustCompile(`(?i)mail\s+delivery\s+failed`),
		*regexp.MustCompile(`(?i)message\s+(could\s+)?not\s+(be\s+)?delivered`),
		*regexp.MustCompile(`(?i)could\s+not\s+be\s+delivered`),
		*regexp.MustCompile(`(?i)delivery\s+failure`),
		*regexp.MustCompile(`(?i)permanent\s+(failure|error)`),
		*regexp.MustCompile(`(?i)address\s+rejected`),
		*regexp.MustCompile(`(?i)user\s+unknown`),
		*regexp.MustCompile(`(?i)mailbox\s+not\s+found`),
		*regexp.MustCompile(`(?i)no\s+such\s+user`),
		*regexp.MustCompile(`(?i)(mailbox|recipient|address)\s+(does\s+not|doesn't)\s+exist`),
		*regexp.MustCompile(`(?i)invalid\s+(recipient|address|mailbox)`),
		*regexp.MustCompile(`(?i)unknown\s+(recipient|user|address)`),
		*regexp.MustCompile(`(?i)550\s+.*\s+(rejected|unknown|not\s+found)`),
		*regexp.MustCompile(`(?i)554\s+.*\s+(rejected|failed)`),
	}

	// Senders that indicate a bounce email
	bounceSenders = []string{
		"mailer-daemon",
		"postmaster",
		"mail delivery system",
		"mail delivery subsystem",
		"mailerdaemon",
		"noreply",
		"no-reply",
		"mailsystem",
	}

	// Subjects of machine-generated replies
	autoReplySubjects = []regexp.Regexp{
		*regexp.MustCompile(`(?i)^automatic\s+reply`),
		*regexp.MustCompile(`(?i)^auto[\s-]?reply`),
		*regexp.MustCompile(`(?i)^auto[\s-]?response`),
		*regexp.MustCompile(`(?i)^out\s+of\s+(the\s+)?office`),
		*regexp.MustCompile(`(?i)office\s+closed`),
		*regexp.MustCompile(`(?i)i\s+(have\s+)?(now\s+)?left\s+`), // Person left the company
		*regexp.MustCompile(`(?i)no\s+longer\s+with\s+(the\s+)?(company|organization)`),
	}

	// Patterns that precede the bounced email address in NDRs
	bouncedRecipientPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:the\s+following|these)\s+address(?:es)?\s+(?:had\s+permanent\s+)?(?:fatal\s+)?(?:errors?|failed)[:\s]+([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
		regexp.MustCompile(`(?i)delivery\s+to\s+(?:the\s+following\s+)?(?:recipient|address)(?:s)?\s+failed[:\s]+([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
		regexp.MustCompile(`(?i)(?:original|final)[\s-]?recipient[:\s]+(?:rfc822;)?([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
		regexp.MustCompile(`(?i)(?:failed|rejected)\s+recipient[:\s]+([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
		regexp.MustCompile(`(?i)undeliverable\s+to[:\s]+([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
		regexp.MustCompile(`(?i)message\s+could\s+not\s+be\s+delivered\s+to[:\s]+([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
	}
)

// Screen sorts out delivery failures and automatic replies before they reach
// the analyzer.
func Screen(email *Email) Disposition {
	subject := strings.ToLower(email.Subject)
	content := strings.ToLower(email.AnalysisBody())

	if isBounceEmail(email, subject, content) {
		return DispositionBounce
	}
	if isAutoReply(email, subject) {
		return DispositionAutoReply
	}
	return DispositionRegular
}

// isBounceEmail checks if an email is a bounce/undeliverable notification
func isBounceEmail(email *Email, subject, content string) bool {
	fromLower := strings.ToLower(email.From)
	fromNameLower := strings.ToLower(email.FromName)

	isBounceSource := false
	for _, sender := range bounceSenders {
		if strings.Contains(fromLower, sender) || strings.Contains(fromNameLower, sender) {
			isBounceSource = true
			break
		}
	}

	bounceScore := 0
	for i := range bouncePatterns {
		if bouncePatterns[i].MatchString(subject) {
			bounceScore += 2 // Subject match is strong signal
		}
		if bouncePatterns[i].MatchString(content) {
			bounceScore++
		}
	}

	// A mail system sender with any bounce signal, or strong signals alone
	return (isBounceSource && bounceScore > 0) || bounceScore >= 3
}

// isAutoReply follows RFC 3834: any Auto-Submitted value other than "no"
// marks a machine-generated message.
func isAutoReply(email *Email, subject string) bool {
	if v := strings.ToLower(email.AutoSubmitted); v != "" && v != "no" {
		return true
	}
	for i := range autoReplySubjects {
		if autoReplySubjects[i].MatchString(subject) {
			return true
		}
	}
	return false
}

// BouncedRecipient extracts the address that bounced from a delivery
// failure notice, or "" when none is named.
func BouncedRecipient(email *Email) string {
	content := email.AnalysisBody() + " " + email.Subject
	for _, pattern := range bouncedRecipientPatterns {
		if m := pattern.FindStringSubmatch(content); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
