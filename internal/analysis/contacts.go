package analysis

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\b(\+\d{1,3}\s?)?(\(?\d{3}\)?[\s.-]?)?\d{3}[\s.-]?\d{4}\b`)
	namePattern  = regexp.MustCompile(`[A-Z][a-z]+ [A-Z][a-z]+`)
)

const (
	nameWindow    = 100
	contactWindow = 200
)

// ExtractContacts returns one contact per email address in text, with a
// nearby capitalised name, phone number and organisation when present.
// Addresses inside URLs are skipped. Without a recognizer it returns an
// empty slice.
func (a *Analyzer) ExtractContacts(text string) []Contact {
	out := []Contact{}
	if a.recognizer == nil || text == "" {
		return out
	}

	for _, loc := range emailPattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if insideURL(text, start, end) {
			continue
		}
		email := text[start:end]

		c := Contact{
			Email: email,
			Name:  nearbyName(text, start, email),
		}

		window := text[max(0, start-contactWindow):min(len(text), start+contactWindow)]
		c.Phone = phonePattern.FindString(window)
		c.Company = a.firstOrg(window)

		out = append(out, c)
	}
	return out
}

// nearbyName prefers the closest name before the address, then the first
// one after it, then a name derived from the local part.
func nearbyName(text string, start int, email string) string {
	before := text[max(0, start-nameWindow):start]
	if names := namePattern.FindAllString(before, -1); len(names) > 0 {
		return names[len(names)-1]
	}
	after := text[start:min(len(text), start+nameWindow)]
	if name := namePattern.FindString(after); name != "" {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	return titleCase(strings.ReplaceAll(local, ".", " "))
}

func (a *Analyzer) firstOrg(window string) string {
	found, err := a.recognizer.Recognize(window)
	if err != nil {
		return ""
	}
	for _, e := range found {
		if e.Type == EntityOrg {
			return e.Text
		}
	}
	return ""
}

// insideURL reports whether the whitespace-delimited token around
// [start, end) is a URL.
func insideURL(text string, start, end int) bool {
	tokStart := strings.LastIndexFunc(text[:start], unicode.IsSpace) + 1
	tokEnd := len(text)
	if i := strings.IndexFunc(text[end:], unicode.IsSpace); i >= 0 {
		tokEnd = end + i
	}
	return strings.Contains(text[tokStart:tokEnd], "://")
}
