package analysis

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	spacePattern = regexp.MustCompile(`[\s\p{Zs}]+`)
)

// signaturePatterns mark the first line of a signature block. Everything
// from the earliest matching line on is dropped.
var signaturePatterns = []regexp.Regexp{
	*regexp.MustCompile(`^\s*--\s*$`),
	*regexp.MustCompile(`(?i)^\s*(?:best|kind|warm|warmest)\s+regards\b`),
	*regexp.MustCompile(`^\s*(?:Regards|Sincerely|Thank you|Thanks|Cheers)[,.!]?(?:\s+[A-Z][\w.'-]*){0,3}\s*$`),
	*regexp.MustCompile(`^\s*Sent from my (?:iPhone|iPad|Android|mobile)`),
	*regexp.MustCompile(`^\s*Get Outlook for`),
}

// Normalize strips markup, quoted replies and signatures from a raw body and
// collapses whitespace. It never fails; malformed markup is stripped on a
// best-effort basis.
func Normalize(raw string) string {
	return collapseSpace(strings.Join(cleanLines(raw), "\n"))
}

// normalizeStructured cleans like Normalize but keeps one line per source
// line so list and receipt layouts survive.
func normalizeStructured(raw string) string {
	lines := cleanLines(raw)
	kept := lines[:0]
	for _, line := range lines {
		if line = collapseSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func cleanLines(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	text := html.UnescapeString(raw)
	text = tagPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		lines = append(lines, line)
	}

	cut := len(lines)
	for i := range signaturePatterns {
		for j, line := range lines {
			if j >= cut {
				break
			}
			if signaturePatterns[i].MatchString(line) {
				cut = j
				break
			}
		}
	}
	return lines[:cut]
}

func collapseSpace(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
