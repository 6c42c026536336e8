package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

var listMarker = regexp.MustCompile(`^\s*(?:[*\-•]|\d+\.|[a-z]\))\s+`)

// summarizeList renders "title: a, b" or, past the budget,
// "title: a, b and K more items". Text with no list items falls back to the
// frequency ranking.
func (a *Analyzer) summarizeList(text string, budget int) string {
	lines := strings.Split(text, "\n")

	var items []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		loc := listMarker.FindStringIndex(line)
		if loc == nil {
			continue
		}
		if item := strings.TrimSpace(line[loc[1]:]); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return a.summarizeByFrequency(text, budget)
	}

	title := ""
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && !containsAny(line, items) {
			title = line
			break
		}
	}

	body := strings.Join(items, ", ")
	if len(items) > budget {
		shown := items[:budget-1]
		more := len(items) - len(shown)
		if len(shown) == 0 {
			body = fmt.Sprintf("%d items", more)
		} else {
			body = fmt.Sprintf("%s and %d more items", strings.Join(shown, ", "), more)
		}
	}

	if title == "" {
		return body
	}
	return title + ": " + body
}

func containsAny(line string, items []string) bool {
	for _, item := range items {
		if strings.Contains(line, item) {
			return true
		}
	}
	return false
}
