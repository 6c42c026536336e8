package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

var merchantPatterns = []regexp.Regexp{
	*regexp.MustCompile(`(?i)receipt\s+from\s+([\w ]+)`),
	*regexp.MustCompile(`(?i)([\w ]+)\s+receipt`),
	*regexp.MustCompile(`(?i)thank\s+you\s+for\s+shopping\s+at\s+([\w ]+)`),
	*regexp.MustCompile(`(?i)([\w ]+)\s+order\s+confirmation`),
}

var receiptDatePatterns = []regexp.Regexp{
	*regexp.MustCompile(`(?i)date:?\s*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
	*regexp.MustCompile(`(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
	*regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\s+\d{1,2},?\s+\d{2,4}`),
}

var (
	orderPattern    = regexp.MustCompile(`(?i)order\s+(?:number|#)?\s*:?\s*(\w+)`)
	totalPattern    = regexp.MustCompile(`(?i)\btotal\s*:?\s*\$?(\d+\.\d+)`)
	locationPattern = regexp.MustCompile(`(?:at|from)?\s*(.+?(?:\b[A-Z]{2}\s+\d{5}\b|Ave|St|Rd|Blvd))`)
	addressHint     = regexp.MustCompile(`\d+|\bst\b|\bave\b|\bblvd\b|\broad\b`)
	itemPattern     = regexp.MustCompile(`(.*?)\s*\$?(\d+\.\d+)(?:\s|$)`)
	quantityPattern = regexp.MustCompile(`^(\d+)\s*[x*]\s*(.+)$`)
	digitsOnly      = regexp.MustCompile(`^\d+$`)
	pricePattern    = regexp.MustCompile(`\$\d+\.\d+`)
	anyDigit        = regexp.MustCompile(`\d`)
)

var nonItemWords = []string{"subtotal", "tax", "total", "donation", "tip"}

type receipt struct {
	merchant string
	order    string
	date     string
	items    []string
	total    string
	location string
}

func (r receipt) parts() []string {
	var parts []string
	if r.merchant != "" {
		parts = append(parts, r.merchant)
	}
	if r.order != "" {
		parts = append(parts, "Order #"+r.order)
	}
	if r.date != "" {
		parts = append(parts, "on "+r.date)
	}
	switch {
	case len(r.items) > 3:
		parts = append(parts, fmt.Sprintf("%d items", len(r.items)))
	case len(r.items) > 0:
		parts = append(parts, "Items: "+strings.Join(r.items, ", "))
	}
	if r.total != "" {
		parts = append(parts, "Total: $"+r.total)
	}
	if r.location != "" {
		parts = append(parts, "at "+r.location)
	}
	return parts
}

// summarizeReceipt renders merchant, order number, date, items, total and
// location, whichever are found, joined by " - ".
func summarizeReceipt(text string) string {
	lines := strings.Split(text, "\n")
	r := parseReceipt(text, lines)

	if parts := r.parts(); len(parts) > 0 {
		return strings.Join(parts, " - ")
	}

	var key []string
	for _, line := range lines {
		if pricePattern.MatchString(line) && strings.Contains(strings.ToLower(line), "total") {
			key = append(key, strings.TrimSpace(line))
			break
		}
	}
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), "order") && anyDigit.MatchString(line) {
			key = append(key, strings.TrimSpace(line))
			break
		}
	}
	if len(key) > 0 {
		return strings.Join(key, " - ")
	}

	var head []string
	for i, line := range lines {
		if i >= 5 {
			break
		}
		if line = strings.TrimSpace(line); line != "" {
			head = append(head, line)
		}
	}
	return strings.Join(head, " ")
}

func parseReceipt(text string, lines []string) receipt {
	var r receipt

	for i := range merchantPatterns {
		if m := merchantPatterns[i].FindStringSubmatch(text); m != nil {
			r.merchant = strings.TrimSpace(m[1])
			break
		}
	}
	for i := range receiptDatePatterns {
		if m := receiptDatePatterns[i].FindString(text); m != "" {
			r.date = m
			break
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		if r.order == "" {
			if m := orderPattern.FindStringSubmatch(line); m != nil {
				r.order = m[1]
			}
		}
		if r.total == "" {
			if m := totalPattern.FindStringSubmatch(line); m != nil {
				r.total = m[1]
			}
		}
		if r.location == "" && !strings.Contains(lower, "http") {
			if m := locationPattern.FindStringSubmatch(line); m != nil {
				candidate := strings.TrimSpace(m[1])
				if addressHint.MatchString(strings.ToLower(candidate)) {
					r.location = candidate
				}
			}
		}
		if item, ok := receiptItem(line, lower); ok {
			r.items = append(r.items, item)
		}
	}

	return r
}

func receiptItem(line, lower string) (string, bool) {
	for _, w := range nonItemWords {
		if strings.Contains(lower, w) {
			return "", false
		}
	}
	m := itemPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	if len(name) <= 2 || digitsOnly.MatchString(name) {
		return "", false
	}
	if q := quantityPattern.FindStringSubmatch(name); q != nil {
		return q[1] + "x " + q[2], true
	}
	return name, true
}
