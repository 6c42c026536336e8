package inbox

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// URL regex to find URLs in plain text
	urlRegex = regexp.MustCompile(`https?://[^\s<>"']+`)

	// Email tracking/pixel patterns (to exclude)
	trackingPatterns = []string{
		"track", "pixel", "beacon",
		"open.gif", "spacer.gif",
		"1x1", "unsubscribe-tracking",
	}

	blockElements = "p, div, li, tr, h1, h2, h3, h4, h5, h6, blockquote, table"
)

// PrepareHTML reduces an HTML body to text with one line per block element.
// Script, style and head content is dropped; quoted blockquotes become
// "> " lines so the normalizer removes them like quoted plain text.
func PrepareHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	doc.Find("script, style, head, noscript, title").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	// Outermost quotes only; nested ones are already part of their text.
	doc.Find("blockquote").Not("blockquote blockquote").Each(func(_ int, s *goquery.Selection) {
		var quoted []string
		for _, line := range strings.Split(s.Text(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				quoted = append(quoted, "> "+line)
			}
		}
		s.ReplaceWithHtml("\n" + escapeText(strings.Join(quoted, "\n")) + "\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func escapeText(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// ExtractLinks returns the distinct http(s) links of an email in the order
// they appear, without tracking pixels.
func ExtractLinks(email *Email) []string {
	var all []string
	if email.Body != "" {
		all = append(all, urlRegex.FindAllString(email.Body, -1)...)
	}
	if email.HTMLBody != "" {
		all = append(all, extractURLsFromHTML(email.HTMLBody)...)
	}

	links := []string{}
	seen := make(map[string]bool)
	for _, raw := range all {
		clean := cleanURL(raw)
		if clean == "" || seen[clean] || isTrackingURL(clean) {
			continue
		}
		seen[clean] = true
		links = append(links, clean)
	}
	return links
}

// extractURLsFromHTML extracts href values from HTML
func extractURLsFromHTML(html string) []string {
	var urls []string

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return urlRegex.FindAllString(html, -1)
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, exists := s.Attr("href"); exists {
			urls = append(urls, href)
		}
	})

	// Also check for URLs in plain text within the HTML
	urls = append(urls, urlRegex.FindAllString(doc.Text(), -1)...)
	return urls
}

// cleanURL normalizes and validates a URL
func cleanURL(rawURL string) string {
	rawURL = strings.TrimRight(rawURL, ".,;:!?)")

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	if parsed.Host == "" {
		return ""
	}
	return parsed.String()
}

// isTrackingURL checks if URL is likely a tracking pixel
func isTrackingURL(u string) bool {
	lowerURL := strings.ToLower(u)
	for _, pattern := range trackingPatterns {
		if strings.Contains(lowerURL, pattern) {
			return true
		}
	}
	return strings.HasSuffix(lowerURL, ".gif")
}
