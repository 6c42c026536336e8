package analysis

import (
	"regexp"
	"strings"
)

type category struct {
	name     string
	keywords []*regexp.Regexp
}

func wholeWords(words ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}

// categories are scored in declaration order; ties go to the earlier entry.
var categories = []category{
	{"Meeting", wholeWords("meeting", "appointment", "schedule", "calendar", "discussion", "call", "zoom", "teams", "meet", "conference")},
	{"Sales", wholeWords("sales", "deal", "offer", "discount", "purchase", "buy", "price", "demo", "product", "subscription", "trial")},
	{"Update", wholeWords("update", "status", "progress", "report", "news", "change", "release", "announcement", "newsletter")},
	{"Personal", wholeWords("friend", "family", "personal", "vacation", "holiday", "birthday", "congratulations", "invitation")},
	{"Finance", wholeWords("invoice", "payment", "bill", "receipt", "financial", "transaction", "expense", "budget", "tax", "money")},
	{"Technical", wholeWords("bug", "error", "issue", "technical", "support", "fix", "code", "development", "feature", "server", "api", "deploy")},
	{"Promotional", wholeWords("promotional", "marketing", "newsletter", "offer", "free", "discount", "limited", "exclusive", "promotion")},
}

const minCategoryScore = 2.0

// Categorize scores each category by whole-word keyword hits in subject and
// content, adds 0.5 to Meeting per DATE or TIME entity, and returns the
// strictly highest scorer, or "Other" below a score of 2.
func Categorize(subject, content string, entities []Entity) string {
	text := strings.ToLower(subject + " " + content)

	best, bestScore := CategoryOther, 0.0
	for _, c := range categories {
		score := 0.0
		for _, kw := range c.keywords {
			if kw.MatchString(text) {
				score++
			}
		}
		if c.name == "Meeting" {
			for _, e := range entities {
				if e.Type == EntityDate || e.Type == EntityTime {
					score += 0.5
				}
			}
		}
		if score > bestScore {
			best, bestScore = c.name, score
		}
	}

	if bestScore < minCategoryScore {
		return CategoryOther
	}
	return best
}

// Categories lists the category labels in scoring order, followed by Other.
func Categories() []string {
	out := make([]string, 0, len(categories)+1)
	for _, c := range categories {
		out = append(out, c.name)
	}
	return append(out, CategoryOther)
}
