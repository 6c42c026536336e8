package analysis

import (
	"sort"
	"strings"
)

var importantSubjectWords = []string{
	"urgent", "important", "critical", "deadline", "asap",
	"attention", "immediately", "required", "action",
}

var importantContentPhrases = []string{
	"as soon as possible",
	"urgent matter",
	"immediate attention",
	"please respond",
	"need your input",
	"action required",
	"deadline",
	"by tomorrow",
	"high priority",
}

const importanceThreshold = 3.0

// DetectImportance adds 2 per urgent subject word, 1 per urgent content
// phrase, 0.5 per PERSON or ORG entity and half the score of each of the
// top three keywords. A total above 3 is important.
func DetectImportance(subject, content string, entities []Entity, keywords []Keyword) bool {
	score := 0.0

	subjectLower := strings.ToLower(subject)
	for _, w := range importantSubjectWords {
		if strings.Contains(subjectLower, w) {
			score += 2
		}
	}

	contentLower := strings.ToLower(content)
	for _, p := range importantContentPhrases {
		if strings.Contains(contentLower, p) {
			score++
		}
	}

	for _, e := range entities {
		if e.Type == EntityPerson || e.Type == EntityOrg {
			score += 0.5
		}
	}

	top := append([]Keyword(nil), keywords...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Score > top[j].Score })
	if len(top) > 3 {
		top = top[:3]
	}
	for _, k := range top {
		score += k.Score * 0.5
	}

	return score > importanceThreshold
}
