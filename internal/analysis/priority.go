package analysis

import "strings"

var urgentSubjectTerms = []string{"urgent", "asap", "immediately", "deadline", "critical", "emergency"}

// PriorityInput carries the already computed signals the score uses.
type PriorityInput struct {
	Subject       string
	IsImportant   bool
	Sentiment     string
	NeedsFollowup bool
	Entities      []Entity
}

// PriorityScore combines the signals additively from a base of 5 and clamps
// the result to [1, 10].
func PriorityScore(in PriorityInput) float64 {
	score := 5.0

	if in.IsImportant {
		score += 2.0
	}

	switch in.Sentiment {
	case SentimentUrgent:
		score += 1.5
	case SentimentNegative:
		score += 1.0
	case SentimentPositive:
		score -= 0.5
	}

	if containsPhrase(strings.ToLower(in.Subject), urgentSubjectTerms) {
		score += 0.5
	}

	persons, orgs := 0, 0
	for _, e := range in.Entities {
		switch e.Type {
		case EntityPerson:
			persons++
		case EntityOrg:
			orgs++
		}
	}
	if persons > 2 {
		score += 0.5
	}
	if orgs > 0 {
		score += 0.3
	}

	if in.NeedsFollowup {
		score += 0.7
	}

	return max(1.0, min(10.0, score))
}
