package analysis

import (
	"regexp"
	"strings"
)

var urgencyPattern = regexp.MustCompile(`\b(?:urgent|asap|immediately|deadline|critical|emergency)\b`)

const sentimentThreshold = 0.05

// AnalyzeSentiment returns a label and the compound polarity in [-1, 1].
// Any urgency term labels the text Urgent whatever its polarity.
func (a *Analyzer) AnalyzeSentiment(text string) (string, float64) {
	if strings.TrimSpace(text) == "" {
		return SentimentNeutral, 0
	}

	compound := a.sentiment.Compound(text)

	switch {
	case urgencyPattern.MatchString(strings.ToLower(text)):
		return SentimentUrgent, compound
	case compound >= sentimentThreshold:
		return SentimentPositive, compound
	case compound <= -sentimentThreshold:
		return SentimentNegative, compound
	default:
		return SentimentNeutral, compound
	}
}
