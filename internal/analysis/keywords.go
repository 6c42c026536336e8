package analysis

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

const minKeywordTokens = 5

// asciiPunct is removed before tokenising, so "e-mail" becomes "email".
var asciiPunct = strings.NewReplacer(
	"!", "", `"`, "", "#", "", "$", "", "%", "", "&", "", "'", "", "(", "", ")", "",
	"*", "", "+", "", ",", "", "-", "", ".", "", "/", "", ":", "", ";", "", "<", "",
	"=", "", ">", "", "?", "", "@", "", "[", "", `\`, "", "]", "", "^", "", "_", "",
	"`", "", "{", "", "|", "", "}", "", "~", "",
)

// ExtractKeywords ranks the terms of a single document by TF-IDF. With one
// document every idf is 1, so the score is the l2-normalised term count over
// the topN most frequent terms. Text with fewer than five usable tokens
// yields no keywords. A topN <= 0 uses the analyzer's default.
func (a *Analyzer) ExtractKeywords(text string, topN int) []Keyword {
	if topN <= 0 {
		topN = a.keywordLimit
	}
	out := []Keyword{}

	var tokens []string
	for _, w := range strings.Fields(asciiPunct.Replace(strings.ToLower(text))) {
		for _, tok := range wordPattern.FindAllString(w, -1) {
			if utf8.RuneCountInString(tok) > 2 && !a.lex.IsStopword(tok) {
				tokens = append(tokens, tok)
			}
		}
	}
	if len(tokens) < minKeywordTokens {
		return out
	}

	counts := make(map[string]int)
	for _, t := range tokens {
		counts[t]++
	}
	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > topN {
		terms = terms[:topN]
	}

	var norm float64
	for _, t := range terms {
		norm += float64(counts[t] * counts[t])
	}
	norm = math.Sqrt(norm)

	for _, t := range terms {
		if score := float64(counts[t]) / norm; score > 0 {
			out = append(out, Keyword{Word: t, Score: score})
		}
	}
	return out
}
