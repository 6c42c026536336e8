package analysis

import "strings"

// rankFrequency scores each sentence by the mean corpus frequency of its
// content words, weighted up at the edges of the text and down for very
// short or very long sentences. It returns the top budget indices.
func (a *Analyzer) rankFrequency(sents []string, budget int) []int {
	freq := make(map[string]int)
	perSentence := make([][]string, len(sents))
	for i, s := range sents {
		perSentence[i] = a.contentWords(s)
		for _, w := range perSentence[i] {
			freq[w]++
		}
	}

	scores := make([]float64, len(sents))
	for i, ws := range perSentence {
		if len(ws) == 0 {
			continue
		}

		position := 1.0
		if i == 0 || i == len(sents)-1 {
			position = 1.5
		}
		length := 1.0
		switch {
		case len(ws) < 3:
			length = 0.5
		case len(ws) > 25:
			length = 0.7
		}

		total := 0
		for _, w := range ws {
			total += freq[w]
		}
		scores[i] = float64(total) / float64(len(ws)) * position * length
	}

	return topN(scores, budget)
}

// summarizeByFrequency renders the frequency ranking alone.
func (a *Analyzer) summarizeByFrequency(text string, budget int) string {
	sents := sentences(text)
	if len(sents) <= budget {
		return collapseSpace(text)
	}
	var out []string
	for _, i := range a.rankFrequency(sents, budget) {
		out = append(out, sents[i])
	}
	return strings.Join(out, " ")
}
