package analysis

import (
	"sort"
	"strings"
)

// Summarize produces an extractive summary of text. Receipts and lists get
// dedicated renderings; prose is summarised by three rankers whose picks are
// combined by vote. A budget <= 0 uses the analyzer's default.
func (a *Analyzer) Summarize(text string, budget int) string {
	if budget <= 0 {
		budget = a.summaryBudget
	}
	return a.summarize(text, DetectContentType(text), budget)
}

func (a *Analyzer) summarize(text string, ct ContentType, budget int) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	switch ct {
	case ContentReceipt:
		return summarizeReceipt(text)
	case ContentList:
		return a.summarizeList(text, budget)
	}

	flat := collapseSpace(text)
	sents := sentences(flat)
	if len(sents) <= budget {
		return flat
	}

	picked := combineRankings(sents, budget,
		a.rankLexRank(sents, budget),
		a.rankLSA(sents, budget),
		a.rankFrequency(sents, budget),
	)

	out := make([]string, len(picked))
	for i, idx := range picked {
		out[i] = sents[idx]
	}
	return strings.Join(out, " ")
}

// combineRankings merges three top-budget picks. Sentences chosen by all
// rankers come first, then those chosen by two, then a round robin over the
// lexrank, frequency and lsa picks, then unused sentences in document order.
// Membership is decided on sentence text. The result is in document order.
func combineRankings(sents []string, budget int, lexrank, lsa, freq []int) []int {
	member := func(idx []int) map[string]bool {
		m := make(map[string]bool, len(idx))
		for _, i := range idx {
			m[sents[i]] = true
		}
		return m
	}
	inLex, inLSA, inFreq := member(lexrank), member(lsa), member(freq)

	chosen := make(map[string]bool, budget)
	var picked []int
	add := func(i int) {
		chosen[sents[i]] = true
		picked = append(picked, i)
	}

	for i, s := range sents {
		if !chosen[s] && inLex[s] && inLSA[s] && inFreq[s] {
			add(i)
		}
	}

	for i, s := range sents {
		if len(picked) >= budget {
			break
		}
		if chosen[s] {
			continue
		}
		votes := 0
		for _, in := range []map[string]bool{inLex, inLSA, inFreq} {
			if in[s] {
				votes++
			}
		}
		if votes >= 2 {
			add(i)
		}
	}

	queues := [][]int{lexrank, freq, lsa}
	for len(picked) < budget {
		progressed := false
		for q := range queues {
			for len(queues[q]) > 0 && chosen[sents[queues[q][0]]] {
				queues[q] = queues[q][1:]
			}
			if len(queues[q]) == 0 {
				continue
			}
			add(queues[q][0])
			queues[q] = queues[q][1:]
			progressed = true
			if len(picked) >= budget {
				break
			}
		}
		if !progressed {
			break
		}
	}

	for i, s := range sents {
		if len(picked) >= budget {
			break
		}
		if !chosen[s] {
			add(i)
		}
	}

	if len(picked) > budget {
		picked = picked[:budget]
	}
	sort.Ints(picked)
	return picked
}

// topN returns the indices of the n highest scores, ties broken by
// document order, themselves sorted in document order.
func topN(scores []float64, n int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(x, y int) bool {
		return scores[idx[x]] > scores[idx[y]]
	})
	if n < len(idx) {
		idx = idx[:n]
	}
	sort.Ints(idx)
	return idx
}
