package analysis

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	lexrankThreshold = 0.1
	lexrankEpsilon   = 0.1
	lexrankMaxIter   = 100
)

// rankLexRank scores sentences by eigenvector centrality over an
// idf-weighted cosine similarity graph and returns the top budget indices.
func (a *Analyzer) rankLexRank(sents []string, budget int) []int {
	n := len(sents)
	if n == 0 {
		return nil
	}

	terms := make([][]string, n)
	tf := make([]map[string]float64, n)
	docFreq := make(map[string]int)
	for i, s := range sents {
		terms[i] = a.stemmedWords(s)
		tf[i] = normalizedTF(terms[i])
		for t := range tf[i] {
			docFreq[t]++
		}
	}

	idf := make(map[string]float64, len(docFreq))
	for t, df := range docFreq {
		idf[t] = math.Log(float64(n) / float64(1+df))
	}

	adj := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		degree := 0.0
		for j := 0; j < n; j++ {
			if idfCosine(terms[i], terms[j], tf[i], tf[j], idf) > lexrankThreshold {
				adj.Set(i, j, 1)
				degree++
			}
		}
		if degree == 0 {
			degree = 1
		}
		for j := 0; j < n; j++ {
			adj.Set(i, j, adj.At(i, j)/degree)
		}
	}

	return topN(powerMethod(adj, n), budget)
}

// normalizedTF is each term's count divided by the most frequent term's count.
func normalizedTF(terms []string) map[string]float64 {
	counts := make(map[string]float64, len(terms))
	maxCount := 0.0
	for _, t := range terms {
		counts[t]++
		if counts[t] > maxCount {
			maxCount = counts[t]
		}
	}
	for t := range counts {
		counts[t] /= maxCount
	}
	return counts
}

func idfCosine(s1, s2 []string, tf1, tf2, idf map[string]float64) float64 {
	var num float64
	for t := range tf1 {
		if w2, ok := tf2[t]; ok {
			num += tf1[t] * w2 * idf[t] * idf[t]
		}
	}

	var d1, d2 float64
	for _, t := range s1 {
		d1 += math.Pow(tf1[t]*idf[t], 2)
	}
	for _, t := range s2 {
		d2 += math.Pow(tf2[t]*idf[t], 2)
	}
	if d1 == 0 || d2 == 0 {
		return 0
	}
	return num / (math.Sqrt(d1) * math.Sqrt(d2))
}

// powerMethod iterates p = M^T p from the uniform vector until the step
// size falls below epsilon.
func powerMethod(m *mat.Dense, n int) []float64 {
	init := make([]float64, n)
	for i := range init {
		init[i] = 1 / float64(n)
	}
	p := mat.NewVecDense(n, init)

	next := mat.NewVecDense(n, nil)
	diff := mat.NewVecDense(n, nil)
	for iter := 0; iter < lexrankMaxIter; iter++ {
		next.MulVec(m.T(), p)
		diff.SubVec(next, p)
		p.CopyVec(next)
		if mat.Norm(diff, 2) <= lexrankEpsilon {
			break
		}
	}

	return mat.Col(nil, 0, p)
}
