package analysis

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	lsaSmoothing     = 0.4
	lsaMinDimensions = 3
)

// rankLSA scores sentences by their weight in the latent topics of a
// words x sentences matrix and returns the top budget indices.
func (a *Analyzer) rankLSA(sents []string, budget int) []int {
	n := len(sents)
	if n == 0 {
		return nil
	}

	rows := make(map[string]int)
	var order []string
	terms := make([][]string, n)
	for j, s := range sents {
		terms[j] = a.stemmedWords(s)
		for _, t := range terms[j] {
			if _, ok := rows[t]; !ok {
				rows[t] = len(order)
				order = append(order, t)
			}
		}
	}
	if len(order) == 0 {
		return topN(make([]float64, n), budget)
	}

	m := mat.NewDense(len(order), n, nil)
	for j, ts := range terms {
		for _, t := range ts {
			m.Set(rows[t], j, m.At(rows[t], j)+1)
		}
	}
	smoothTF(m)

	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDThin) {
		a.log.Debug().Int("sentences", n).Msg("svd did not converge; lsa ranking skipped")
		return topN(make([]float64, n), budget)
	}

	sigma := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)

	dims := len(sigma)
	if dims < lsaMinDimensions {
		dims = lsaMinDimensions
	}

	scores := make([]float64, n)
	_, k := v.Dims()
	for i := 0; i < n; i++ {
		var rank float64
		for d := 0; d < k && d < dims; d++ {
			rank += sigma[d] * sigma[d] * v.At(i, d) * v.At(i, d)
		}
		scores[i] = math.Sqrt(rank)
	}

	return topN(scores, budget)
}

// smoothTF rescales every column by its maximum: 0.4 + 0.6*tf/max.
func smoothTF(m *mat.Dense) {
	r, c := m.Dims()
	for j := 0; j < c; j++ {
		maxTF := 0.0
		for i := 0; i < r; i++ {
			maxTF = math.Max(maxTF, m.At(i, j))
		}
		if maxTF == 0 {
			continue
		}
		for i := 0; i < r; i++ {
			m.Set(i, j, lsaSmoothing+(1-lsaSmoothing)*m.At(i, j)/maxTF)
		}
	}
}
