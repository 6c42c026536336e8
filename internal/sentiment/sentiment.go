// Package sentiment scores text polarity with VADER over the stock VADER
// lexicon, optionally extended by a lexicon of overrides.
package sentiment

import (
	"maps"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/jonreiter/govader"

	"github.com/inboxlens/inboxlens/internal/lexicon"
)

// stock decodes the embedded VADER lexicon once per process. It is never
// modified; analyzers with overrides work on copies.
var stock = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// Scores holds the polarity proportions and the normalised compound score.
type Scores struct {
	Negative float64 `json:"neg"`
	Neutral  float64 `json:"neu"`
	Positive float64 `json:"pos"`
	Compound float64 `json:"compound"`
}

// Analyzer computes polarity scores. It is read-only after construction and
// safe for concurrent use.
type Analyzer struct {
	sia *govader.SentimentIntensityAnalyzer
}

// New returns an analyzer over the stock lexicon with the valence, booster
// and negation entries of lex applied on top. lex may be nil.
func New(lex *lexicon.Lexicon) *Analyzer {
	base := stock()
	if lex == nil || !lex.HasSentimentOverrides() {
		return &Analyzer{sia: base}
	}

	constants := *base.Constants
	constants.BoosterDict = maps.Clone(base.Constants.BoosterDict)
	maps.Copy(constants.BoosterDict, lex.Boosters())
	constants.NegateList = slices.Clone(base.Constants.NegateList)
	for _, w := range lex.Negations() {
		if !slices.Contains(constants.NegateList, w) {
			constants.NegateList = append(constants.NegateList, w)
		}
	}

	words := maps.Clone(base.Lexicon)
	maps.Copy(words, lex.Valences())

	return &Analyzer{sia: &govader.SentimentIntensityAnalyzer{
		Lexicon:   words,
		EmojiDict: base.EmojiDict,
		Constants: &constants,
	}}
}

// Compound returns only the compound score in [-1, 1].
func (a *Analyzer) Compound(text string) float64 {
	return a.PolarityScores(text).Compound
}

// PolarityScores scores text. Empty text scores zero everywhere.
func (a *Analyzer) PolarityScores(text string) Scores {
	if strings.TrimSpace(text) == "" {
		return Scores{}
	}
	s := a.sia.PolarityScores(text)
	return Scores{
		Negative: round3(s.Negative),
		Neutral:  round3(s.Neutral),
		Positive: round3(s.Positive),
		Compound: round4(s.Compound),
	}
}

func round4(x float64) float64 { return math.Round(x*1e4) / 1e4 }
func round3(x float64) float64 { return math.Round(x*1e3) / 1e3 }
