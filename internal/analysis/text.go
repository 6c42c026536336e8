package analysis

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
	"github.com/kljensen/snowball"
)

var (
	wordPattern      = regexp.MustCompile(`[\p{L}\p{N}]+`)
	sentenceBoundary = regexp.MustCompile(`[.!?]+["')\]]*\s+`)
)

// sentences splits text into whitespace-normalised sentences with the
// punkt segmenter, falling back to punctuation boundaries.
func sentences(text string) []string {
	text = collapseSpace(text)
	if text == "" {
		return nil
	}

	var out []string
	doc, err := prose.NewDocument(text,
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err == nil {
		for _, s := range doc.Sentences() {
			if s := collapseSpace(s.Text); s != "" {
				out = append(out, s)
			}
		}
	}
	if len(out) > 0 {
		return out
	}
	return splitOnPunctuation(text)
}

func splitOnPunctuation(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[start:loc[1]]); s != "" {
			out = append(out, s)
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// words returns the lowercase alphanumeric tokens of text.
func words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// contentWords drops stopwords from words(text).
func (a *Analyzer) contentWords(text string) []string {
	all := words(text)
	out := all[:0]
	for _, w := range all {
		if !a.lex.IsStopword(w) {
			out = append(out, w)
		}
	}
	return out
}

// stemmedWords are the snowball stems of the content words of text.
func (a *Analyzer) stemmedWords(text string) []string {
	cw := a.contentWords(text)
	out := make([]string, 0, len(cw))
	for _, w := range cw {
		stem, err := snowball.Stem(w, "english", true)
		if err != nil || stem == "" {
			stem = w
		}
		out = append(out, stem)
	}
	return out
}

// titleCase upper-cases the first letter of every letter run and lowers
// the rest.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}
