// Package lexicon holds the word lists the analysis pipeline reads. The
// embedded default carries the stopwords. Sentiment valences, intensity
// boosters and negations loaded from YAML files are overrides applied on top
// of the stock VADER lexicon by package sentiment.
package lexicon

import (
	_ "embed"
	"fmt"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/default.yaml
var defaultData []byte

// Valences are clamped to the VADER range.
const maxValence = 4.0

// Boosters raise or lower the intensity of the word that follows them.
type Boosters struct {
	Increment []string `yaml:"increment,omitempty"`
	Decrement []string `yaml:"decrement,omitempty"`
}

// File is the on-disk layout of a lexicon file.
type File struct {
	Valences  map[string]float64 `yaml:"valences,omitempty"`
	Boosters  Boosters           `yaml:"boosters,omitempty"`
	Negations []string           `yaml:"negations,omitempty"`
	Stopwords []string           `yaml:"stopwords,omitempty"`
}

// Lexicon is the merged, read-only view used at analysis time.
type Lexicon struct {
	valences  map[string]float64
	boosters  map[string]float64
	negations map[string]bool
	stopwords map[string]bool
}

// BoosterIncrement is the VADER intensity step for booster words.
const BoosterIncrement = 0.293

func sanitizeFile(f *File) {
	clean := make(map[string]float64, len(f.Valences))
	for word, v := range f.Valences {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" || math.IsNaN(v) {
			continue
		}
		clean[word] = math.Max(-maxValence, math.Min(maxValence, v))
	}
	f.Valences = clean
}

func empty() *Lexicon {
	return &Lexicon{
		valences:  make(map[string]float64),
		boosters:  make(map[string]float64),
		negations: make(map[string]bool),
		stopwords: make(map[string]bool),
	}
}

// Default returns the embedded lexicon.
func Default() *Lexicon {
	lex, err := Parse(defaultData)
	if err != nil {
		// the embedded file is part of the build
		panic(fmt.Sprintf("lexicon: embedded data is invalid: %v", err))
	}
	return lex
}

// Parse builds a lexicon from YAML bytes.
func Parse(data []byte) (*Lexicon, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	lex := empty()
	lex.apply(f)
	return lex, nil
}

// LoadFromFile reads a single lexicon file.
func LoadFromFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file: %w", err)
	}
	return Parse(data)
}

// LoadFromDir merges every .yaml/.yml file in dir on top of the default
// lexicon, in directory order.
func LoadFromDir(dir string) (*Lexicon, error) {
	lex := Default()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".yaml") && !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		partial, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", entry.Name(), err)
		}
		lex.Merge(partial)
	}

	return lex, nil
}

func (l *Lexicon) apply(f File) {
	sanitizeFile(&f)
	for word, v := range f.Valences {
		l.valences[word] = v
	}
	for _, w := range f.Boosters.Increment {
		l.boosters[strings.ToLower(w)] = BoosterIncrement
	}
	for _, w := range f.Boosters.Decrement {
		l.boosters[strings.ToLower(w)] = -BoosterIncrement
	}
	for _, w := range f.Negations {
		l.negations[strings.ToLower(w)] = true
	}
	for _, w := range f.Stopwords {
		l.stopwords[strings.ToLower(w)] = true
	}
}

// Merge copies other's entries into l. Entries in other win.
func (l *Lexicon) Merge(other *Lexicon) {
	if other == nil {
		return
	}
	for k, v := range other.valences {
		l.valences[k] = v
	}
	for k, v := range other.boosters {
		l.boosters[k] = v
	}
	for k := range other.negations {
		l.negations[k] = true
	}
	for k := range other.stopwords {
		l.stopwords[k] = true
	}
}

// Valence returns the sentiment valence of a lowercase word.
func (l *Lexicon) Valence(word string) (float64, bool) {
	v, ok := l.valences[word]
	return v, ok
}

// Booster returns the booster scalar for a lowercase word, or 0.
func (l *Lexicon) Booster(word string) float64 {
	return l.boosters[word]
}

// IsNegation reports whether word negates what follows. Apostrophes are
// ignored so "don't" and "dont" are the same entry.
func (l *Lexicon) IsNegation(word string) bool {
	if l.negations[word] {
		return true
	}
	return l.negations[strings.ReplaceAll(word, "'", "")]
}

// IsStopword reports whether a lowercase token is a stopword.
func (l *Lexicon) IsStopword(word string) bool {
	return l.stopwords[word]
}

// Size returns the number of valence entries.
func (l *Lexicon) Size() int { return len(l.valences) }

// HasSentimentOverrides reports whether any valence, booster or negation
// entry was loaded.
func (l *Lexicon) HasSentimentOverrides() bool {
	return len(l.valences) > 0 || len(l.boosters) > 0 || len(l.negations) > 0
}

// Valences returns a copy of the valence entries.
func (l *Lexicon) Valences() map[string]float64 { return maps.Clone(l.valences) }

// Boosters returns a copy of the booster scalars.
func (l *Lexicon) Boosters() map[string]float64 { return maps.Clone(l.boosters) }

// Negations returns the negation words in sorted order.
func (l *Lexicon) Negations() []string {
	return slices.Sorted(maps.Keys(l.negations))
}
