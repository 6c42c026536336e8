package analysis

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jdkato/prose/v2"
)

// Recognizer finds named entities in text.
type Recognizer interface {
	// Load prepares the model. It is called once when the Analyzer is built.
	Load() error
	Recognize(text string) ([]Entity, error)
}

// ExtractEntities returns the entities of text whose label is one of
// PERSON, ORG, GPE, DATE, TIME, MONEY, PRODUCT or LOC. It returns an empty
// slice when no recognizer is loaded or recognition fails.
func (a *Analyzer) ExtractEntities(text string) []Entity {
	out := []Entity{}
	if a.recognizer == nil || text == "" {
		return out
	}

	found, err := a.recognizer.Recognize(text)
	if err != nil {
		a.log.Debug().Err(err).Msg("entity recognition failed")
		return out
	}
	for _, e := range found {
		if keptEntityTypes[e.Type] {
			out = append(out, e)
		}
	}
	return out
}

// DefaultRecognizer combines the prose NER model with pattern rules for
// organisations, dates, times and amounts of money. The prose model has no
// ORG label; its PERSON spans that overlap an organisation are dropped in
// favour of the ORG span.
func DefaultRecognizer() Recognizer {
	return NewMultiRecognizer(&ProseRecognizer{}, NewRuleRecognizer())
}

// ProseRecognizer wraps the averaged-perceptron NER model shipped with prose.
type ProseRecognizer struct{}

const probeText = "Jane Doe from Acme Corp will visit London on Monday."

func (p *ProseRecognizer) Load() (err error) {
	// The model is decoded from embedded assets on first use.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to load prose model: %v", r)
		}
	}()
	_, err = prose.NewDocument(probeText, prose.WithSegmentation(false))
	if err != nil {
		return fmt.Errorf("failed to load prose model: %w", err)
	}
	return nil
}

func (p *ProseRecognizer) Recognize(text string) (out []Entity, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("prose panicked: %v", r)
		}
	}()
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("failed to tag document: %w", err)
	}
	for _, ent := range doc.Entities() {
		out = append(out, Entity{Text: ent.Text, Type: EntityType(ent.Label)})
	}
	return out, nil
}

type entityRule struct {
	regex *regexp.Regexp
	label EntityType
	// trimLead drops capitalised function words ("With", "Dear") the
	// match picked up at its start.
	trimLead bool
}

// leadingNoise are capitalised words that start sentences or greetings
// rather than company names.
var leadingNoise = map[string]bool{
	"A": true, "An": true, "And": true, "At": true, "By": true, "Dear": true,
	"For": true, "From": true, "Hello": true, "Hi": true, "In": true, "Of": true,
	"On": true, "Or": true, "Thanks": true, "The": true, "To": true, "With": true,
}

// RuleRecognizer tags ORG, DATE, TIME and MONEY spans by pattern.
type RuleRecognizer struct {
	rules []entityRule
}

func NewRuleRecognizer() *RuleRecognizer {
	return &RuleRecognizer{rules: []entityRule{
		// Capitalised names with a corporate suffix (Acme Corp, Google Inc., IBM Corporation)
		{regex: regexp.MustCompile(`\b(?:[A-Z][A-Za-z0-9&'-]*[ \t]+){1,3}(?:Inc\b\.?|Corp\b\.?|Corporation\b|LLC\b|Ltd\b\.?|GmbH\b|Co\.|PLC\b)`), label: EntityOrg, trimLead: true},
		// ISO dates (2026-01-15)
		{regex: regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), label: EntityDate},
		// Natural language dates (March 15, 2026; March 15th; January 2024)
		{regex: regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December)(?:\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?|\s+\d{4})\b`), label: EntityDate},
		// Numeric dates (12/25, 12/25/2026)
		{regex: regexp.MustCompile(`\b\d{1,2}/\d{1,2}(?:/\d{2,4})?\b`), label: EntityDate},
		// Weekdays and relative days
		{regex: regexp.MustCompile(`\b(?:Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday|[Tt]oday|[Tt]omorrow|[Yy]esterday)\b`), label: EntityDate},
		// Clock times (3:30 pm, 15:00, 9am)
		{regex: regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}(?:\s?[ap]\.?m\.?)?|\b\d{1,2}\s?[ap]m\b`), label: EntityTime},
		// Money ($1,000, $18K, $42.50)
		{regex: regexp.MustCompile(`\$\d+(?:,\d{3})*(?:\.\d+)?[KMB]?\b`), label: EntityMoney},
	}}
}

func (r *RuleRecognizer) Load() error {
	if len(r.rules) == 0 {
		return errors.New("no entity rules configured")
	}
	return nil
}

type span struct {
	start, end int
	entity     Entity
}

// Recognize returns non-overlapping matches in text order. Earlier rules
// win over later ones on overlap.
func (r *RuleRecognizer) Recognize(text string) ([]Entity, error) {
	var spans []span
	for _, rule := range r.rules {
		for _, loc := range rule.regex.FindAllStringIndex(text, -1) {
			if rule.trimLead {
				loc[0] = trimLeadingNoise(text, loc[0], loc[1])
			}
			overlaps := false
			for _, s := range spans {
				if loc[0] < s.end && loc[1] > s.start {
					overlaps = true
					break
				}
			}
			if !overlaps {
				spans = append(spans, span{loc[0], loc[1], Entity{Text: text[loc[0]:loc[1]], Type: rule.label}})
			}
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	out := make([]Entity, len(spans))
	for i, s := range spans {
		out[i] = s.entity
	}
	return out, nil
}

// trimLeadingNoise advances start past leading words in leadingNoise while
// at least two words remain.
func trimLeadingNoise(text string, start, end int) int {
	for {
		word, rest, ok := strings.Cut(text[start:end], " ")
		if !ok || !leadingNoise[word] || !strings.Contains(strings.TrimSpace(rest), " ") {
			return start
		}
		start += len(word) + 1
		for start < end && text[start] == ' ' {
			start++
		}
	}
}

// MultiRecognizer concatenates the output of several recognizers and
// reconciles their labels. It loads if at least one member loads; members
// that fail to load are skipped.
type MultiRecognizer struct {
	members []Recognizer
	loaded  []Recognizer
}

func NewMultiRecognizer(members ...Recognizer) *MultiRecognizer {
	return &MultiRecognizer{members: members}
}

func (m *MultiRecognizer) Load() error {
	var errs []error
	m.loaded = m.loaded[:0]
	for _, r := range m.members {
		if err := r.Load(); err != nil {
			errs = append(errs, err)
			continue
		}
		m.loaded = append(m.loaded, r)
	}
	if len(m.loaded) == 0 {
		return errors.Join(append(errs, errors.New("no recognizer available"))...)
	}
	return nil
}

func (m *MultiRecognizer) Recognize(text string) ([]Entity, error) {
	var out []Entity
	var errs []error
	for _, r := range m.loaded {
		found, err := r.Recognize(text)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, found...)
	}
	if len(errs) > 0 && len(errs) == len(m.loaded) {
		return nil, errors.Join(errs...)
	}
	return reconcile(out), nil
}

var acronymPattern = regexp.MustCompile(`^[A-Z]{2,6}$`)

// reconcile relabels single acronyms tagged PERSON as ORG, drops PERSON
// spans that overlap an ORG span and removes repeated (text, type) pairs.
func reconcile(found []Entity) []Entity {
	for i, e := range found {
		if e.Type == EntityPerson && acronymPattern.MatchString(e.Text) {
			found[i].Type = EntityOrg
		}
	}

	var orgs []string
	for _, e := range found {
		if e.Type == EntityOrg {
			orgs = append(orgs, e.Text)
		}
	}

	out := make([]Entity, 0, len(found))
	seen := make(map[Entity]bool, len(found))
	for _, e := range found {
		if e.Type == EntityPerson && overlapsAny(e.Text, orgs) {
			continue
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func overlapsAny(text string, spans []string) bool {
	for _, s := range spans {
		if strings.Contains(s, text) || strings.Contains(text, s) {
			return true
		}
	}
	return false
}
