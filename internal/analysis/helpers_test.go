package analysis

import (
	"strings"
	"time"
)

// stubRecognizer reports every configured entity whose text occurs in the
// input, in configuration order.
type stubRecognizer struct {
	entities []Entity
	loadErr  error
}

func (s *stubRecognizer) Load() error { return s.loadErr }

func (s *stubRecognizer) Recognize(text string) ([]Entity, error) {
	var out []Entity
	for _, e := range s.entities {
		if strings.Contains(text, e.Text) {
			out = append(out, e)
		}
	}
	return out, nil
}

// fixedClock returns a clock stuck at the given local time.
func fixedClock(year int, month time.Month, day, hour, minute int) func() time.Time {
	t := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func newTestAnalyzer(opts ...Option) *Analyzer {
	base := []Option{WithClock(fixedClock(2026, time.March, 11, 9, 30))} // a Wednesday
	return New(append(base, opts...)...)
}
