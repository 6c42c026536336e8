package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxlens/inboxlens/internal/lexicon"
)

func TestCompoundPolarity(t *testing.T) {
	a := New(nil)

	tests := []struct {
		name string
		text string
		sign int
	}{
		{"positive", "Thanks, this is a great result and I am happy with it.", 1},
		{"negative", "The deploy failed and the outage was terrible.", -1},
		{"neutral", "The meeting is on the third floor.", 0},
		{"negated positive", "This is not good.", -1},
		{"but shifts weight", "The food was good but the service was horrible.", -1},
		{"anger", "I am furious, the launch is ruined.", -1},
		{"delight", "We are thrilled with the unbelievable turnout, what a triumph.", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Compound(tt.text)
			switch tt.sign {
			case 1:
				assert.Greater(t, got, 0.05)
			case -1:
				assert.Less(t, got, -0.05)
			default:
				assert.InDelta(t, 0, got, 0.05)
			}
		})
	}
}

func TestCompoundBounded(t *testing.T) {
	a := New(nil)
	text := "GREAT great wonderful amazing excellent perfect love love love!!!!!!"
	got := a.Compound(text)
	assert.LessOrEqual(t, got, 1.0)
	assert.Greater(t, got, 0.9)
}

func TestIntensifiers(t *testing.T) {
	a := New(nil)
	plain := a.Compound("The release is good.")
	boosted := a.Compound("The release is very good.")
	caps := a.Compound("The release is GOOD.")
	exclaimed := a.Compound("The release is good!!")

	assert.Greater(t, boosted, plain)
	assert.Greater(t, caps, plain)
	assert.Greater(t, exclaimed, plain)
}

func TestEmptyText(t *testing.T) {
	a := New(nil)
	assert.Equal(t, Scores{}, a.PolarityScores(""))
	assert.Equal(t, Scores{}, a.PolarityScores("   \n\t"))
}

func TestProportionsSumToOne(t *testing.T) {
	s := New(nil).PolarityScores("I love the new dashboard but the login is broken.")
	assert.InDelta(t, 1.0, s.Positive+s.Negative+s.Neutral, 0.01)
}

func TestStockLexicon(t *testing.T) {
	// "The book was good." scores 0.4404 in the reference VADER implementation.
	assert.InDelta(t, 0.4404, New(nil).Compound("The book was good."), 1e-4)
}

func TestOverrides(t *testing.T) {
	lex, err := lexicon.Parse([]byte("valences:\n  shipit: 3\nnegations: [hardly]\n"))
	require.NoError(t, err)
	stock, custom := New(nil), New(lex)

	assert.Zero(t, stock.Compound("We shipit today."))
	assert.Greater(t, custom.Compound("We shipit today."), 0.05)

	assert.Greater(t, stock.Compound("This is hardly good."), 0.0)
	assert.Less(t, custom.Compound("This is hardly good."), 0.0)

	assert.Zero(t, New(nil).Compound("We shipit today."), "overrides do not leak into the stock analyzer")
}
