package analysis

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractKeywords(t *testing.T) {
	a := newTestAnalyzer()

	t.Run("too few tokens", func(t *testing.T) {
		assert.Empty(t, a.ExtractKeywords("The cat sat on the mat.", 10))
		assert.Empty(t, a.ExtractKeywords("", 10))
	})

	t.Run("ranked by frequency", func(t *testing.T) {
		text := "Budget review: the budget draft, budget owners and the review calendar. Invoice attached."
		got := a.ExtractKeywords(text, 10)
		require.NotEmpty(t, got)

		assert.Equal(t, "budget", got[0].Word)
		assert.Equal(t, "review", got[1].Word)
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
		}

		var sumSquares float64
		for _, k := range got {
			assert.Greater(t, k.Score, 0.0)
			sumSquares += k.Score * k.Score
		}
		assert.InDelta(t, 1.0, sumSquares, 1e-9)
	})

	t.Run("limited to topN", func(t *testing.T) {
		text := "alpha bravo charlie delta echo foxtrot golf hotel india juliet"
		got := a.ExtractKeywords(text, 3)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"alpha", "bravo", "charlie"}, []string{got[0].Word, got[1].Word, got[2].Word})
		assert.InDelta(t, 1/math.Sqrt(3), got[0].Score, 1e-9)
	})

	t.Run("punctuation removed inside words", func(t *testing.T) {
		got := a.ExtractKeywords("follow-up follow-up e-mail meeting agenda notes", 10)
		require.NotEmpty(t, got)
		assert.Equal(t, "followup", got[0].Word)
	})
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		content  string
		entities []Entity
		expected string
	}{
		{"meeting", "Schedule a call", "Can we meet on zoom?", nil, "Meeting"},
		{"finance", "Invoice 42", "Payment is due; the receipt is attached.", nil, "Finance"},
		{"technical", "Bug in api", "The server returns an error.", nil, "Technical"},
		{"below threshold", "Hello", "Just one update for you.", nil, CategoryOther},
		{"whole words only", "Meetings", "callback teamsters", nil, CategoryOther},
		{
			name:     "date entities boost meeting",
			subject:  "Sync",
			content:  "Let's have a discussion.",
			entities: []Entity{{"Monday", EntityDate}, {"3pm", EntityTime}},
			expected: "Meeting",
		},
		{"tie goes to earlier category", "offer", "discount", nil, "Sales"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Categorize(tt.subject, tt.content, tt.entities))
		})
	}
}

func TestDetectImportance(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		content  string
		entities []Entity
		keywords []Keyword
		expected bool
	}{
		{"two urgent subject words", "URGENT: action needed", "", nil, nil, true},
		{"one subject word only", "Important", "", nil, nil, false},
		{"subject plus phrase", "Deadline", "Please respond as soon as possible.", nil, nil, true},
		{
			name:     "entities and keywords add up",
			subject:  "Hello",
			content:  "high priority",
			entities: []Entity{{"Ann Lee", EntityPerson}, {"Acme", EntityOrg}, {"Bo Chen", EntityPerson}, {"Paris", EntityGPE}},
			keywords: []Keyword{{"a", 1}, {"b", 1}, {"c", 0.5}, {"d", 1}},
			expected: true,
		},
		{"nothing", "Lunch", "See you at noon", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectImportance(tt.subject, tt.content, tt.entities, tt.keywords))
		})
	}
}

func TestAnalyzeSentiment(t *testing.T) {
	a := newTestAnalyzer()

	label, score := a.AnalyzeSentiment("")
	assert.Equal(t, SentimentNeutral, label)
	assert.Equal(t, 0.0, score)

	label, score = a.AnalyzeSentiment("Great news, the launch was a wonderful success!")
	assert.Equal(t, SentimentPositive, label)
	assert.Greater(t, score, 0.05)

	label, _ = a.AnalyzeSentiment("This is a terrible and frustrating failure.")
	assert.Equal(t, SentimentNegative, label)

	label, score = a.AnalyzeSentiment("Great work everyone, but this is urgent.")
	assert.Equal(t, SentimentUrgent, label)
	assert.GreaterOrEqual(t, score, -1.0)
	assert.LessOrEqual(t, score, 1.0)

	label, _ = a.AnalyzeSentiment("The meeting room is on floor two.")
	assert.Equal(t, SentimentNeutral, label)
}

func TestExtractActionItems(t *testing.T) {
	// Wednesday 2026-03-11 09:30 UTC
	now := time.Date(2026, time.March, 11, 9, 30, 0, 0, time.UTC)
	a := newTestAnalyzer()

	tests := []struct {
		name     string
		text     string
		deadline *time.Time
	}{
		{"tomorrow", "Please send the report by tomorrow.", ptr(now.AddDate(0, 0, 1))},
		{"today", "Can you review the doc by today?", ptr(now)},
		{"next week", "We should ship the fix by next week.", ptr(now.AddDate(0, 0, 7))},
		{"end of day", "Submit the form by end of day.", ptr(time.Date(2026, 3, 11, 17, 0, 0, 0, time.UTC))},
		{"end of week", "Prepare the slides by end of week.", ptr(now.AddDate(0, 0, 2))},
		{"weekday later this week", "Please confirm by friday.", ptr(time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC))},
		{"weekday is today", "Please confirm by wednesday.", ptr(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC))},
		{"weekday next week", "Please confirm by monday.", ptr(time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC))},
		{"no deadline", "Could you share the numbers?", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := a.ExtractActionItems(tt.text)
			require.Len(t, items, 1)
			assert.Equal(t, tt.text, items[0].Text)
			if tt.deadline == nil {
				assert.Nil(t, items[0].Deadline)
				return
			}
			require.NotNil(t, items[0].Deadline)
			assert.True(t, tt.deadline.Equal(*items[0].Deadline), "got %v, want %v", items[0].Deadline, tt.deadline)
		})
	}
}

func TestExtractActionItemsMonthDay(t *testing.T) {
	a := newTestAnalyzer()
	items := a.ExtractActionItems("Please update the roadmap by april 5.")
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Deadline)
	assert.Equal(t, time.April, items[0].Deadline.Month())
	assert.Equal(t, 5, items[0].Deadline.Day())
}

func TestExtractActionItemsSentences(t *testing.T) {
	a := newTestAnalyzer()
	text := "The launch went well. Please review the metrics. We celebrate on Friday. Could you book a room?"
	items := a.ExtractActionItems(text)
	require.Len(t, items, 2)
	assert.Equal(t, "Please review the metrics.", items[0].Text)
	assert.Equal(t, "Could you book a room?", items[1].Text)

	assert.Empty(t, a.ExtractActionItems(""))
	assert.Empty(t, a.ExtractActionItems("Nothing to do here."))
}

func TestDetectFollowup(t *testing.T) {
	tests := []struct {
		name     string
		today    time.Time
		expected time.Time
	}{
		{"monday", time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC), time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"wednesday", time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC), time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)},
		{"thursday lands on saturday", time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC), time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)},
		{"friday lands on sunday", time.Date(2026, 3, 13, 8, 0, 0, 0, time.UTC), time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)},
		{"saturday", time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC), time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(WithClock(func() time.Time { return tt.today }))
			needs, date := a.DetectFollowup("Quarterly plan", "Let me know what you think.")
			require.True(t, needs)
			require.NotNil(t, date)
			assert.Equal(t, tt.expected, *date)
			assert.NotEqual(t, time.Saturday, date.Weekday())
			assert.NotEqual(t, time.Sunday, date.Weekday())
		})
	}

	a := newTestAnalyzer()
	needs, date := a.DetectFollowup("Re: Follow-up on invoice", "")
	assert.True(t, needs)
	assert.NotNil(t, date)

	needs, date = a.DetectFollowup("FYI", "The office is closed on Monday.")
	assert.False(t, needs)
	assert.Nil(t, date)
}

func TestExtractContacts(t *testing.T) {
	rec := &stubRecognizer{entities: []Entity{{"Globex", EntityOrg}}}
	a := newTestAnalyzer(WithRecognizer(rec))

	t.Run("name before address", func(t *testing.T) {
		text := "Reach out to Maria Lopez at maria@globex.com or call 555-867-5309 for the Globex contract."
		got := a.ExtractContacts(text)
		require.Len(t, got, 1)
		assert.Equal(t, Contact{
			Name:    "Maria Lopez",
			Email:   "maria@globex.com",
			Phone:   "555-867-5309",
			Company: "Globex",
		}, got[0])
	})

	t.Run("name after address", func(t *testing.T) {
		got := a.ExtractContacts("contact: ops@example.org (Sam Reyes on call)")
		require.Len(t, got, 1)
		assert.Equal(t, "Sam Reyes", got[0].Name)
	})

	t.Run("name from local part", func(t *testing.T) {
		got := a.ExtractContacts("write to john.smith@example.com today")
		require.Len(t, got, 1)
		assert.Equal(t, "John Smith", got[0].Name)
		assert.Empty(t, got[0].Phone)
		assert.Empty(t, got[0].Company)
	})

	t.Run("each occurrence is a contact", func(t *testing.T) {
		got := a.ExtractContacts("a@example.com and b@example.com and a@example.com")
		assert.Len(t, got, 3)
	})

	t.Run("addresses in urls are skipped", func(t *testing.T) {
		got := a.ExtractContacts("see https://example.com/u/jane@example.com for details")
		assert.Empty(t, got)
	})

	t.Run("no recognizer", func(t *testing.T) {
		plain := newTestAnalyzer()
		assert.Empty(t, plain.ExtractContacts("maria@globex.com"))
	})
}

func TestExtractEntities(t *testing.T) {
	rec := &stubRecognizer{entities: []Entity{
		{"Acme", EntityOrg},
		{"Ada Lovelace", EntityPerson},
		{"Fourth", "ORDINAL"},
	}}
	a := newTestAnalyzer(WithRecognizer(rec))

	got := a.ExtractEntities("Ada Lovelace joined Acme on the Fourth.")
	assert.Equal(t, []Entity{{"Acme", EntityOrg}, {"Ada Lovelace", EntityPerson}}, got)
	assert.Empty(t, a.ExtractEntities(""))

	failing := newTestAnalyzer(WithRecognizer(&stubRecognizer{loadErr: errors.New("model missing")}))
	assert.False(t, failing.EntitiesAvailable())
	assert.Empty(t, failing.ExtractEntities("Ada Lovelace joined Acme."))
	assert.NotNil(t, failing.ExtractEntities("Ada Lovelace joined Acme."))
}

func TestRuleRecognizer(t *testing.T) {
	r := NewRuleRecognizer()
	require.NoError(t, r.Load())

	got, err := r.Recognize("Invoice of $1,250.00 due March 15, 2026 at 3:30 pm, or by 04/01.")
	require.NoError(t, err)
	assert.Equal(t, []Entity{
		{"$1,250.00", EntityMoney},
		{"March 15, 2026", EntityDate},
		{"3:30 pm", EntityTime},
		{"04/01", EntityDate},
	}, got)
}

func TestMultiRecognizerSkipsFailedMembers(t *testing.T) {
	m := NewMultiRecognizer(
		&stubRecognizer{loadErr: errors.New("nope"), entities: []Entity{{"x", EntityOrg}}},
		NewRuleRecognizer(),
	)
	require.NoError(t, m.Load())

	got, err := m.Recognize("pay $5 by Monday")
	require.NoError(t, err)
	assert.Equal(t, []Entity{{"$5", EntityMoney}, {"Monday", EntityDate}}, got)

	none := NewMultiRecognizer(&stubRecognizer{loadErr: errors.New("nope")})
	assert.Error(t, none.Load())
}

func TestRuleRecognizerOrganisations(t *testing.T) {
	r := NewRuleRecognizer()
	require.NoError(t, r.Load())

	tests := []struct {
		name string
		text string
		want []Entity
	}{
		{"suffixes", "Microsoft Corporation and Google Inc. signed with Acme Corp, Globex LLC and Initech GmbH", []Entity{
			{"Microsoft Corporation", EntityOrg},
			{"Google Inc.", EntityOrg},
			{"Acme Corp", EntityOrg},
			{"Globex LLC", EntityOrg},
			{"Initech GmbH", EntityOrg},
		}},
		{"leading function word trimmed", "With Umbrella Holdings Ltd on board", []Entity{{"Umbrella Holdings Ltd", EntityOrg}}},
		{"no suffix", "Maria from Globex will join", nil},
		{"lines are not joined", "Maria Lopez\nInc", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Recognize(tt.text)
			require.NoError(t, err)
			var orgs []Entity
			for _, e := range got {
				if e.Type == EntityOrg {
					orgs = append(orgs, e)
				}
			}
			assert.Equal(t, tt.want, orgs)
		})
	}
}

func TestMultiRecognizerReconcilesOrganisations(t *testing.T) {
	prose := &stubRecognizer{entities: []Entity{
		{"IBM", EntityPerson},
		{"Jane Doe", EntityPerson},
		{"Acme", EntityPerson},
	}}
	m := NewMultiRecognizer(prose, NewRuleRecognizer())
	require.NoError(t, m.Load())

	got, err := m.Recognize("Jane Doe of IBM joined Acme Corp today")
	require.NoError(t, err)
	assert.Equal(t, []Entity{
		{"IBM", EntityOrg},
		{"Jane Doe", EntityPerson},
		{"Acme Corp", EntityOrg},
		{"today", EntityDate},
	}, got)
}

func TestDefaultRecognizerFindsOrganisations(t *testing.T) {
	a := newTestAnalyzer(WithRecognizer(DefaultRecognizer()))
	require.True(t, a.EntitiesAvailable())

	text := "We met Microsoft Corporation and Google Inc. last week. Acme Corp, IBM and Apple Inc. are bidding too."
	got := a.ExtractEntities(text)

	var orgs []string
	for _, e := range got {
		if e.Type == EntityOrg {
			orgs = append(orgs, e.Text)
		}
	}
	for _, want := range []string{"Microsoft Corporation", "Google Inc.", "Acme Corp", "Apple Inc."} {
		assert.Contains(t, orgs, want)
	}
	for _, e := range got {
		if e.Type != EntityPerson {
			continue
		}
		assert.False(t, overlapsAny(e.Text, orgs), "%q is tagged PERSON", e.Text)
		assert.NotRegexp(t, `^[A-Z]{2,6}$`, e.Text)
	}
}

func TestDefaultRecognizerFillsCompany(t *testing.T) {
	a := newTestAnalyzer(WithRecognizer(DefaultRecognizer()))

	text := "Thanks for the call. Maria Lopez Procurement Lead, Globex Corporation maria.lopez@globex.com 555-867-5309"
	got := a.ExtractContacts(text)
	require.Len(t, got, 1)
	assert.Equal(t, "maria.lopez@globex.com", got[0].Email)
	assert.Equal(t, "555-867-5309", got[0].Phone)
	assert.Equal(t, "Globex Corporation", got[0].Company)
}

func TestAnalyzeScoresOrganisations(t *testing.T) {
	a := newTestAnalyzer(WithRecognizer(DefaultRecognizer()))
	res := a.Analyze("Contract", "The renewal with Initech Corporation is ready for review.")

	var withoutOrgs []Entity
	for _, e := range res.Entities {
		if e.Type != EntityOrg {
			withoutOrgs = append(withoutOrgs, e)
		}
	}
	require.Less(t, len(withoutOrgs), len(res.Entities), "an ORG entity is found")

	base := PriorityScore(PriorityInput{
		Subject:       "Contract",
		IsImportant:   res.IsImportant,
		Sentiment:     res.Sentiment,
		NeedsFollowup: res.NeedsFollowup,
		Entities:      withoutOrgs,
	})
	assert.InDelta(t, 0.3, res.PriorityScore-base, 1e-9)
}

func TestPriorityScore(t *testing.T) {
	people := []Entity{{"A", EntityPerson}, {"B", EntityPerson}, {"C", EntityPerson}}

	tests := []struct {
		name     string
		in       PriorityInput
		expected float64
	}{
		{"baseline", PriorityInput{Sentiment: SentimentNeutral}, 5.0},
		{"positive", PriorityInput{Sentiment: SentimentPositive}, 4.5},
		{"negative", PriorityInput{Sentiment: SentimentNegative}, 6.0},
		{"urgent subject counted once", PriorityInput{Subject: "URGENT asap emergency", Sentiment: SentimentNeutral}, 5.5},
		{"entities", PriorityInput{Sentiment: SentimentNeutral, Entities: append(people, Entity{"Acme", EntityOrg})}, 5.8},
		{
			name: "everything",
			in: PriorityInput{
				Subject:       "Critical outage",
				IsImportant:   true,
				Sentiment:     SentimentUrgent,
				NeedsFollowup: true,
				Entities:      append(people, Entity{"Acme", EntityOrg}),
			},
			expected: 10.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, PriorityScore(tt.in), 1e-9)
		})
	}
}

func ptr[T any](v T) *T { return &v }
