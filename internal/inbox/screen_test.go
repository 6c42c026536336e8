package inbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScreen(t *testing.T) {
	tests := []struct {
		name     string
		email    Email
		expected Disposition
	}{
		{
			name: "mailer-daemon bounce",
			email: Email{
				From:    "MAILER-DAEMON@mx.example.com",
				Subject: "Undeliverable: Quarterly plan",
				Body:    "Delivery to the following recipient failed permanently: bob@example.org",
			},
			expected: DispositionBounce,
		},
		{
			name: "bounce from subject and body alone",
			email: Email{
				From:    "alerts@example.com",
				Subject: "Delivery Status Notification (Failure)",
				Body:    "The message could not be delivered. User unknown.",
			},
			expected: DispositionBounce,
		},
		{
			name:     "noreply sender without bounce signal",
			email:    Email{From: "no-reply@shop.example", Subject: "Your order", Body: "Thanks for your order."},
			expected: DispositionRegular,
		},
		{
			name:     "automatic reply subject",
			email:    Email{From: "ann@example.com", Subject: "Automatic reply: Budget review", Body: "I am away."},
			expected: DispositionAutoReply,
		},
		{
			name:     "out of office subject",
			email:    Email{From: "ann@example.com", Subject: "Out of Office Re: Budget review"},
			expected: DispositionAutoReply,
		},
		{
			name:     "auto-submitted header",
			email:    Email{From: "bot@example.com", Subject: "Report", AutoSubmitted: "auto-generated"},
			expected: DispositionAutoReply,
		},
		{
			name:     "auto-submitted no",
			email:    Email{From: "ann@example.com", Subject: "Lunch?", AutoSubmitted: "no"},
			expected: DispositionRegular,
		},
		{
			name:     "person left the company",
			email:    Email{From: "ann@example.com", Subject: "I have now left Acme Re: Budget review"},
			expected: DispositionAutoReply,
		},
		{
			name:     "regular mail",
			email:    Email{From: "ann@example.com", Subject: "Budget review", Body: "Can we meet on Monday?"},
			expected: DispositionRegular,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Screen(&tt.email))
		})
	}
}

func TestBouncedRecipient(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"delivery failed", "Delivery to the following recipient failed: bob@example.org", "bob@example.org"},
		{"final recipient", "Final-Recipient: rfc822;carol@example.net", "carol@example.net"},
		{"none", "Something went wrong.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BouncedRecipient(&Email{Body: tt.body}))
		})
	}
}
