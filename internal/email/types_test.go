package email

import (
	"strings"
	"testing"
)

func TestValidStatusTransition(t *testing.T) {
	testCases := []struct {
		from  string
		to    string
		valid bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusProcessing, StatusProcessed, true},
		{StatusProcessing, StatusFailed, true},
		{StatusFailed, StatusPending, true},

		{StatusPending, StatusProcessed, false},
		{StatusPending, StatusFailed, false},
		{StatusProcessing, StatusPending, false},
		{StatusProcessed, StatusPending, false},
		{StatusProcessed, StatusFailed, false},
		{StatusFailed, StatusProcessing, false},
		{StatusFailed, StatusFailed, false},
		{"bogus", StatusPending, false},
	}

	for _, tc := range testCases {
		if got := ValidStatusTransition(tc.from, tc.to); got != tc.valid {
			t.Errorf("ValidStatusTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.valid)
		}
	}
}

func TestRawEmail_Body(t *testing.T) {
	r := &RawEmail{PlainText: "plain", HTMLText: "<p>html</p>"}
	if r.Body() != "<p>html</p>" {
		t.Errorf("HTML content must win, got %q", r.Body())
	}

	r = &RawEmail{PlainText: "plain"}
	if r.Body() != "plain" {
		t.Errorf("expected plain text fallback, got %q", r.Body())
	}
}

func TestBuildSearchQuery(t *testing.T) {
	t.Run("custom query wins", func(t *testing.T) {
		got := BuildSearchQuery([]string{"vinted.fr"}, 7, true, "from:someone@example.com")
		if got != "from:someone@example.com" {
			t.Errorf("unexpected query %q", got)
		}
	})

	t.Run("default senders", func(t *testing.T) {
		got := BuildSearchQuery(nil, 0, false, "")
		if !strings.HasPrefix(got, "from:(") {
			t.Errorf("expected sender filter, got %q", got)
		}
		for _, sender := range []string{"vinted.fr", "mondialrelay.fr", "colissimo.fr"} {
			if !strings.Contains(got, sender) {
				t.Errorf("expected default sender %s in %q", sender, got)
			}
		}
	})

	t.Run("explicit senders and filters", func(t *testing.T) {
		got := BuildSearchQuery([]string{"vinted.fr", "laposte.fr"}, 3, true, "")
		if !strings.Contains(got, "from:(vinted.fr OR laposte.fr)") {
			t.Errorf("expected sender filter, got %q", got)
		}
		if !strings.Contains(got, "after:") {
			t.Errorf("expected date filter, got %q", got)
		}
		if !strings.Contains(got, "is:unread") {
			t.Errorf("expected unread filter, got %q", got)
		}
	})
}
