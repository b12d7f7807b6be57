package parser

import (
	"testing"
)

func TestSanitizer_Normalize(t *testing.T) {
	s := NewSanitizer()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "crlf to lf",
			input:    "ligne une\r\nligne deux",
			expected: "ligne une\nligne deux",
		},
		{
			name:     "entities decoded",
			input:    "num&eacute;ro&nbsp;de suivi &amp; code d&#39;acc&egrave;s",
			expected: "numéro de suivi & code d'accès",
		},
		{
			name:     "numeric entities decoded",
			input:    "code s&#233;curis&#233; : 123456",
			expected: "code sécurisé : 123456",
		},
		{
			name:     "control characters dropped",
			input:    "code\x00 : \x0b4821",
			expected: "code : 4821",
		},
		{
			name:     "space runs collapsed but newlines kept",
			input:    "votre    colis\t\test\n\narrivé",
			expected: "votre colis est\n\narrivé",
		},
		{
			name:     "tags preserved",
			input:    "code : <b>4821</b>",
			expected: "code : <b>4821</b>",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Normalize(tc.input)
			if got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestSanitizer_StripMarkup(t *testing.T) {
	s := NewSanitizer()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tags removed",
			input:    "<p>Votre <b>colis</b> est arrivé</p>",
			expected: "Votre colis est arrivé",
		},
		{
			name:     "phrase survives markup between words",
			input:    "point</td><td>relais",
			expected: "point relais",
		},
		{
			name:     "whitespace flattened and trimmed",
			input:    "  Votre\n\ncolis  ",
			expected: "Votre colis",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.StripMarkup(tc.input)
			if got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}
