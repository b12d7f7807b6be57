package parser

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

// Sanitizer normalizes raw email bodies before rule matching. Markup
// is preserved because several rules anchor on tags (<b> codes, <img>
// QR sources, link hrefs); only encodings and whitespace are cleaned.
type Sanitizer struct {
	spaceRuns *regexp.Regexp
	wsRuns    *regexp.Regexp
	tags      *regexp.Regexp
}

// NewSanitizer creates a sanitizer with compiled normalization patterns
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		spaceRuns: regexp.MustCompile(`[ \t]{2,}`),
		wsRuns:    regexp.MustCompile(`\s+`),
		tags:      regexp.MustCompile(`<[^>]*>`),
	}
}

// Normalize prepares body text for the extraction rules: decodes
// HTML entities, strips control characters, and collapses
// horizontal whitespace runs. Newlines and tags are kept.
func (s *Sanitizer) Normalize(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = html.UnescapeString(content)
	// &nbsp; decodes to U+00A0, which the rules' \s classes do not match
	content = strings.ReplaceAll(content, " ", " ")

	var b strings.Builder
	b.Grow(len(content))
	for _, r := range content {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}

	return s.spaceRuns.ReplaceAllString(b.String(), " ")
}

// StripMarkup removes tags and flattens whitespace. Used for keyword
// scans (tracking detection, type cross-checks) where markup between
// words would break phrase matching.
func (s *Sanitizer) StripMarkup(content string) string {
	text := s.tags.ReplaceAllString(content, " ")
	text = s.wsRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
