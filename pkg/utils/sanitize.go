package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*?>.*?</(script|style)>`)
	tagRe         = regexp.MustCompile(`(?s)<[^>]*>`)
	loneLtRe      = regexp.MustCompile(`<([^a-zA-Z/!?]|$)`)
	whitespaceRe  = regexp.MustCompile(`[\r\n\t ]+`)
	octetRe       = regexp.MustCompile(`%[a-fA-F0-9]{2}`)
)

// SanitizeText cleans a single-line text value taken from a request:
// invalid UTF-8 yields "", tags are stripped, runs of whitespace collapse
// to one space, percent-encoded octets are removed and the result is trimmed.
func SanitizeText(s string) string {
	if !utf8.ValidString(s) {
		return ""
	}

	if strings.Contains(s, "<") {
		s = loneLtRe.ReplaceAllString(s, "&lt;$1")
		s = scriptStyleRe.ReplaceAllString(s, "")
		s = tagRe.ReplaceAllString(s, "")
	}

	s = whitespaceRe.ReplaceAllString(s, " ")

	for octetRe.MatchString(s) {
		s = octetRe.ReplaceAllString(s, "")
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
