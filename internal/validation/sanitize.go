package validation

import (
	"strings"
	"unicode/utf8"
)

// MaxSanitizedLength is the maximum number of characters Sanitize returns.
const MaxSanitizedLength = 1000

// longest entity produced by htmlEscaper
const maxEntityLength = len("&quot;")

// strings.Replacer does a single left-to-right pass, so an escaped '&' is
// never escaped again within one call.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Sanitize trims surrounding whitespace, escapes the HTML metacharacters
// & < > " ' and truncates the result to MaxSanitizedLength characters.
//
// Sanitize is not idempotent: running it on already escaped text escapes the
// entities a second time. Apply it exactly once per value.
func Sanitize(input string) string {
	escaped := htmlEscaper.Replace(strings.TrimSpace(input))
	return truncate(escaped, MaxSanitizedLength)
}

// truncate cuts s to at most n runes. A cut landing inside an entity drops
// the partial entity so the result never carries a bare '&'.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	count := 0
	cut := len(s)
	for i := range s {
		if count == n {
			cut = i
			break
		}
		count++
	}
	out := s[:cut]

	amp := strings.LastIndexByte(out, '&')
	if amp >= 0 && amp >= len(out)-maxEntityLength && !strings.Contains(out[amp:], ";") {
		out = out[:amp]
	}
	return out
}
