package utils

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

const MaxDisplayNameLength = 128

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeDisplayName returns display name as plain text: markup stripped,
// control characters dropped, whitespace collapsed, length capped.
func SanitizeDisplayName(name string) string {
	stripped := html.UnescapeString(strictPolicy.Sanitize(name))

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, stripped)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	runes := []rune(cleaned)
	if len(runes) > MaxDisplayNameLength {
		cleaned = strings.TrimSpace(string(runes[:MaxDisplayNameLength]))
	}
	return cleaned
}
