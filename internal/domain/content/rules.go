// Package content holds the shared text and URL acceptance rules used by
// both the live submission path and hole backfill.
package content

import (
	"net/url"
	"strings"
	"unicode"
)

// DocHost is the designated document-hosting domain for exit tickets.
const DocHost = "docs.google.com"

// placeholders is the closed set of low-effort phrases rejected as progress
// text. Matching is case-insensitive on the trimmed input.
var placeholders = map[string]bool{
	"n/a":            true,
	"na":             true,
	"n.a.":           true,
	"not applicable": true,
	"none":           true,
	"no progress":    true,
	"nothing":        true,
	"nada":           true,
	"zip":            true,
	"zero":           true,
}

// IsPlaceholderText reports whether s is one of the rejected low-effort
// placeholder phrases. Leading/trailing whitespace and case are ignored.
func IsPlaceholderText(s string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(s))]
}

// IsAcceptableDocURL reports whether s is a well-formed https URL on the
// document-hosting domain pointing at a document or spreadsheet resource.
func IsAcceptableDocURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	if !strings.EqualFold(u.Hostname(), DocHost) {
		return false
	}
	return strings.HasPrefix(u.Path, "/document/") || strings.HasPrefix(u.Path, "/spreadsheets/")
}

// NonWhitespaceLen returns the number of non-whitespace runes in s. Used for
// minimum-length checks on feedback answers.
func NonWhitespaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
