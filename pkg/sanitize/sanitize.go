// Package sanitize strips markup from free text supplied by clients before it is
// persisted to documents, audit records, or notification payloads.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text removes all HTML from s, unescapes entities, and trims surrounding whitespace.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// OptionalText applies Text to a non-nil pointer. Nil and results that are
// empty after sanitizing both yield nil.
func OptionalText(s *string) *string {
	if s == nil {
		return nil
	}
	clean := Text(*s)
	if clean == "" {
		return nil
	}
	return &clean
}
