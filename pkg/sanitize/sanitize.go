// Package sanitize strips markup from free text authored by teachers or
// returned by the AI model before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes every HTML element, keeps the text content and trims
// surrounding whitespace. Entities are decoded so "Tom & Jerry" survives
// unchanged.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
