// Package normalize canonicalizes user-supplied strings before they are
// stored or compared.
package normalize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Text strips any markup, collapses runs of whitespace, and trims.
// Entities produced by the sanitizer are decoded so "Tom & Jerry"
// round-trips unchanged.
func Text(s string) string {
	clean := html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(clean), " ")
}

// Name normalizes a display name. Case is preserved.
func Name(s string) string {
	return Text(s)
}

// Department normalizes a department label. Case is preserved.
func Department(s string) string {
	return Text(s)
}

// Position lowercases and trims a position for comparison.
func Position(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Provider lowercases and trims an auth provider value.
func Provider(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
