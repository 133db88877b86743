package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all markup from input and returns plain text.
// Entities escaped by the policy are decoded again so "M&M" survives.
func SanitizeText(input string) string {
	return html.UnescapeString(strictPolicy.Sanitize(input))
}
