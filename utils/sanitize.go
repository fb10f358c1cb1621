package utils

import "github.com/microcosm-cc/bluemonday"

// Wall posts are plain text; strip all markup rather than allowing a UGC
// subset.
var sanitizer = bluemonday.StrictPolicy()

// Sanitize cleans post content to prevent XSS when it is rendered.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
