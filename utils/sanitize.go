package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips markup from catalog presentation fields before they are
// returned to clients.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
