package observability

import (
	"strings"
	"unicode"
)

const maxLoggedStringLen = 256

// sanitizeString strips control characters from caller-supplied values before
// they reach a log line, and caps the length. Tabs and newlines are dropped
// too; logged values are single-line.
func sanitizeString(value string, limit int) string {
	if limit <= 0 || limit > maxLoggedStringLen {
		limit = maxLoggedStringLen
	}
	var b strings.Builder
	b.Grow(len(value))
	count := 0
	for _, r := range value {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		count++
		if count == limit {
			break
		}
	}
	return b.String()
}

// SanitizeRoute normalises a route pattern for log and span labels.
func SanitizeRoute(route string) string {
	route = sanitizeString(route, 180)
	if route == "" {
		return "/"
	}
	return route
}

// SanitizeMethod normalises an HTTP method for log labels.
func SanitizeMethod(method string) string {
	return sanitizeString(method, 10)
}
