// Package shared provides common utility functions used across multiple
// packages in the artifact-cleanup codebase.
package shared

import (
	"fmt"
	"strings"
)

// NormalizeKey lowercases and trims an identifier so lookups are
// insensitive to casing and stray whitespace.
func NormalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// HTTPStatusErrorWithBody creates a formatted error that includes the
// response body for non-2xx HTTP responses.
func HTTPStatusErrorWithBody(status int, url string, body string) error {
	return fmt.Errorf("status=%d url=%s response=%s", status, url, body)
}
