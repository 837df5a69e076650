package adapters

import (
	"strings"
	"time"
)

// iso8601Micro is the hosting service's legacy created-at format:
// microsecond precision with a zone offset and no colon.
const iso8601Micro = "2006-01-02T15:04:05.000000-0700"

func parseTimeFlexible(value string) time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		iso8601Micro,
		"2006-01-02 15:04:05 -0700 MST",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
