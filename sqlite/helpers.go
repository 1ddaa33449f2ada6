package sqlite

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/minute-repeater/restocked"
)

// timeLayout is a fixed-width RFC3339 form. RFC3339Nano trims trailing
// fractional zeros, which breaks lexicographic ordering on exact second
// boundaries ('.' sorts before 'Z'); padding the fraction to nine digits
// keeps string comparison equal to chronological comparison.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime renders a timestamp for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored timestamp.
// Returns an error with the field name when parsing fails.
func parseTime(value, fieldName string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", fieldName, err)
	}
	return t, nil
}

// encodeAttributes renders an attribute set as its JSON storage form,
// preserving display order.
func encodeAttributes(attrs restocked.Attributes) (string, error) {
	if len(attrs) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("failed to encode attributes: %w", err)
	}
	return string(b), nil
}

// decodeAttributes parses the JSON storage form of an attribute set.
func decodeAttributes(raw string) (restocked.Attributes, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var attrs restocked.Attributes
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}
	return attrs, nil
}

// storeError classifies driver errors into the application taxonomy:
// lock contention is transient (EUNAVAILABLE, callers retry with backoff),
// constraint violations are ECONFLICT.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "busy") || strings.Contains(msg, "locked"):
		return restocked.Errorf(restocked.EUNAVAILABLE, "store temporarily unavailable: %v", err)
	case strings.Contains(msg, "constraint"):
		return restocked.Errorf(restocked.ECONFLICT, "store constraint violated: %v", err)
	}
	return err
}

// appendPagination appends LIMIT and OFFSET clauses to a query builder if values are > 0.
func appendPagination(query *strings.Builder, args *[]any, limit, offset int) {
	if limit > 0 {
		query.WriteString(" LIMIT ?")
		*args = append(*args, limit)
	}
	if offset > 0 {
		query.WriteString(" OFFSET ?")
		*args = append(*args, offset)
	}
}
