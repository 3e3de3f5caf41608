package manager

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var fractionalSeconds = regexp.MustCompile(`\.[0-9]+`)

var isoLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
}

// NormalizeDate returns a time for a time.Time, *time.Time, primitive.DateTime
// or ISO-8601 string. Fractional seconds in strings are discarded. The bool
// is false when the value cannot be read as a date.
func NormalizeDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case primitive.DateTime:
		return t.Time(), true
	case string:
		s := fractionalSeconds.ReplaceAllString(strings.TrimSpace(t), "")
		for _, layout := range isoLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// NormalizeDateToStore converts v to the store date type. Precision below one
// second is lost.
func NormalizeDateToStore(v any) (primitive.DateTime, bool) {
	t, ok := NormalizeDate(v)
	if !ok {
		return 0, false
	}
	return primitive.NewDateTimeFromTime(t.Truncate(time.Second)), true
}

// ParseDate is NormalizeDate for callers that want an error.
func ParseDate(v any) (time.Time, error) {
	t, ok := NormalizeDate(v)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, v)
	}
	return t, nil
}
