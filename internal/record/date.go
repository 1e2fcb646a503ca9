package record

import (
	"regexp"
	"strings"
	"time"
)

// dateLayouts are the formats seen across the calendars, tried in order.
// Four-digit years come first so "24-07-2025" never parses as year 20.
var dateLayouts = []string{
	"2-1-2006",
	"2006-1-2",
	"2/1/2006",
	"2006/1/2",
	"2-1-06",
	"2/1/06",
}

var datePattern = regexp.MustCompile(`\d{1,4}[-/]\d{1,2}[-/]\d{2,4}`)

// ParseDate extracts a calendar date from a listing date cell such as
// "24-07-2025" or "za 24/07/25". The result is midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, &MalformedError{Reason: "missing date"}
	}

	candidate := datePattern.FindString(trimmed)
	if candidate == "" {
		return time.Time{}, &MalformedError{Reason: "unparseable date", Value: trimmed}
	}

	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, candidate)
		if err != nil {
			continue
		}
		return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, &MalformedError{Reason: "unparseable date", Value: trimmed}
}
