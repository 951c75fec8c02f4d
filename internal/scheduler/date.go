package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for reservation days.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight timestamp.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("scheduler: empty date")
	}
	ts, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduler: invalid date %q: %w", value, err)
	}
	return ts, nil
}

// FormatDate renders a day in DateLayout. The zero time renders as an empty string.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return TruncateDay(t).Format(DateLayout)
}

// TruncateDay drops the clock portion of t, keeping the calendar day it names.
func TruncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
