package entities

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used for production dates
const DateLayout = "2006-01-02"

// NormalizeDate truncates a timestamp to its calendar day in UTC.
// The wall-clock date is kept, the location is dropped.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD production date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected %s: %w", s, DateLayout, err)
	}
	return t, nil
}

// DatesBetween returns every calendar day from start to end inclusive
func DatesBetween(start, end time.Time) ([]time.Time, error) {
	start, end = NormalizeDate(start), NormalizeDate(end)
	if start.After(end) {
		return nil, fmt.Errorf("start date %s cannot be after end date %s", start.Format(DateLayout), end.Format(DateLayout))
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates, nil
}
