package main

import (
	"fmt"
	"time"

	"mercator-hq/archivist/pkg/cli"
)

const dateLayout = "2006-01-02"

// parseDate parses a YYYY-MM-DD flag value as midnight in loc.
func parseDate(flag, value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, cli.NewConfigError(flag, fmt.Sprintf("invalid date %q (want YYYY-MM-DD)", value))
	}
	return t, nil
}

// parseBound parses an RFC 3339 timestamp or a YYYY-MM-DD date. A date
// used as an upper bound covers the whole day.
func parseBound(flag, value string, loc *time.Location, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, cli.NewConfigError(flag, fmt.Sprintf("invalid time %q (want RFC 3339 or YYYY-MM-DD)", value))
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

// daysBetween lists every calendar day from first to last inclusive.
func daysBetween(first, last time.Time) []time.Time {
	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
