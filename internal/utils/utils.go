package utils

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the format of reference-day keys
const DayLayout = "2006-01-02"

// DayKey returns the calendar day of t in loc, e.g. "2024-05-01"
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// StartOfDay returns midnight of t's calendar day in loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ParseDateRange parses from/to dates in loc. Both bounds are optional; to is
// inclusive of the whole day, so the returned end is midnight of the next day.
func ParseDateRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if s := strings.TrimSpace(from); s != "" {
		start, err = parseDate(s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date: %w", err)
		}
		start = StartOfDay(start, loc)
	}
	if s := strings.TrimSpace(to); s != "" {
		end, err = parseDate(s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date: %w", err)
		}
		end = StartOfDay(end, loc).AddDate(0, 0, 1)
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("from date must not be after to date")
	}
	return start, end, nil
}

// SplitDateRange splits a "from,to" pair; either side may be empty
func SplitDateRange(dateRange string) (string, string) {
	parts := strings.SplitN(dateRange, ",", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// parseDate parses a date in any of the accepted layouts
func parseDate(dateStr string, loc *time.Location) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)

	formats := []string{
		DayLayout,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006/01/02",
	}

	for _, format := range formats {
		date, err := time.ParseInLocation(format, dateStr, loc)
		if err == nil {
			return date, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}
