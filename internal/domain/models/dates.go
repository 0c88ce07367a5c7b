package models

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used in document keys and the API.
const DateLayout = "2006-01-02"

const (
	minYear = 1900
	maxYear = 2999

	// MaxSeriesDays bounds the window of a single series request.
	MaxSeriesDays = 366
)

// ParseDate parses a strict YYYY-MM-DD calendar date at UTC midnight.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) != len(DateLayout) {
		return time.Time{}, Validationf("date %q must use the YYYY-MM-DD format", value)
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, Validationf("date %q is not a calendar date", value)
	}
	if t.Year() < minYear || t.Year() > maxYear {
		return time.Time{}, Validationf("date %q is out of range", value)
	}
	return t, nil
}

// NormalizeDate validates value and returns its canonical string form.
func NormalizeDate(value string) (string, error) {
	t, err := ParseDate(value)
	if err != nil {
		return "", err
	}
	return FormatDate(t), nil
}

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the calendar date of now in loc.
func Today(loc *time.Location, now time.Time) string {
	if loc == nil {
		loc = time.UTC
	}
	return FormatDate(now.In(loc))
}

// DateRange returns days consecutive dates ending at end inclusive, oldest first.
func DateRange(end string, days int) ([]string, error) {
	endDate, err := ParseDate(end)
	if err != nil {
		return nil, err
	}
	if days < 1 || days > MaxSeriesDays {
		return nil, Validationf("days must be between 1 and %d, got %d", MaxSeriesDays, days)
	}

	dates := make([]string, days)
	for i := 0; i < days; i++ {
		dates[i] = FormatDate(endDate.AddDate(0, 0, i-(days-1)))
	}
	return dates, nil
}
