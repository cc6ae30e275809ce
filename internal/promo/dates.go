package promo

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DayStart renders a YYYY-MM-DD date as the first second of that UTC day.
func DayStart(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", date, err)
	}
	return t.UTC().Format(time.RFC3339), nil
}

// DayEnd renders a YYYY-MM-DD date as the last second of that UTC day.
func DayEnd(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", date, err)
	}
	return t.UTC().Add(24*time.Hour - time.Second).Format(time.RFC3339), nil
}

// DateOnly strips a server timestamp back to YYYY-MM-DD. Already short
// values pass through.
func DateOnly(ts string) string {
	if ts == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.UTC().Format(DateLayout)
	}
	if len(ts) >= len(DateLayout) {
		return ts[:len(DateLayout)]
	}
	return ts
}
