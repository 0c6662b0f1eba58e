package data

import (
	"database/sql"
	"fmt"
	"time"
)

// TimeLayout is the fixed width UTC layout used for time columns, so that
// string order matches time order on every driver.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime formats t in UTC with TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// FormatNullTime formats t, or returns NULL for the zero time.
func FormatNullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatTime(t), Valid: true}
}

// ParseTime parses a value written by FormatTime. RFC3339 values are accepted too.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err == nil {
		return t, nil
	}
	if t, err2 := time.Parse(time.RFC3339Nano, s); err2 == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
}
