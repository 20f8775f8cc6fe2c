package ui

import (
	"fmt"
	"time"
)

// DateLayout is the layout used for due/start dates in table output.
const DateLayout = "2006-01-02"

// FormatDate renders an ISO-8601 date or timestamp string for display.
// Empty values render as "-"; unparseable values are passed through.
func FormatDate(value string) string {
	if value == "" {
		return "-"
	}
	for _, layout := range []string{time.RFC3339, DateLayout} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format(DateLayout)
		}
	}
	return value
}

// FormatDurationShort formats a duration using short units (s/m/h/d).
func FormatDurationShort(duration time.Duration) string {
	if duration < 0 {
		duration = 0
	}

	duration = duration.Truncate(time.Second)
	seconds := int64(duration.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}

	days := hours / 24
	return fmt.Sprintf("%dd", days)
}

// FormatTimeAgo returns a compact age string like "2m ago".
func FormatTimeAgo(then time.Time, now time.Time) string {
	if then.IsZero() || then.After(now) {
		return "-"
	}
	return FormatDurationShort(now.Sub(then)) + " ago"
}
