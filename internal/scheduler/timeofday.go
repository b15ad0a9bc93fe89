package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for exam bookings.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidTimeOfDay is returned when a clock time cannot be parsed.
	ErrInvalidTimeOfDay = errors.New("scheduler: invalid time of day")
	// ErrInvalidDate is returned when a calendar date cannot be parsed.
	ErrInvalidDate = errors.New("scheduler: invalid date")
)

// ParseTimeOfDay converts "HH:MM" (or "HH:MM:SS") into minutes after midnight.
// Seconds are accepted for compatibility with SQL TIME values and truncated.
func ParseTimeOfDay(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	if len(parts) == 3 {
		second, err := strconv.Atoi(parts[2])
		if err != nil || second < 0 || second > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
		}
	}

	return hour*60 + minute, nil
}

// FormatTimeOfDay renders minutes after midnight as "HH:MM". Values past
// midnight wrap so that an exam ending at 24:30 renders as 00:30.
func FormatTimeOfDay(minutes int) string {
	minutes %= 24 * 60
	if minutes < 0 {
		minutes += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate validates a calendar date in YYYY-MM-DD form and returns it normalised.
func ParseDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return parsed.Format(DateLayout), nil
}
