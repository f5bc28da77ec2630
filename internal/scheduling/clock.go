package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used across the store and tools.
const DateLayout = "2006-01-02"

// ToMinutes converts an "HH:MM" clock string (seconds tolerated and ignored)
// to minutes since midnight.
func ToMinutes(clock string) (int, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("scheduling: invalid clock time %q", clock)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("scheduling: invalid hour in %q", clock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("scheduling: invalid minute in %q", clock)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("scheduling: clock time %q out of range", clock)
	}
	return h*60 + m, nil
}

// ToClock converts minutes since midnight back to a zero-padded "HH:MM".
func ToClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DateOf formats t's calendar day.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// MinutesOf returns t's clock position in minutes since midnight.
func MinutesOf(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
