package notify

import (
	"strconv"
	"strings"
	"time"
)

// IsOutsideQuietHours reports whether a non-urgent notification may be sent
// at now. It returns true when prefs is nil, quiet hours are disabled, or
// either bound is missing or unparseable.
//
// The window is [start, end). When start > end the window wraps past
// midnight. now is compared by its own wall clock; prefs.Timezone is not
// applied.
func IsOutsideQuietHours(prefs *ContactPreferences, now time.Time) bool {
	if prefs == nil || !prefs.QuietHoursEnabled {
		return true
	}
	start, ok := parseClock(prefs.QuietHoursStart)
	if !ok {
		return true
	}
	end, ok := parseClock(prefs.QuietHoursEnd)
	if !ok {
		return true
	}

	cur := now.Hour()*60 + now.Minute()

	var inside bool
	if start <= end {
		inside = cur >= start && cur < end
	} else {
		inside = cur >= start || cur < end
	}
	return !inside
}

// parseClock converts "HH:MM" or "HH:MM:SS" to minutes past midnight.
// Seconds are ignored.
func parseClock(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 || len(parts[0]) != 2 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, false
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 || len(parts[2]) != 2 {
			return 0, false
		}
	}
	return h*60 + m, true
}
