// Package timewindow provides pure time-of-day and interval math for shift
// scheduling: cross-midnight detection, duration computation, night-shift
// classification and overlap testing.
package timewindow

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a clock time expressed as minutes since midnight.
type TimeOfDay int

const (
	minutesPerDay = 24 * 60

	// Night window is [22:00, 06:00).
	nightStart TimeOfDay = 22 * 60
	nightEnd   TimeOfDay = 6 * 60
)

// Parse reads "HH:MM" or "HH:MM:SS" into a TimeOfDay. Seconds are accepted
// but truncated; values outside [00:00:00, 23:59:59] are rejected.
func Parse(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if len(parts) == 3 {
		second, err := strconv.Atoi(parts[2])
		if err != nil || second < 0 || second > 59 {
			return 0, fmt.Errorf("invalid second in %q", s)
		}
	}
	return TimeOfDay(hour*60 + minute), nil
}

// String formats the time of day as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Hours returns the time of day as fractional hours since midnight.
func (t TimeOfDay) Hours() float64 {
	return float64(t) / 60
}

// CrossesMidnight reports whether a window from start to end spans into the
// next calendar day. end == start is treated as a full 24h wrap.
func CrossesMidnight(start, end TimeOfDay) bool {
	return end <= start
}

// ComputeDuration returns the window length in hours. A window whose end is
// numerically at or before its start is treated as crossing midnight:
// duration = (24h - start) + end.
func ComputeDuration(start, end TimeOfDay) float64 {
	if CrossesMidnight(start, end) {
		return float64(minutesPerDay-int(start)+int(end)) / 60
	}
	return float64(int(end)-int(start)) / 60
}

// IsNightShift classifies a window against the [22:00, 06:00) night window.
// A crossing-midnight shift is a night shift when it starts at or after
// 22:00 or ends at or before 06:00. A same-day shift counts only when it
// sits entirely inside the night window.
func IsNightShift(start, end TimeOfDay, crossesMidnight bool) bool {
	if crossesMidnight {
		return start >= nightStart || end <= nightEnd
	}
	return start >= 0 && end <= nightEnd
}

// Overlaps performs a half-open interval overlap test on absolute instants,
// so cross-midnight shifts compare correctly against the following day.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// AbsoluteRange anchors a time-of-day window to a calendar date, pushing the
// end onto the following day when the window crosses midnight.
func AbsoluteRange(date time.Time, start, end TimeOfDay) (time.Time, time.Time) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	startAt := day.Add(time.Duration(start) * time.Minute)
	endAt := day.Add(time.Duration(end) * time.Minute)
	if CrossesMidnight(start, end) {
		endAt = endAt.Add(24 * time.Hour)
	}
	return startAt, endAt
}
