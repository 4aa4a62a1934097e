package timewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) TimeOfDay {
	t.Helper()
	tod, err := Parse(s)
	require.NoError(t, err)
	return tod
}

func TestParse(t *testing.T) {
	tod, err := Parse("22:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(22*60+30), tod)

	tod, err = Parse("06:00:00")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(6*60), tod)

	for _, bad := range []string{"24:00", "12:60", "12", "ab:cd", "12:00:61", ""} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestComputeDuration(t *testing.T) {
	// Non-crossing window equals end - start.
	assert.InDelta(t, 8.0, ComputeDuration(mustParse(t, "08:00"), mustParse(t, "16:00")), 1e-9)
	assert.InDelta(t, 0.5, ComputeDuration(mustParse(t, "09:15"), mustParse(t, "09:45")), 1e-9)

	// Crossing-midnight window equals (24 - start) + end.
	assert.InDelta(t, 8.0, ComputeDuration(mustParse(t, "22:00"), mustParse(t, "06:00")), 1e-9)
	assert.InDelta(t, 10.0, ComputeDuration(mustParse(t, "21:00"), mustParse(t, "07:00")), 1e-9)

	// end == start wraps a full day.
	assert.InDelta(t, 24.0, ComputeDuration(mustParse(t, "08:00"), mustParse(t, "08:00")), 1e-9)
}

func TestCrossesMidnight(t *testing.T) {
	assert.True(t, CrossesMidnight(mustParse(t, "22:00"), mustParse(t, "06:00")))
	assert.True(t, CrossesMidnight(mustParse(t, "08:00"), mustParse(t, "08:00")))
	assert.False(t, CrossesMidnight(mustParse(t, "08:00"), mustParse(t, "16:00")))
}

func TestIsNightShift(t *testing.T) {
	cases := []struct {
		name     string
		start    string
		end      string
		expected bool
	}{
		{"crossing 23:00-05:00", "23:00", "05:00", true},
		{"crossing 22:00-06:00", "22:00", "06:00", true},
		{"crossing 20:00-04:00 ends inside night", "20:00", "04:00", true},
		{"crossing 20:00-08:00 neither bound in night", "20:00", "08:00", false},
		{"day shift 08:00-16:00", "08:00", "16:00", false},
		{"early shift fully inside night", "01:00", "05:00", true},
		{"morning shift leaving night window", "04:00", "12:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start := mustParse(t, tc.start)
			end := mustParse(t, tc.end)
			assert.Equal(t, tc.expected, IsNightShift(start, end, CrossesMidnight(start, end)))
		})
	}
}

func TestOverlaps(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	a1 := day.Add(8 * time.Hour)
	a2 := day.Add(16 * time.Hour)
	b1 := day.Add(14 * time.Hour)
	b2 := day.Add(22 * time.Hour)

	assert.True(t, Overlaps(a1, a2, b1, b2))
	// Symmetric.
	assert.Equal(t, Overlaps(a1, a2, b1, b2), Overlaps(b1, b2, a1, a2))

	// Touching boundaries do not overlap (half-open).
	assert.False(t, Overlaps(a1, a2, a2, b2))

	// Disjoint.
	assert.False(t, Overlaps(a1, a2, day.Add(17*time.Hour), day.Add(18*time.Hour)))
}

func TestOverlapsAcrossMidnight(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	nightStart, nightEnd := AbsoluteRange(day, mustParse(t, "22:00"), mustParse(t, "06:00"))
	require.Equal(t, day.Add(30*time.Hour), nightEnd)

	// Early shift the following morning collides with the night shift tail.
	nextDay := day.Add(24 * time.Hour)
	morningStart, morningEnd := AbsoluteRange(nextDay, mustParse(t, "05:00"), mustParse(t, "13:00"))
	assert.True(t, Overlaps(nightStart, nightEnd, morningStart, morningEnd))

	// Same clock times on the same day do not collide once normalized.
	dayStart, dayEnd := AbsoluteRange(day, mustParse(t, "08:00"), mustParse(t, "16:00"))
	assert.False(t, Overlaps(nightStart, nightEnd, dayStart, dayEnd))
}

func TestAbsoluteRange(t *testing.T) {
	day := time.Date(2025, 6, 1, 12, 34, 56, 0, time.UTC)
	start, end := AbsoluteRange(day, mustParse(t, "08:00"), mustParse(t, "16:00"))
	assert.Equal(t, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC), end)
}
