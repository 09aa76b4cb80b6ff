package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDayAcceptsTextAndDurationForms(t *testing.T) {
	cases := []struct {
		name  string
		input interface{}
		want  TimeOfDay
	}{
		{"hours and minutes", "9:00", Clock(9, 0, 0)},
		{"full clock", "17:30:15", Clock(17, 30, 15)},
		{"fractional seconds", "06:00:00.000000", Clock(6, 0, 0)},
		{"padded text", " 18:00 ", Clock(18, 0, 0)},
		{"duration", 8*time.Hour + 30*time.Minute, Clock(8, 30, 0)},
		{"integer seconds", 32400, Clock(9, 0, 0)},
		{"int64 seconds", int64(3600), Clock(1, 0, 0)},
		{"float seconds", 61.9, Clock(0, 1, 1)},
		{"end of day", "24:00", TimeOfDay(secondsPerDay)},
		{"timestamp", time.Date(2026, 3, 2, 14, 5, 0, 0, time.UTC), Clock(14, 5, 0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseTimeOfDayRejectsInvalidValues(t *testing.T) {
	for _, input := range []interface{}{nil, "", "9", "ab:cd", "10:75", "25:00", -5, 90000.0, struct{}{}} {
		_, err := ParseTimeOfDay(input)
		require.Error(t, err, "input %v", input)
	}
}

func TestTimeOfDayString(t *testing.T) {
	require.Equal(t, "09:05:07", Clock(9, 5, 7).String())
	require.Equal(t, "00:00:00", TimeOfDay(0).String())
}

func TestWindowOverlapIsHalfOpen(t *testing.T) {
	day := Window{Start: Clock(9, 0, 0), End: Clock(17, 0, 0)}

	require.True(t, day.Overlaps(Window{Start: Clock(16, 0, 0), End: Clock(18, 0, 0)}))
	require.True(t, day.Overlaps(Window{Start: Clock(10, 0, 0), End: Clock(11, 0, 0)}))
	require.False(t, day.Overlaps(Window{Start: Clock(17, 0, 0), End: Clock(18, 0, 0)}))
	require.False(t, day.Overlaps(Window{Start: Clock(6, 0, 0), End: Clock(9, 0, 0)}))
}

func TestParseWindowNormalisesMixedForms(t *testing.T) {
	window, err := ParseWindow("9:00", 17*time.Hour)
	require.NoError(t, err)
	require.Equal(t, "09:00:00-17:00:00", window.String())
}

func TestShiftDate(t *testing.T) {
	next, err := ShiftDate("2026-02-28", 1)
	require.NoError(t, err)
	require.Equal(t, "2026-03-01", next)

	_, err = ShiftDate("28/02/2026", 1)
	require.Error(t, err)
}
