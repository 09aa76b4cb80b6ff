package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the storage format for schedule dates.
const DateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// TimeOfDay is a wall-clock time expressed in seconds since midnight.
type TimeOfDay int

// Clock builds a TimeOfDay from its components.
func Clock(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// ParseTimeOfDay normalises the textual "HH:MM[:SS]" form and the
// duration-since-midnight forms (time.Duration, integer or float seconds)
// into seconds of day.
func ParseTimeOfDay(value interface{}) (TimeOfDay, error) {
	switch v := value.(type) {
	case TimeOfDay:
		return fromSeconds(float64(v))
	case string:
		return parseClock(v)
	case time.Duration:
		return fromSeconds(v.Seconds())
	case int:
		return fromSeconds(float64(v))
	case int64:
		return fromSeconds(float64(v))
	case float64:
		return fromSeconds(v)
	case time.Time:
		return Clock(v.Clock()), nil
	case nil:
		return 0, fmt.Errorf("time of day is required")
	default:
		return 0, fmt.Errorf("unsupported time of day value %T", value)
	}
}

func fromSeconds(seconds float64) (TimeOfDay, error) {
	if math.IsNaN(seconds) || seconds < 0 || seconds > secondsPerDay {
		return 0, fmt.Errorf("time of day %v out of range", seconds)
	}
	return TimeOfDay(int(seconds)), nil
}

func parseClock(raw string) (TimeOfDay, error) {
	value := strings.TrimSpace(raw)
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	second := 0
	if len(parts) == 3 {
		// fractional seconds ("09:00:00.000000") are truncated
		parsed, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid second in %q", raw)
		}
		second = int(parsed)
	}

	if hour < 0 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}

	return fromSeconds(float64(hour*3600 + minute*60 + second))
}

// String renders the time as HH:MM:SS.
func (t TimeOfDay) String() string {
	seconds := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// Window is a half-open [Start, End) interval within a day.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// ParseWindow normalises both bounds of a window.
func ParseWindow(from, to interface{}) (Window, error) {
	start, err := ParseTimeOfDay(from)
	if err != nil {
		return Window{}, err
	}
	end, err := ParseTimeOfDay(to)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, End: end}, nil
}

// Overlaps reports whether two windows intersect.
func (w Window) Overlaps(other Window) bool {
	return w.Start < other.End && w.End > other.Start
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// ShiftDate moves a DateLayout date by the given number of days.
func ShiftDate(date string, days int) (string, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return parsed.AddDate(0, 0, days).Format(DateLayout), nil
}
