package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
// Booked and template slots are compared on this canonical form rather
// than on formatted strings, so "2:00 PM" and "14:00" never diverge.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from a 24-hour clock reading.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// TimeOfDayOf extracts the wall-clock time of t in t's own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// Hour returns the 24-hour clock hour.
func (d TimeOfDay) Hour() int { return int(d) / 60 }

// Minute returns the minute within the hour.
func (d TimeOfDay) Minute() int { return int(d) % 60 }

// At anchors the time of day on the given calendar date in loc.
func (d TimeOfDay) At(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, d.Hour(), d.Minute(), 0, 0, loc)
}

// String renders the slot the way the booking UI shows it, e.g. "10:00 AM".
func (d TimeOfDay) String() string {
	hour := d.Hour()
	period := "AM"
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		period = "PM"
	case hour > 12:
		hour -= 12
		period = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, d.Minute(), period)
}

// MarshalJSON emits the display form.
func (d TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON accepts the display form or 24-hour "15:04".
func (d *TimeOfDay) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("availability: time of day must be a string: %w", err)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseTimeOfDay parses "10:00 AM", "6:00 pm" or 24-hour "18:00".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	period := ""
	if fields := strings.Fields(s); len(fields) == 2 {
		s = fields[0]
		period = strings.ToUpper(fields[1])
		if period != "AM" && period != "PM" {
			return 0, fmt.Errorf("availability: invalid period %q", period)
		}
	}

	clock := strings.SplitN(s, ":", 2)
	if len(clock) != 2 {
		return 0, fmt.Errorf("availability: invalid time %q", s)
	}
	hour, err := strconv.Atoi(clock[0])
	if err != nil {
		return 0, fmt.Errorf("availability: invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(clock[1])
	if err != nil {
		return 0, fmt.Errorf("availability: invalid minute in %q", s)
	}

	switch period {
	case "PM":
		if hour != 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("availability: time %q out of range", s)
	}
	return NewTimeOfDay(hour, minute), nil
}
