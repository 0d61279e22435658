package availability

import (
	"sort"
	"time"
)

// Template is the fixed weekly consultation schedule. Slots are kept in
// ascending time-of-day order per weekday; an absent weekday means closed.
type Template struct {
	week map[time.Weekday][]TimeOfDay
}

// NewTemplate copies the given weekly table and normalizes slot order.
func NewTemplate(week map[time.Weekday][]TimeOfDay) *Template {
	normalized := make(map[time.Weekday][]TimeOfDay, len(week))
	for day, slots := range week {
		if len(slots) == 0 {
			continue
		}
		copied := append([]TimeOfDay(nil), slots...)
		sort.Slice(copied, func(i, j int) bool { return copied[i] < copied[j] })
		normalized[day] = copied
	}
	return &Template{week: normalized}
}

// DefaultTemplate is the in-home consultation schedule: evenings most
// weekdays, mornings on Tuesday/Thursday, three slots on Monday, closed Sunday.
func DefaultTemplate() *Template {
	return NewTemplate(map[time.Weekday][]TimeOfDay{
		time.Monday:    {NewTimeOfDay(10, 0), NewTimeOfDay(14, 0), NewTimeOfDay(18, 0)},
		time.Tuesday:   {NewTimeOfDay(10, 0)},
		time.Wednesday: {NewTimeOfDay(18, 0)},
		time.Thursday:  {NewTimeOfDay(10, 0)},
		time.Friday:    {NewTimeOfDay(18, 0)},
		time.Saturday:  {NewTimeOfDay(18, 0)},
	})
}

// SlotsFor returns the slots for the weekday in ascending order.
// The returned slice is a copy; an empty slice means closed.
func (t *Template) SlotsFor(day time.Weekday) []TimeOfDay {
	slots, ok := t.week[day]
	if !ok {
		return []TimeOfDay{}
	}
	return append([]TimeOfDay(nil), slots...)
}
