package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/renoworks/booking-platform/pkg/logging"
)

// BookedTimesSource lists the start instants of non-cancelled bookings
// whose scheduled time falls within [start, end].
type BookedTimesSource interface {
	ScheduledTimesBetween(ctx context.Context, start, end time.Time) ([]time.Time, error)
}

// DaySlots is the four-way partition of a day's template slots.
// The partition is informational only; it carries no reservation.
type DaySlots struct {
	Available []TimeOfDay
	TooSoon   []TimeOfDay
	Booked    []TimeOfDay
	AllSlots  []TimeOfDay
}

// Resolver computes bookable slots for a calendar date from the weekly
// template, the lead-time rule and the day's existing bookings.
type Resolver struct {
	template *Template
	guard    LeadTimeGuard
	bookings BookedTimesSource
	loc      *time.Location
	logger   *logging.Logger
}

// NewResolver wires a resolver. loc is the business operating timezone;
// all slot instants and day windows are anchored there.
func NewResolver(template *Template, guard LeadTimeGuard, bookings BookedTimesSource, loc *time.Location, logger *logging.Logger) *Resolver {
	if template == nil {
		panic("availability: template required")
	}
	if bookings == nil {
		panic("availability: booked times source required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		template: template,
		guard:    guard,
		bookings: bookings,
		loc:      loc,
		logger:   logger,
	}
}

// Location returns the business timezone the resolver anchors slots in.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve partitions the template slots for the date's weekday into
// available, too-soon and booked. Closed days return all-empty lists
// without consulting the booking store.
func (r *Resolver) Resolve(ctx context.Context, date time.Time, now time.Time) (*DaySlots, error) {
	year, month, day := date.Date()
	weekday := time.Date(year, month, day, 12, 0, 0, 0, r.loc).Weekday()

	result := &DaySlots{
		Available: []TimeOfDay{},
		TooSoon:   []TimeOfDay{},
		Booked:    []TimeOfDay{},
		AllSlots:  r.template.SlotsFor(weekday),
	}
	if len(result.AllSlots) == 0 {
		return result, nil
	}

	// Lead-time partition first: a too-soon slot is never reclassified
	// as booked, even if someone holds that time.
	tooSoon := map[TimeOfDay]bool{}
	candidates := make([]TimeOfDay, 0, len(result.AllSlots))
	for _, slot := range result.AllSlots {
		instant := slot.At(year, month, day, r.loc)
		if r.guard.Bookable(now, instant) {
			candidates = append(candidates, slot)
		} else {
			tooSoon[slot] = true
			result.TooSoon = append(result.TooSoon, slot)
		}
	}

	startOfDay := time.Date(year, month, day, 0, 0, 0, 0, r.loc)
	endOfDay := startOfDay.Add(24*time.Hour - time.Nanosecond)
	scheduled, err := r.bookings.ScheduledTimesBetween(ctx, startOfDay, endOfDay)
	if err != nil {
		return nil, fmt.Errorf("availability: list bookings for %04d-%02d-%02d: %w", year, month, day, err)
	}

	booked := map[TimeOfDay]bool{}
	for _, at := range scheduled {
		slot := TimeOfDayOf(at.In(r.loc))
		if tooSoon[slot] || booked[slot] {
			continue
		}
		booked[slot] = true
		result.Booked = append(result.Booked, slot)
	}

	for _, slot := range candidates {
		if !booked[slot] {
			result.Available = append(result.Available, slot)
		}
	}

	r.logger.Debug("slots resolved",
		"date", fmt.Sprintf("%04d-%02d-%02d", year, month, day),
		"available", len(result.Available),
		"too_soon", len(result.TooSoon),
		"booked", len(result.Booked),
	)
	return result, nil
}
