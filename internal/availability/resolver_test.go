package availability

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type stubBookedTimes struct {
	times []time.Time
	err   error

	lastStart time.Time
	lastEnd   time.Time
	calls     int
}

func (s *stubBookedTimes) ScheduledTimesBetween(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	s.calls++
	s.lastStart = start
	s.lastEnd = end
	if s.err != nil {
		return nil, s.err
	}
	return s.times, nil
}

func pacific(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func newTestResolver(t *testing.T, source *stubBookedTimes) *Resolver {
	t.Helper()
	return NewResolver(DefaultTemplate(), NewLeadTimeGuard(48*time.Hour), source, pacific(t), nil)
}

func slotStrings(slots []TimeOfDay) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}

func TestResolveSundayIsAlwaysEmpty(t *testing.T) {
	loc := pacific(t)
	source := &stubBookedTimes{times: []time.Time{
		time.Date(2025, time.June, 8, 10, 0, 0, 0, loc),
	}}
	resolver := newTestResolver(t, source)

	sunday := time.Date(2025, time.June, 8, 0, 0, 0, 0, loc)
	got, err := resolver.Resolve(context.Background(), sunday, time.Date(2025, time.January, 1, 0, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(got.AllSlots) != 0 || len(got.Available) != 0 || len(got.TooSoon) != 0 || len(got.Booked) != 0 {
		t.Errorf("expected all-empty partition for Sunday, got %+v", got)
	}
	if source.calls != 0 {
		t.Errorf("closed day must not query the booking store, got %d calls", source.calls)
	}
}

func TestResolveFarFutureMondayAllAvailable(t *testing.T) {
	loc := pacific(t)
	source := &stubBookedTimes{}
	resolver := newTestResolver(t, source)

	now := time.Date(2025, time.June, 2, 9, 0, 0, 0, loc)       // Monday 09:00
	nextMonday := time.Date(2025, time.June, 9, 0, 0, 0, 0, loc) // following Monday

	got, err := resolver.Resolve(context.Background(), nextMonday, now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	wantAvailable := []string{"10:00 AM", "2:00 PM", "6:00 PM"}
	if !reflect.DeepEqual(slotStrings(got.Available), wantAvailable) {
		t.Errorf("available = %v, want %v", slotStrings(got.Available), wantAvailable)
	}
	if len(got.TooSoon) != 0 || len(got.Booked) != 0 {
		t.Errorf("expected no too-soon or booked slots, got %+v", got)
	}
}

func TestResolveBookedSlotRemovedFromAvailable(t *testing.T) {
	loc := pacific(t)
	source := &stubBookedTimes{times: []time.Time{
		time.Date(2025, time.June, 9, 14, 0, 0, 0, loc),
	}}
	resolver := newTestResolver(t, source)

	now := time.Date(2025, time.June, 2, 9, 0, 0, 0, loc)
	nextMonday := time.Date(2025, time.June, 9, 0, 0, 0, 0, loc)

	got, err := resolver.Resolve(context.Background(), nextMonday, now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if !reflect.DeepEqual(slotStrings(got.Booked), []string{"2:00 PM"}) {
		t.Errorf("booked = %v, want [2:00 PM]", slotStrings(got.Booked))
	}
	if !reflect.DeepEqual(slotStrings(got.Available), []string{"10:00 AM", "6:00 PM"}) {
		t.Errorf("available = %v, want [10:00 AM 6:00 PM]", slotStrings(got.Available))
	}
}

func TestResolveBookedTimeComparedCanonically(t *testing.T) {
	loc := pacific(t)
	// Booking stored in UTC; must still match the 2:00 PM Pacific slot.
	source := &stubBookedTimes{times: []time.Time{
		time.Date(2025, time.June, 9, 14, 0, 0, 0, loc).UTC(),
	}}
	resolver := newTestResolver(t, source)

	now := time.Date(2025, time.June, 2, 9, 0, 0, 0, loc)
	got, err := resolver.Resolve(context.Background(), time.Date(2025, time.June, 9, 0, 0, 0, 0, loc), now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(slotStrings(got.Booked), []string{"2:00 PM"}) {
		t.Errorf("booked = %v, want [2:00 PM]", slotStrings(got.Booked))
	}
}

func TestResolveWithinNoticeWindow(t *testing.T) {
	loc := pacific(t)
	source := &stubBookedTimes{}
	resolver := newTestResolver(t, source)

	now := time.Date(2025, time.June, 4, 12, 0, 0, 0, loc)      // Wednesday noon
	thursday := time.Date(2025, time.June, 5, 0, 0, 0, 0, loc)  // next day, <48h away

	got, err := resolver.Resolve(context.Background(), thursday, now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if !reflect.DeepEqual(slotStrings(got.TooSoon), []string{"10:00 AM"}) {
		t.Errorf("tooSoon = %v, want [10:00 AM]", slotStrings(got.TooSoon))
	}
	if len(got.Available) != 0 {
		t.Errorf("available = %v, want empty", slotStrings(got.Available))
	}
}

func TestResolveExactBoundaryIsTooSoon(t *testing.T) {
	loc := pacific(t)
	resolver := newTestResolver(t, &stubBookedTimes{})

	// Thursday 10:00 is exactly 48h after Tuesday 10:00.
	now := time.Date(2025, time.June, 3, 10, 0, 0, 0, loc)
	thursday := time.Date(2025, time.June, 5, 0, 0, 0, 0, loc)

	got, err := resolver.Resolve(context.Background(), thursday, now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(slotStrings(got.TooSoon), []string{"10:00 AM"}) {
		t.Errorf("exact 48h slot must be too soon, got tooSoon=%v available=%v",
			slotStrings(got.TooSoon), slotStrings(got.Available))
	}
}

func TestResolveTooSoonTakesPriorityOverBooked(t *testing.T) {
	loc := pacific(t)
	source := &stubBookedTimes{times: []time.Time{
		time.Date(2025, time.June, 5, 10, 0, 0, 0, loc),
	}}
	resolver := newTestResolver(t, source)

	now := time.Date(2025, time.June, 4, 12, 0, 0, 0, loc)
	thursday := time.Date(2025, time.June, 5, 0, 0, 0, 0, loc)

	got, err := resolver.Resolve(context.Background(), thursday, now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(slotStrings(got.TooSoon), []string{"10:00 AM"}) {
		t.Errorf("tooSoon = %v, want [10:00 AM]", slotStrings(got.TooSoon))
	}
	if len(got.Booked) != 0 {
		t.Errorf("too-soon slot must not be reclassified as booked, got %v", slotStrings(got.Booked))
	}
}

func TestResolvePartitionCoversTemplate(t *testing.T) {
	loc := pacific(t)
	source := &stubBookedTimes{times: []time.Time{
		time.Date(2025, time.June, 9, 10, 0, 0, 0, loc),
	}}
	resolver := newTestResolver(t, source)

	now := time.Date(2025, time.June, 2, 9, 0, 0, 0, loc)
	monday := time.Date(2025, time.June, 9, 0, 0, 0, 0, loc)

	got, err := resolver.Resolve(context.Background(), monday, now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	seen := map[TimeOfDay]int{}
	for _, s := range got.Available {
		seen[s]++
	}
	for _, s := range got.TooSoon {
		seen[s]++
	}
	for _, s := range got.Booked {
		seen[s]++
	}
	if len(seen) != len(got.AllSlots) {
		t.Errorf("partition does not cover template: %v vs %v", seen, got.AllSlots)
	}
	for _, s := range got.AllSlots {
		if seen[s] != 1 {
			t.Errorf("slot %v appears %d times across the partition", s, seen[s])
		}
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	loc := pacific(t)
	source := &stubBookedTimes{times: []time.Time{
		time.Date(2025, time.June, 9, 18, 0, 0, 0, loc),
	}}
	resolver := newTestResolver(t, source)

	now := time.Date(2025, time.June, 2, 9, 0, 0, 0, loc)
	monday := time.Date(2025, time.June, 9, 0, 0, 0, 0, loc)

	first, err := resolver.Resolve(context.Background(), monday, now)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := resolver.Resolve(context.Background(), monday, now)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("resolve not idempotent: %+v vs %+v", first, second)
	}
}

func TestResolveQueriesFullDayWindow(t *testing.T) {
	loc := pacific(t)
	source := &stubBookedTimes{}
	resolver := newTestResolver(t, source)

	now := time.Date(2025, time.June, 2, 9, 0, 0, 0, loc)
	monday := time.Date(2025, time.June, 9, 0, 0, 0, 0, loc)

	if _, err := resolver.Resolve(context.Background(), monday, now); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	wantStart := time.Date(2025, time.June, 9, 0, 0, 0, 0, loc)
	if !source.lastStart.Equal(wantStart) {
		t.Errorf("window start = %v, want %v", source.lastStart, wantStart)
	}
	if !source.lastEnd.After(wantStart.Add(23 * time.Hour)) || !source.lastEnd.Before(wantStart.Add(24*time.Hour)) {
		t.Errorf("window end = %v, want just before next midnight", source.lastEnd)
	}
}

func TestResolvePropagatesStoreFailure(t *testing.T) {
	loc := pacific(t)
	source := &stubBookedTimes{err: errors.New("connection refused")}
	resolver := newTestResolver(t, source)

	now := time.Date(2025, time.June, 2, 9, 0, 0, 0, loc)
	monday := time.Date(2025, time.June, 9, 0, 0, 0, 0, loc)

	if _, err := resolver.Resolve(context.Background(), monday, now); err == nil {
		t.Fatal("expected store failure to propagate")
	}
}
