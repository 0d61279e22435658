package bookings

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/renoworks/booking-platform/internal/leads"
)

type stubDirectory struct {
	leads map[string]*leads.Lead
}

func (s *stubDirectory) GetByID(_ context.Context, id string) (*leads.Lead, error) {
	if l, ok := s.leads[id]; ok {
		return l, nil
	}
	return nil, leads.ErrLeadNotFound
}

func newTestRepo() *InMemoryRepository {
	dir := &stubDirectory{leads: map[string]*leads.Lead{
		"lead-1": {ID: "lead-1", FirstName: "Maria", LastName: "Lopez"},
	}}
	return NewInMemoryRepository(dir, DefaultConflictWindow)
}

func mustCreate(t *testing.T, repo *InMemoryRepository, leadID string, at time.Time) *Booking {
	t.Helper()
	b, err := repo.CreateScheduled(context.Background(), CreateParams{LeadID: leadID, ScheduledAt: at})
	if err != nil {
		t.Fatalf("CreateScheduled(%v): %v", at, err)
	}
	return b
}

func TestCreateScheduledDefaults(t *testing.T) {
	repo := newTestRepo()
	at := time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)

	b := mustCreate(t, repo, "lead-1", at)
	if b.Status != StatusScheduled {
		t.Errorf("status = %s, want scheduled", b.Status)
	}
	if b.DurationMins != 90 {
		t.Errorf("duration = %d, want 90", b.DurationMins)
	}
	if b.ID == "" {
		t.Error("expected generated id")
	}
}

func TestConflictWindowBounds(t *testing.T) {
	base := time.Date(2025, 6, 9, 14, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		offset   time.Duration
		conflict bool
	}{
		{"same instant", 0, true},
		{"one minute later", time.Minute, true},
		{"89 minutes later", 89 * time.Minute, true},
		{"exactly 90 minutes later", 90 * time.Minute, true},
		{"91 minutes later", 91 * time.Minute, false},
		{"exactly 90 minutes earlier", -90 * time.Minute, true},
		{"91 minutes earlier", -91 * time.Minute, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newTestRepo()
			mustCreate(t, repo, "lead-1", base)

			_, err := repo.CreateScheduled(context.Background(), CreateParams{
				LeadID:      "lead-2",
				ScheduledAt: base.Add(tc.offset),
			})
			if tc.conflict {
				conflict, ok := AsConflictError(err)
				if !ok {
					t.Fatalf("expected ConflictError, got %v", err)
				}
				if !conflict.Conflict.ScheduledAt.Equal(base) {
					t.Errorf("conflicting time = %v, want %v", conflict.Conflict.ScheduledAt, base)
				}
				if conflict.Conflict.CustomerName != "Maria Lopez" {
					t.Errorf("customer = %q, want Maria Lopez", conflict.Conflict.CustomerName)
				}
			} else if err != nil {
				t.Fatalf("expected success, got %v", err)
			}
		})
	}
}

func TestCancelledBookingDoesNotBlock(t *testing.T) {
	repo := newTestRepo()
	at := time.Date(2025, 6, 9, 14, 0, 0, 0, time.UTC)

	b := mustCreate(t, repo, "lead-1", at)
	if _, err := repo.Cancel(context.Background(), b.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// Cancelled rows are invisible to conflicts and to slot feeds.
	if _, err := repo.CreateScheduled(context.Background(), CreateParams{LeadID: "lead-2", ScheduledAt: at}); err != nil {
		t.Fatalf("slot should be free after cancellation: %v", err)
	}

	times, err := repo.ScheduledTimesBetween(context.Background(), at.Add(-time.Hour), at.Add(time.Hour))
	if err != nil {
		t.Fatalf("ScheduledTimesBetween: %v", err)
	}
	if len(times) != 1 {
		t.Fatalf("expected only the replacement booking, got %d entries", len(times))
	}
}

func TestCancelTwice(t *testing.T) {
	repo := newTestRepo()
	b := mustCreate(t, repo, "lead-1", time.Date(2025, 6, 9, 14, 0, 0, 0, time.UTC))

	if _, err := repo.Cancel(context.Background(), b.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if _, err := repo.Cancel(context.Background(), b.ID); err != ErrAlreadyCancelled {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}
	if _, err := repo.Cancel(context.Background(), "missing"); err != ErrBookingNotFound {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}

	// The row survives for audit.
	got, err := repo.GetByID(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("GetByID after cancel: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
}

func TestConcurrentCommitsOneWinner(t *testing.T) {
	repo := newTestRepo()
	at := time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.CreateScheduled(context.Background(), CreateParams{
				LeadID:      "lead-1",
				ScheduledAt: at,
			})
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			if _, ok := AsConflictError(err); !ok {
				t.Fatalf("unexpected error: %v", err)
			}
			conflicts++
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1 (conflicts = %d)", wins, conflicts)
	}
}

func TestCustomerNameFallback(t *testing.T) {
	repo := NewInMemoryRepository(nil, 0)
	at := time.Date(2025, 6, 9, 14, 0, 0, 0, time.UTC)
	mustCreate(t, repo, "lead-unknown", at)

	_, err := repo.CreateScheduled(context.Background(), CreateParams{LeadID: "lead-2", ScheduledAt: at})
	conflict, ok := AsConflictError(err)
	if !ok {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Conflict.CustomerName != "another customer" {
		t.Errorf("customer = %q, want fallback", conflict.Conflict.CustomerName)
	}
}

func TestListOrdering(t *testing.T) {
	repo := newTestRepo()
	early := time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)
	late := time.Date(2025, 6, 16, 18, 0, 0, 0, time.UTC)

	mustCreate(t, repo, "lead-1", early)
	mustCreate(t, repo, "lead-1", late)

	all, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if !all[0].ScheduledAt.Equal(late) {
		t.Errorf("expected newest scheduled time first, got %v", all[0].ScheduledAt)
	}
}

func TestSetIDs(t *testing.T) {
	repo := newTestRepo()
	b := mustCreate(t, repo, "lead-1", time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC))

	if err := repo.SetGoogleEventID(context.Background(), b.ID, "evt-7"); err != nil {
		t.Fatalf("SetGoogleEventID: %v", err)
	}
	if err := repo.SetExternalID(context.Background(), b.ID, "ghl-9"); err != nil {
		t.Fatalf("SetExternalID: %v", err)
	}
	if err := repo.SetGoogleEventID(context.Background(), "missing", "evt"); err != ErrBookingNotFound {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}

	got, err := repo.GetByID(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.GoogleEventID != "evt-7" || got.ExternalID != "ghl-9" {
		t.Errorf("ids = %q/%q, want evt-7/ghl-9", got.GoogleEventID, got.ExternalID)
	}
}
