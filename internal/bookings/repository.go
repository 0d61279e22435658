package bookings

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/renoworks/booking-platform/internal/leads"
)

// Repository is the authoritative booking ledger. CreateScheduled must
// perform the conflict check and the insert as one atomic unit: of two
// concurrent commits inside each other's exclusion window, exactly one
// succeeds and the other receives a ConflictError.
type Repository interface {
	CreateScheduled(ctx context.Context, params CreateParams) (*Booking, error)
	FindConflict(ctx context.Context, candidate time.Time) (*Conflict, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	ScheduledTimesBetween(ctx context.Context, start, end time.Time) ([]time.Time, error)
	ListBetween(ctx context.Context, start, end time.Time) ([]*Booking, error)
	List(ctx context.Context) ([]*Booking, error)
	SetGoogleEventID(ctx context.Context, id, eventID string) error
	SetExternalID(ctx context.Context, id, externalID string) error
	Cancel(ctx context.Context, id string) (*Booking, error)
}

// LeadDirectory resolves lead display names for conflict reporting.
type LeadDirectory interface {
	GetByID(ctx context.Context, id string) (*leads.Lead, error)
}

// InMemoryRepository is the ledger backed by process memory. A single
// mutex spans the conflict check and the insert, which is all the
// serialization the atomicity contract needs in one process.
type InMemoryRepository struct {
	mu       sync.Mutex
	bookings map[string]*Booking
	names    LeadDirectory
	window   time.Duration
}

// NewInMemoryRepository creates the in-memory ledger. names may be nil;
// conflicts then carry a generic customer name.
func NewInMemoryRepository(names LeadDirectory, conflictWindow time.Duration) *InMemoryRepository {
	if conflictWindow <= 0 {
		conflictWindow = DefaultConflictWindow
	}
	return &InMemoryRepository{
		bookings: make(map[string]*Booking),
		names:    names,
		window:   conflictWindow,
	}
}

// CreateScheduled commits a booking after an atomic conflict check.
func (r *InMemoryRepository) CreateScheduled(ctx context.Context, params CreateParams) (*Booking, error) {
	duration := params.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if conflict := r.findConflictLocked(ctx, params.ScheduledAt); conflict != nil {
		return nil, &ConflictError{Conflict: *conflict}
	}

	now := time.Now().UTC()
	booking := &Booking{
		ID:           uuid.NewString(),
		LeadID:       params.LeadID,
		ScheduledAt:  params.ScheduledAt,
		DurationMins: int(duration / time.Minute),
		Status:       StatusScheduled,
		ExternalID:   params.ExternalID,
		Notes:        params.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.bookings[booking.ID] = booking
	return copyBooking(booking), nil
}

// FindConflict returns the blocking booking for a candidate time, if any.
func (r *InMemoryRepository) FindConflict(ctx context.Context, candidate time.Time) (*Conflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findConflictLocked(ctx, candidate), nil
}

func (r *InMemoryRepository) findConflictLocked(ctx context.Context, candidate time.Time) *Conflict {
	start := candidate.Add(-r.window)
	end := candidate.Add(r.window)
	for _, b := range r.bookings {
		if !b.Active() {
			continue
		}
		if b.ScheduledAt.Before(start) || b.ScheduledAt.After(end) {
			continue
		}
		return &Conflict{
			BookingID:    b.ID,
			ScheduledAt:  b.ScheduledAt,
			CustomerName: r.customerName(ctx, b.LeadID),
		}
	}
	return nil
}

func (r *InMemoryRepository) customerName(ctx context.Context, leadID string) string {
	if r.names == nil {
		return "another customer"
	}
	lead, err := r.names.GetByID(ctx, leadID)
	if err != nil {
		return "another customer"
	}
	return lead.DisplayName()
}

// GetByID retrieves a booking by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return copyBooking(b), nil
}

// ScheduledTimesBetween lists active booking instants within [start, end].
func (r *InMemoryRepository) ScheduledTimesBetween(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []time.Time
	for _, b := range r.bookings {
		if !b.Active() {
			continue
		}
		if b.ScheduledAt.Before(start) || b.ScheduledAt.After(end) {
			continue
		}
		out = append(out, b.ScheduledAt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// ListBetween lists all bookings (any status) within [start, end].
func (r *InMemoryRepository) ListBetween(ctx context.Context, start, end time.Time) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Booking
	for _, b := range r.bookings {
		if b.ScheduledAt.Before(start) || b.ScheduledAt.After(end) {
			continue
		}
		out = append(out, copyBooking(b))
	}
	sortBookings(out)
	return out, nil
}

// List returns all bookings, newest scheduled time first.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		out = append(out, copyBooking(b))
	}
	sortBookings(out)
	return out, nil
}

// SetGoogleEventID stores the calendar event id after the side effect runs.
func (r *InMemoryRepository) SetGoogleEventID(ctx context.Context, id, eventID string) error {
	return r.update(id, func(b *Booking) { b.GoogleEventID = eventID })
}

// SetExternalID stores the CRM id after the side effect runs.
func (r *InMemoryRepository) SetExternalID(ctx context.Context, id, externalID string) error {
	return r.update(id, func(b *Booking) { b.ExternalID = externalID })
}

// Cancel marks a booking cancelled. The row is retained for audit.
func (r *InMemoryRepository) Cancel(ctx context.Context, id string) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	if b.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	b.Status = StatusCancelled
	b.UpdatedAt = time.Now().UTC()
	return copyBooking(b), nil
}

func (r *InMemoryRepository) update(id string, fn func(*Booking)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	fn(b)
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func copyBooking(b *Booking) *Booking {
	copied := *b
	return &copied
}

func sortBookings(out []*Booking) {
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
}
