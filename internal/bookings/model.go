package bookings

import "time"

// Status of a booking. Cancelled bookings are kept for audit but are
// invisible to conflict and slot logic.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// DefaultDuration is the consultation length.
const DefaultDuration = 90 * time.Minute

// DefaultConflictWindow is the symmetric exclusion span around an
// existing booking. Deliberately wider than the appointment itself:
// it reserves travel buffer on both sides, matching how the schedule
// has always been run.
const DefaultConflictWindow = 90 * time.Minute

// Booking links a lead to a confirmed consultation instant.
type Booking struct {
	ID            string    `json:"id"`
	LeadID        string    `json:"leadId"`
	ScheduledAt   time.Time `json:"scheduledAt"`
	DurationMins  int       `json:"duration"`
	Status        Status    `json:"status"`
	GoogleEventID string    `json:"googleEventId,omitempty"`
	ExternalID    string    `json:"externalId,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Active reports whether the booking participates in conflict checks.
func (b *Booking) Active() bool {
	return b.Status != StatusCancelled
}

// End returns the booking's end instant.
func (b *Booking) End() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.DurationMins) * time.Minute)
}

// CreateParams describes a booking to commit.
type CreateParams struct {
	LeadID      string
	ScheduledAt time.Time
	Duration    time.Duration
	Notes       string
	ExternalID  string
}

// Conflict identifies the booking that blocks a candidate time.
type Conflict struct {
	BookingID    string    `json:"id"`
	ScheduledAt  time.Time `json:"scheduledAt"`
	CustomerName string    `json:"customerName"`
}
