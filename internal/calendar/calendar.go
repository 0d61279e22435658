// Package calendar pushes confirmed appointments to the business
// calendar. Every call here is best-effort from the caller's point of
// view: a calendar outage never blocks a booking.
package calendar

import (
	"context"
	"time"
)

// Event describes a calendar entry to create.
type Event struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// Service creates and removes calendar events.
type Service interface {
	CreateEvent(ctx context.Context, event Event) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}
