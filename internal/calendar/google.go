package calendar

import (
	"context"
	"fmt"
	"strings"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleService implements Service against the Google Calendar API
// using a service-account credentials file.
type GoogleService struct {
	svc        *gcal.Service
	calendarID string
	timezone   string
}

// NewGoogleService creates a calendar client. calendarID defaults to
// the account's primary calendar when empty.
func NewGoogleService(ctx context.Context, credentialsFile, calendarID, timezone string) (*GoogleService, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, fmt.Errorf("calendar: credentials file is required")
	}
	if strings.TrimSpace(calendarID) == "" {
		calendarID = "primary"
	}

	svc, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcal.CalendarEventsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: failed to create google client: %w", err)
	}

	return &GoogleService{
		svc:        svc,
		calendarID: calendarID,
		timezone:   timezone,
	}, nil
}

// CreateEvent inserts the event and returns the Google event id.
func (g *GoogleService) CreateEvent(ctx context.Context, event Event) (string, error) {
	created, err := g.svc.Events.Insert(g.calendarID, &gcal.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Start: &gcal.EventDateTime{
			DateTime: event.Start.Format("2006-01-02T15:04:05-07:00"),
			TimeZone: g.timezone,
		},
		End: &gcal.EventDateTime{
			DateTime: event.End.Format("2006-01-02T15:04:05-07:00"),
			TimeZone: g.timezone,
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar: insert event: %w", err)
	}
	return created.Id, nil
}

// DeleteEvent removes a previously created event.
func (g *GoogleService) DeleteEvent(ctx context.Context, eventID string) error {
	if err := g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: delete event %s: %w", eventID, err)
	}
	return nil
}
