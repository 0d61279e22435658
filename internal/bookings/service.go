package bookings

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/renoworks/booking-platform/internal/calendar"
	"github.com/renoworks/booking-platform/internal/leads"
	"github.com/renoworks/booking-platform/internal/observability/metrics"
	"github.com/renoworks/booking-platform/pkg/logging"
)

var bookingsTracer = otel.Tracer("renoworks.internal.bookings")

// LeadStore is the slice of the lead repository the orchestrator needs.
type LeadStore interface {
	GetByID(ctx context.Context, id string) (*leads.Lead, error)
	UpdateStatus(ctx context.Context, id string, status leads.Status) error
	SetExternalID(ctx context.Context, id, externalID string) error
}

// AppointmentForwarder pushes a committed booking to the CRM.
type AppointmentForwarder interface {
	ForwardBooking(ctx context.Context, lead *leads.Lead, booking *Booking) (string, error)
}

// ConfirmationNotifier emails the customer and the owner after commit.
type ConfirmationNotifier interface {
	SendBookingConfirmation(ctx context.Context, lead *leads.Lead, booking *Booking) error
}

// Service orchestrates the booking commit. The ledger write and the
// lead lookup are the transaction; calendar, CRM and email run after
// commit, isolated from each other, and never influence the outcome
// already returned to the caller.
type Service struct {
	repo     Repository
	leads    LeadStore
	calendar calendar.Service
	crm      AppointmentForwarder
	notifier ConfirmationNotifier
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
	loc      *time.Location

	// dispatch runs post-commit side effects; swapped for a
	// synchronous version in tests.
	dispatch func(fn func(ctx context.Context))
}

// ServiceConfig carries the orchestrator's collaborators. Calendar,
// CRM and Notifier are optional; a nil integration is skipped.
type ServiceConfig struct {
	Repo     Repository
	Leads    LeadStore
	Calendar calendar.Service
	CRM      AppointmentForwarder
	Notifier ConfirmationNotifier
	Metrics  *metrics.BookingMetrics
	Logger   *logging.Logger
	Location *time.Location
}

// NewService constructs the booking orchestrator.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Repo == nil {
		panic("bookings: repository required")
	}
	if cfg.Leads == nil {
		panic("bookings: lead store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	s := &Service{
		repo:     cfg.Repo,
		leads:    cfg.Leads,
		calendar: cfg.Calendar,
		crm:      cfg.CRM,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		loc:      cfg.Location,
	}
	s.dispatch = func(fn func(ctx context.Context)) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			fn(ctx)
		}()
	}
	return s
}

// BookParams describes a booking request after transport decoding.
type BookParams struct {
	LeadID      string
	ScheduledAt time.Time
	Notes       string
}

// Book commits a consultation for the lead at the requested instant.
// The conflict check happens inside the ledger write, so a slot list
// fetched earlier is only advisory. On success the lead moves to
// contacted and the integrations run post-commit.
func (s *Service) Book(ctx context.Context, params BookParams) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("renoworks.lead_id", params.LeadID),
		attribute.String("renoworks.scheduled_at", params.ScheduledAt.Format(time.RFC3339)),
	)

	lead, err := s.leads.GetByID(ctx, params.LeadID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("bookings: lookup lead: %w", err)
	}

	booking, err := s.repo.CreateScheduled(ctx, CreateParams{
		LeadID:      lead.ID,
		ScheduledAt: params.ScheduledAt,
		Notes:       params.Notes,
	})
	if err != nil {
		if _, ok := AsConflictError(err); ok {
			s.metrics.ObserveConflict()
			s.logger.Info("booking rejected for slot conflict",
				"lead_id", lead.ID, "scheduled_at", params.ScheduledAt)
		} else {
			span.RecordError(err)
		}
		return nil, err
	}

	s.metrics.ObserveBooked()
	s.logger.Info("booking committed",
		"booking_id", booking.ID, "lead_id", lead.ID, "scheduled_at", booking.ScheduledAt)

	// The booking stands even if the status transition fails; the lead
	// just shows up as not-yet-contacted in the admin views.
	if err := s.leads.UpdateStatus(ctx, lead.ID, leads.StatusContacted); err != nil {
		s.logger.Error("failed to mark lead contacted",
			"error", err, "booking_id", booking.ID, "lead_id", lead.ID)
	}

	s.runSideEffects(lead, booking)
	return booking, nil
}

// Cancel marks the booking cancelled and removes its calendar event.
func (s *Service) Cancel(ctx context.Context, id string) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("renoworks.booking_id", id))

	booking, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking cancelled", "booking_id", booking.ID, "lead_id", booking.LeadID)

	if s.calendar != nil && booking.GoogleEventID != "" {
		eventID := booking.GoogleEventID
		s.dispatch(func(ctx context.Context) {
			if err := s.calendar.DeleteEvent(ctx, eventID); err != nil {
				s.metrics.ObserveSideEffectFailure("calendar")
				s.logger.Error("failed to delete calendar event",
					"error", err, "booking_id", booking.ID, "event_id", eventID)
			}
		})
	}
	return booking, nil
}

// runSideEffects fans the post-commit integrations out. Each failure
// is logged and counted; none is retried here and none reaches the
// caller.
func (s *Service) runSideEffects(lead *leads.Lead, booking *Booking) {
	if s.calendar != nil {
		s.dispatch(func(ctx context.Context) { s.pushCalendarEvent(ctx, lead, booking) })
	}
	if s.crm != nil {
		s.dispatch(func(ctx context.Context) { s.forwardToCRM(ctx, lead, booking) })
	}
	if s.notifier != nil {
		s.dispatch(func(ctx context.Context) {
			if err := s.notifier.SendBookingConfirmation(ctx, lead, booking); err != nil {
				s.metrics.ObserveSideEffectFailure("email")
				s.logger.Error("failed to send booking confirmation",
					"error", err, "booking_id", booking.ID, "lead_id", lead.ID)
			}
		})
	}
}

func (s *Service) pushCalendarEvent(ctx context.Context, lead *leads.Lead, booking *Booking) {
	local := booking.ScheduledAt.In(s.loc)
	eventID, err := s.calendar.CreateEvent(ctx, calendar.Event{
		Summary:     fmt.Sprintf("Consultation: %s", lead.DisplayName()),
		Description: calendarDescription(lead, booking),
		Location:    lead.Address,
		Start:       local,
		End:         booking.End().In(s.loc),
	})
	if err != nil {
		s.metrics.ObserveSideEffectFailure("calendar")
		s.logger.Error("failed to create calendar event",
			"error", err, "booking_id", booking.ID, "lead_id", lead.ID)
		return
	}
	if err := s.repo.SetGoogleEventID(ctx, booking.ID, eventID); err != nil {
		s.logger.Error("failed to store calendar event id",
			"error", err, "booking_id", booking.ID, "event_id", eventID)
	}
}

func (s *Service) forwardToCRM(ctx context.Context, lead *leads.Lead, booking *Booking) {
	externalID, err := s.crm.ForwardBooking(ctx, lead, booking)
	if err != nil {
		s.metrics.ObserveSideEffectFailure("crm")
		s.logger.Error("failed to forward booking to crm",
			"error", err, "booking_id", booking.ID, "lead_id", lead.ID)
		return
	}
	if externalID == "" {
		return
	}
	if err := s.repo.SetExternalID(ctx, booking.ID, externalID); err != nil {
		s.logger.Error("failed to store crm booking id",
			"error", err, "booking_id", booking.ID)
	}
	if lead.ExternalID == "" {
		if err := s.leads.SetExternalID(ctx, lead.ID, externalID); err != nil {
			s.logger.Error("failed to store crm contact id",
				"error", err, "lead_id", lead.ID)
		}
	}
}

func calendarDescription(lead *leads.Lead, booking *Booking) string {
	desc := fmt.Sprintf("Phone: %s\nEmail: %s", lead.CellPhone, lead.Email)
	if booking.Notes != "" {
		desc += "\nNotes: " + booking.Notes
	}
	return desc
}
