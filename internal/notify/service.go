package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/renoworks/booking-platform/internal/bookings"
	"github.com/renoworks/booking-platform/internal/leads"
	"github.com/renoworks/booking-platform/pkg/logging"
)

// Service turns committed bookings into confirmation emails: one to
// the customer, one to the owner. Both are attempted even when one
// fails.
type Service struct {
	sender     EmailSender
	ownerEmail string
	ownerName  string
	loc        *time.Location
	logger     *logging.Logger
}

// NewService constructs the notifier. loc is the business timezone
// appointment times are rendered in.
func NewService(sender EmailSender, ownerEmail, ownerName string, loc *time.Location, logger *logging.Logger) *Service {
	if sender == nil {
		panic("notify: email sender required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		sender:     sender,
		ownerEmail: ownerEmail,
		ownerName:  ownerName,
		loc:        loc,
		logger:     logger,
	}
}

// SendBookingConfirmation emails the customer and the owner.
func (s *Service) SendBookingConfirmation(ctx context.Context, lead *leads.Lead, booking *bookings.Booking) error {
	when := booking.ScheduledAt.In(s.loc).Format("Monday, January 2, 2006 at 3:04 PM")

	var errs []error
	if lead.Email != "" {
		if err := s.sender.Send(ctx, customerConfirmation(lead, when)); err != nil {
			errs = append(errs, fmt.Errorf("notify: customer confirmation: %w", err))
		}
	} else {
		s.logger.Info("lead has no email, skipping customer confirmation",
			"lead_id", lead.ID, "booking_id", booking.ID)
	}

	if s.ownerEmail != "" {
		if err := s.sender.Send(ctx, s.ownerNotification(lead, booking, when)); err != nil {
			errs = append(errs, fmt.Errorf("notify: owner notification: %w", err))
		}
	}
	return errors.Join(errs...)
}

func customerConfirmation(lead *leads.Lead, when string) EmailMessage {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour in-home consultation is confirmed for %s.\n\n"+
			"We'll come to you at %s. The visit takes about 90 minutes.\n\n"+
			"Need to reschedule? Just reply to this email.\n",
		lead.FirstName, when, lead.Address)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your in-home consultation is confirmed for <strong>%s</strong>.</p>"+
			"<p>We'll come to you at %s. The visit takes about 90 minutes.</p>"+
			"<p>Need to reschedule? Just reply to this email.</p>",
		lead.FirstName, when, lead.Address)
	return EmailMessage{
		To:      lead.Email,
		ToName:  lead.DisplayName(),
		Subject: "Your consultation is confirmed - " + when,
		Body:    body,
		HTML:    html,
	}
}

func (s *Service) ownerNotification(lead *leads.Lead, booking *bookings.Booking, when string) EmailMessage {
	body := fmt.Sprintf(
		"New consultation booked.\n\nWhen: %s\nCustomer: %s\nPhone: %s\nEmail: %s\nAddress: %s\n",
		when, lead.DisplayName(), lead.CellPhone, lead.Email, lead.Address)
	if booking.Notes != "" {
		body += "Notes: " + booking.Notes + "\n"
	}
	return EmailMessage{
		To:      s.ownerEmail,
		ToName:  s.ownerName,
		Subject: fmt.Sprintf("New booking: %s - %s", lead.DisplayName(), when),
		Body:    body,
	}
}
