// Package crm forwards leads and appointments to the GoHighLevel CRM
// and receives its webhooks. Outbound calls are best-effort; the
// funnel keeps working when the CRM is down.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/renoworks/booking-platform/internal/bookings"
	"github.com/renoworks/booking-platform/internal/leads"
	"github.com/renoworks/booking-platform/pkg/logging"
)

var crmTracer = otel.Tracer("renoworks.internal.crm")

// Client talks to the GoHighLevel REST API.
type Client struct {
	baseURL    string
	apiKey     string
	loc        *time.Location
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient builds a CRM client. timeout defaults to 10s when zero.
func NewClient(baseURL, apiKey string, loc *time.Location, timeout time.Duration, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		loc:        loc,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type contactPayload struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName,omitempty"`
	Email     string   `json:"email,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Address1  string   `json:"address1,omitempty"`
	Source    string   `json:"source,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

type contactResponse struct {
	Contact struct {
		ID string `json:"id"`
	} `json:"contact"`
}

// ForwardQualifiedLead upserts the lead as a CRM contact and returns
// the contact id.
func (c *Client) ForwardQualifiedLead(ctx context.Context, lead *leads.Lead) (string, error) {
	ctx, span := crmTracer.Start(ctx, "crm.forward_lead")
	defer span.End()
	span.SetAttributes(attribute.String("renoworks.lead_id", lead.ID))

	payload := contactPayload{
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		Email:     lead.Email,
		Phone:     lead.CellPhone,
		Address1:  lead.Address,
		Source:    "website funnel",
		Tags:      []string{"qualified"},
		Notes:     leadNotes(lead),
	}
	id, err := c.postContact(ctx, payload)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	c.logger.Info("lead forwarded to crm", "lead_id", lead.ID, "contact_id", id)
	return id, nil
}

// ForwardBooking upserts the contact with the appointment details
// attached and returns the contact id.
func (c *Client) ForwardBooking(ctx context.Context, lead *leads.Lead, booking *bookings.Booking) (string, error) {
	ctx, span := crmTracer.Start(ctx, "crm.forward_booking")
	defer span.End()
	span.SetAttributes(
		attribute.String("renoworks.lead_id", lead.ID),
		attribute.String("renoworks.booking_id", booking.ID),
	)

	payload := contactPayload{
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		Email:     lead.Email,
		Phone:     lead.CellPhone,
		Address1:  lead.Address,
		Source:    "website funnel",
		Tags:      []string{"qualified", "consultation booked"},
		Notes:     c.bookingNotes(lead, booking),
	}
	id, err := c.postContact(ctx, payload)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	c.logger.Info("booking forwarded to crm",
		"lead_id", lead.ID, "booking_id", booking.ID, "contact_id", id)
	return id, nil
}

func (c *Client) postContact(ctx context.Context, payload contactPayload) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("crm: api key missing")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("crm: marshal contact: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contacts/", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("crm: contact upsert: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("crm: contact upsert failed: status %d, body: %s",
			resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed contactResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("crm: decode contact response: %w", err)
	}
	return parsed.Contact.ID, nil
}

// leadNotes flattens the qualification answers into one block the
// sales team reads inside the CRM.
func leadNotes(lead *leads.Lead) string {
	lines := []string{
		"Own or rent: " + lead.OwnOrRent,
		"Available for consult: " + yesNo(lead.AvailableForConsult),
		"Decision makers available: " + yesNo(lead.DecisionMakersAvail),
		"Renovated elsewhere: " + yesNo(lead.RenovateElsewhere),
	}
	if lead.RenovateElsewhereDetails != "" {
		lines = append(lines, "Details: "+lead.RenovateElsewhereDetails)
	}
	return strings.Join(lines, "\n")
}

func (c *Client) bookingNotes(lead *leads.Lead, booking *bookings.Booking) string {
	lines := []string{
		"Consultation: " + booking.ScheduledAt.In(c.loc).Format("Monday, January 2, 2006 at 3:04 PM"),
		fmt.Sprintf("Duration: %d minutes", booking.DurationMins),
	}
	if booking.Notes != "" {
		lines = append(lines, "Customer notes: "+booking.Notes)
	}
	lines = append(lines, "", leadNotes(lead))
	return strings.Join(lines, "\n")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
