package crm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/renoworks/booking-platform/internal/bookings"
	"github.com/renoworks/booking-platform/internal/leads"
	"github.com/renoworks/booking-platform/pkg/logging"
)

// LeadIntake is the slice of the lead repository webhooks need.
type LeadIntake interface {
	CreateInbound(ctx context.Context, inbound *leads.InboundLead) (*leads.Lead, error)
	FindByExternalID(ctx context.Context, externalID string) (*leads.Lead, error)
}

// BookingLedger is the slice of the booking ledger webhooks need.
type BookingLedger interface {
	CreateScheduled(ctx context.Context, params bookings.CreateParams) (*bookings.Booking, error)
}

// WebhookHandler receives CRM push events. Handling is idempotent:
// the deduper drops redeliveries and existing records short-circuit.
// The handler always answers 200 for events it understood, even when
// the action failed, so the CRM does not retry forever.
type WebhookHandler struct {
	leads   LeadIntake
	ledger  BookingLedger
	deduper EventDeduper
	logger  *logging.Logger
}

// NewWebhookHandler constructs the inbound webhook handler. deduper
// may be nil; events are then accepted without replay protection.
func NewWebhookHandler(leadIntake LeadIntake, ledger BookingLedger, deduper EventDeduper, logger *logging.Logger) *WebhookHandler {
	if leadIntake == nil {
		panic("crm: lead intake required")
	}
	if deduper == nil {
		deduper = NoopDeduper{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{leads: leadIntake, ledger: ledger, deduper: deduper, logger: logger}
}

type webhookEvent struct {
	ID      string `json:"id"`
	Contact struct {
		ID        string `json:"id"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		Address   string `json:"address1"`
	} `json:"contact"`
	Appointment struct {
		ID        string `json:"id"`
		StartTime string `json:"startTime"`
	} `json:"appointment"`
}

// Handle processes POST /webhooks/crm.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	source := r.Header.Get("X-Webhook-Source")
	if source == "" {
		source = "crm"
	}
	eventType := r.Header.Get("X-Webhook-Type")

	var event webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid webhook body"})
		return
	}
	if strings.TrimSpace(event.ID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "event id is required"})
		return
	}

	fresh, err := h.deduper.MarkProcessed(r.Context(), source, event.ID)
	if err != nil {
		// Failing open risks a duplicate; failing closed loses the event.
		h.logger.Error("webhook dedupe check failed", "error", err, "event_id", event.ID)
		fresh = true
	}
	if !fresh {
		h.logger.Info("dropping replayed webhook", "source", source, "event_id", event.ID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}

	switch eventType {
	case "lead.created", "contact.created":
		h.handleContact(w, r, source, &event)
	case "appointment.created":
		h.handleAppointment(w, r, source, &event)
	default:
		h.logger.Info("unhandled webhook type", "source", source, "type", eventType, "event_id", event.ID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

func (h *WebhookHandler) handleContact(w http.ResponseWriter, r *http.Request, source string, event *webhookEvent) {
	if event.Contact.ID != "" {
		if _, err := h.leads.FindByExternalID(r.Context(), event.Contact.ID); err == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "exists"})
			return
		}
	}

	lead, err := h.leads.CreateInbound(r.Context(), &leads.InboundLead{
		FirstName:  event.Contact.FirstName,
		LastName:   event.Contact.LastName,
		Email:      event.Contact.Email,
		CellPhone:  event.Contact.Phone,
		Address:    event.Contact.Address,
		Source:     source,
		ExternalID: event.Contact.ID,
	})
	if err != nil {
		h.logger.Error("failed to store inbound lead", "error", err, "event_id", event.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store lead"})
		return
	}

	h.logger.Info("inbound lead created", "lead_id", lead.ID, "source", source)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "leadId": lead.ID})
}

func (h *WebhookHandler) handleAppointment(w http.ResponseWriter, r *http.Request, source string, event *webhookEvent) {
	if h.ledger == nil {
		h.logger.Info("ignoring appointment webhook, no ledger wired", "event_id", event.ID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	startTime, err := time.Parse(time.RFC3339, event.Appointment.StartTime)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "appointment startTime must be RFC 3339"})
		return
	}

	lead, err := h.leads.FindByExternalID(r.Context(), event.Contact.ID)
	if errors.Is(err, leads.ErrLeadNotFound) {
		lead, err = h.leads.CreateInbound(r.Context(), &leads.InboundLead{
			FirstName:  event.Contact.FirstName,
			LastName:   event.Contact.LastName,
			Email:      event.Contact.Email,
			CellPhone:  event.Contact.Phone,
			Address:    event.Contact.Address,
			Source:     source,
			ExternalID: event.Contact.ID,
		})
	}
	if err != nil {
		h.logger.Error("failed to resolve webhook lead", "error", err, "event_id", event.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to resolve lead"})
		return
	}

	booking, err := h.ledger.CreateScheduled(r.Context(), bookings.CreateParams{
		LeadID:      lead.ID,
		ScheduledAt: startTime,
		ExternalID:  event.Appointment.ID,
	})
	if err != nil {
		if _, ok := bookings.AsConflictError(err); ok {
			// The slot is taken on our side; the CRM appointment stands
			// wherever it was made. Flag it for a human instead of retrying.
			h.logger.Error("crm appointment conflicts with local ledger",
				"event_id", event.ID, "lead_id", lead.ID, "scheduled_at", startTime)
			writeJSON(w, http.StatusOK, map[string]string{"status": "conflict"})
			return
		}
		h.logger.Error("failed to store crm appointment", "error", err, "event_id", event.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store appointment"})
		return
	}

	h.logger.Info("crm appointment imported",
		"booking_id", booking.ID, "lead_id", lead.ID, "source", source)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "bookingId": booking.ID})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
