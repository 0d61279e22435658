// Package handlers holds the admin-facing HTTP handlers. They sit
// behind the AdminJWT middleware and read straight from the
// repositories.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/renoworks/booking-platform/internal/bookings"
	"github.com/renoworks/booking-platform/internal/leads"
	"github.com/renoworks/booking-platform/pkg/logging"
)

// AdminHandler serves the owner's lead and booking views.
type AdminHandler struct {
	leads    leads.Repository
	ledger   bookings.Repository
	bookings *bookings.Service
	logger   *logging.Logger
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(leadRepo leads.Repository, ledger bookings.Repository, bookingService *bookings.Service, logger *logging.Logger) *AdminHandler {
	if leadRepo == nil {
		panic("handlers: lead repository required")
	}
	if ledger == nil {
		panic("handlers: booking ledger required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{
		leads:    leadRepo,
		ledger:   ledger,
		bookings: bookingService,
		logger:   logger,
	}
}

// leadWithBookings is a lead with its bookings attached for the admin
// list view.
type leadWithBookings struct {
	*leads.Lead
	Bookings []*bookings.Booking `json:"bookings"`
}

// ListLeads handles GET /admin/leads.
func (h *AdminHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	allLeads, err := h.leads.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list leads"})
		return
	}
	allBookings, err := h.ledger.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list bookings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list bookings"})
		return
	}

	byLead := make(map[string][]*bookings.Booking)
	for _, b := range allBookings {
		byLead[b.LeadID] = append(byLead[b.LeadID], b)
	}

	out := make([]leadWithBookings, 0, len(allLeads))
	for _, l := range allLeads {
		bs := byLead[l.ID]
		if bs == nil {
			bs = []*bookings.Booking{}
		}
		out = append(out, leadWithBookings{Lead: l, Bookings: bs})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"leads": out,
		"total": len(out),
	})
}

// ListBookings handles GET /admin/bookings.
func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	all, err := h.ledger.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list bookings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list bookings"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bookings": all,
		"total":    len(all),
	})
}

// CancelBooking handles PATCH /admin/bookings/{id}/cancel.
func (h *AdminHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "booking id is required"})
		return
	}

	booking, err := h.bookings.Cancel(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrBookingNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "booking not found"})
		case errors.Is(err, bookings.ErrAlreadyCancelled):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "booking already cancelled"})
		default:
			h.logger.Error("failed to cancel booking", "error", err, "booking_id", id)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to cancel booking"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"booking": booking,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
