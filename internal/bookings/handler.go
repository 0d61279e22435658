package bookings

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/renoworks/booking-platform/internal/leads"
	"github.com/renoworks/booking-platform/pkg/logging"
)

// Handler exposes the booking commit over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler constructs the bookings HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("bookings: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type createBookingRequest struct {
	LeadID      string `json:"leadId"`
	ScheduledAt string `json:"scheduledAt"`
	Notes       string `json:"notes"`
}

type conflictResponse struct {
	Error              string   `json:"error"`
	Message            string   `json:"message"`
	ConflictingBooking Conflict `json:"conflictingBooking"`
}

// Create handles POST /api/bookings.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.LeadID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "leadId is required"})
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scheduledAt must be an RFC 3339 timestamp"})
		return
	}

	booking, err := h.service.Book(r.Context(), BookParams{
		LeadID:      req.LeadID,
		ScheduledAt: scheduledAt,
		Notes:       strings.TrimSpace(req.Notes),
	})
	if err != nil {
		if conflict, ok := AsConflictError(err); ok {
			writeJSON(w, http.StatusConflict, conflictResponse{
				Error:              "Time slot conflict",
				Message:            conflict.Error(),
				ConflictingBooking: conflict.Conflict,
			})
			return
		}
		if errors.Is(err, leads.ErrLeadNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "lead not found"})
			return
		}
		h.logger.Error("failed to create booking", "error", err, "lead_id", req.LeadID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create booking"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"bookingId": booking.ID,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
