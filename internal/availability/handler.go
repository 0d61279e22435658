package availability

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/renoworks/booking-platform/internal/observability/metrics"
	"github.com/renoworks/booking-platform/pkg/logging"
)

// Handler serves the slot query API.
type Handler struct {
	resolver *Resolver
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewHandler creates the availability handler.
func NewHandler(resolver *Resolver, m *metrics.BookingMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		resolver: resolver,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().In(resolver.Location()) },
	}
}

// WithClock overrides the handler's clock, for tests.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// SlotsResponse mirrors the booking calendar's wire contract.
type SlotsResponse struct {
	Date               string      `json:"date"`
	AvailableSlots     []TimeOfDay `json:"availableSlots"`
	AllSlots           []TimeOfDay `json:"allSlots"`
	BookedSlots        []TimeOfDay `json:"bookedSlots"`
	WithinNoticeWindow []TimeOfDay `json:"withinNoticeWindow"`
}

// GetAvailableSlots handles GET /api/bookings/available-slots?date=YYYY-MM-DD
func (h *Handler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	dateParam := r.URL.Query().Get("date")
	if dateParam == "" {
		http.Error(w, "date parameter is required", http.StatusBadRequest)
		return
	}
	date, err := time.ParseInLocation("2006-01-02", dateParam, h.resolver.Location())
	if err != nil {
		http.Error(w, "date must be formatted YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	start := time.Now()
	slots, err := h.resolver.Resolve(r.Context(), date, h.now())
	if err != nil {
		h.logger.Error("failed to resolve slots", "error", err, "date", dateParam)
		http.Error(w, "failed to fetch available slots", http.StatusInternalServerError)
		return
	}
	h.metrics.ObserveResolveLatency(time.Since(start).Seconds())

	resp := SlotsResponse{
		Date:               dateParam,
		AvailableSlots:     slots.Available,
		AllSlots:           slots.AllSlots,
		BookedSlots:        slots.Booked,
		WithinNoticeWindow: slots.TooSoon,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
