// Package router wires the HTTP surface: the public funnel endpoints,
// the CRM webhook, and the JWT-guarded admin views.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/renoworks/booking-platform/internal/availability"
	"github.com/renoworks/booking-platform/internal/bookings"
	"github.com/renoworks/booking-platform/internal/crm"
	"github.com/renoworks/booking-platform/internal/http/handlers"
	httpmiddleware "github.com/renoworks/booking-platform/internal/http/middleware"
	"github.com/renoworks/booking-platform/internal/leads"
	"github.com/renoworks/booking-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	AvailabilityHandler *availability.Handler
	BookingsHandler     *bookings.Handler
	LeadsHandler        *leads.Handler
	CRMWebhook          *crm.WebhookHandler
	AdminHandler        *handlers.AdminHandler

	MetricsHandler http.Handler

	AdminJWTSecret     string
	CORSAllowedOrigins []string

	// Rate limit for the public write endpoints. Zero disables it.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Public funnel endpoints called by the marketing site.
	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimitPerSecond > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
		}
		if cfg.AvailabilityHandler != nil {
			api.Get("/bookings/available-slots", cfg.AvailabilityHandler.GetAvailableSlots)
		}
		if cfg.BookingsHandler != nil {
			api.Post("/bookings", cfg.BookingsHandler.Create)
		}
		if cfg.LeadsHandler != nil {
			api.Post("/leads", cfg.LeadsHandler.CreateQualified)
		}
	})

	if cfg.CRMWebhook != nil {
		r.Post("/webhooks/crm", cfg.CRMWebhook.Handle)
	}

	if cfg.AdminHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))
			admin.Get("/leads", cfg.AdminHandler.ListLeads)
			admin.Get("/bookings", cfg.AdminHandler.ListBookings)
			admin.Patch("/bookings/{id}/cancel", cfg.AdminHandler.CancelBooking)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
