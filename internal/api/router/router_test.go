package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/renoworks/booking-platform/internal/availability"
	"github.com/renoworks/booking-platform/internal/bookings"
	"github.com/renoworks/booking-platform/internal/http/handlers"
	"github.com/renoworks/booking-platform/internal/leads"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	leadRepo := leads.NewInMemoryRepository()
	ledger := bookings.NewInMemoryRepository(leadRepo, bookings.DefaultConflictWindow)
	svc := bookings.NewService(bookings.ServiceConfig{Repo: ledger, Leads: leadRepo})

	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	resolver := availability.NewResolver(
		availability.DefaultTemplate(),
		availability.NewLeadTimeGuard(0),
		ledger,
		loc,
		nil,
	)

	return New(&Config{
		AvailabilityHandler: availability.NewHandler(resolver, nil, nil),
		BookingsHandler:     bookings.NewHandler(svc, nil),
		LeadsHandler:        leads.NewHandler(leadRepo, nil, nil),
		AdminHandler:        handlers.NewAdminHandler(leadRepo, ledger, svc, nil),
		AdminJWTSecret:      "test-secret",
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestAvailableSlotsRoute(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	// Far enough out that the notice window never interferes.
	date := time.Now().AddDate(0, 2, 0).Format("2006-01-02")
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bookings/available-slots?date="+date, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "availableSlots") {
		t.Errorf("body missing slot payload: %q", rec.Body.String())
	}
}

func TestLeadIntakeRoute(t *testing.T) {
	r := newTestRouter(t)
	body := `{
		"firstName": "Maria",
		"lastName": "Lopez",
		"email": "maria@example.com",
		"cellPhone": "+15035551234",
		"ownOrRent": "own"
	}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminRoutesRequireJWT(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/admin/leads", "/admin/bookings"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", path, rec.Code)
		}
	}

	claims := jwt.RegisteredClaims{
		Subject:   "owner",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authorized admin request: status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownRoute404(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
