package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/renoworks/booking-platform/internal/bookings"
	"github.com/renoworks/booking-platform/internal/leads"
)

type adminFixture struct {
	handler *AdminHandler
	leads   *leads.InMemoryRepository
	ledger  *bookings.InMemoryRepository
	router  chi.Router
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	leadRepo := leads.NewInMemoryRepository()
	ledger := bookings.NewInMemoryRepository(leadRepo, bookings.DefaultConflictWindow)
	svc := bookings.NewService(bookings.ServiceConfig{Repo: ledger, Leads: leadRepo})
	h := NewAdminHandler(leadRepo, ledger, svc, nil)

	r := chi.NewRouter()
	r.Get("/admin/leads", h.ListLeads)
	r.Get("/admin/bookings", h.ListBookings)
	r.Patch("/admin/bookings/{id}/cancel", h.CancelBooking)

	return &adminFixture{handler: h, leads: leadRepo, ledger: ledger, router: r}
}

func (f *adminFixture) seedLead(t *testing.T) *leads.Lead {
	t.Helper()
	lead, err := f.leads.Create(context.Background(), &leads.CreateLeadRequest{
		FirstName: "Maria",
		LastName:  "Lopez",
		Email:     "maria@example.com",
		CellPhone: "+15035551234",
		OwnOrRent: "own",
	})
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	return lead
}

func (f *adminFixture) seedBooking(t *testing.T, leadID string, at time.Time) *bookings.Booking {
	t.Helper()
	b, err := f.ledger.CreateScheduled(context.Background(), bookings.CreateParams{
		LeadID:      leadID,
		ScheduledAt: at,
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

func (f *adminFixture) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestListLeadsWithBookings(t *testing.T) {
	f := newAdminFixture(t)
	lead := f.seedLead(t)
	f.seedBooking(t, lead.ID, time.Date(2025, 6, 9, 17, 0, 0, 0, time.UTC))

	rec := f.do(http.MethodGet, "/admin/leads")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Leads []struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			Bookings []struct {
				ID string `json:"id"`
			} `json:"bookings"`
		} `json:"leads"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Leads) != 1 {
		t.Fatalf("total = %d, leads = %d, want 1", resp.Total, len(resp.Leads))
	}
	if resp.Leads[0].ID != lead.ID {
		t.Errorf("lead id = %q", resp.Leads[0].ID)
	}
	if len(resp.Leads[0].Bookings) != 1 {
		t.Errorf("bookings attached = %d, want 1", len(resp.Leads[0].Bookings))
	}
}

func TestListLeadsEmptyBookingsArray(t *testing.T) {
	f := newAdminFixture(t)
	f.seedLead(t)

	rec := f.do(http.MethodGet, "/admin/leads")
	var resp struct {
		Leads []struct {
			Bookings []any `json:"bookings"`
		} `json:"leads"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Leads[0].Bookings == nil {
		t.Error("bookings must serialize as [] for leads without bookings")
	}
}

func TestListBookings(t *testing.T) {
	f := newAdminFixture(t)
	lead := f.seedLead(t)
	f.seedBooking(t, lead.ID, time.Date(2025, 6, 9, 17, 0, 0, 0, time.UTC))
	f.seedBooking(t, lead.ID, time.Date(2025, 6, 16, 17, 0, 0, 0, time.UTC))

	rec := f.do(http.MethodGet, "/admin/bookings")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
}

func TestCancelBooking(t *testing.T) {
	f := newAdminFixture(t)
	lead := f.seedLead(t)
	b := f.seedBooking(t, lead.ID, time.Date(2025, 6, 9, 17, 0, 0, 0, time.UTC))

	rec := f.do(http.MethodPatch, "/admin/bookings/"+b.ID+"/cancel")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	stored, err := f.ledger.GetByID(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != bookings.StatusCancelled {
		t.Errorf("status = %s, want cancelled", stored.Status)
	}

	// Cancelling again is a conflict, not an internal error.
	if rec := f.do(http.MethodPatch, "/admin/bookings/"+b.ID+"/cancel"); rec.Code != http.StatusConflict {
		t.Errorf("second cancel status = %d, want 409", rec.Code)
	}
}

func TestCancelBookingNotFound(t *testing.T) {
	f := newAdminFixture(t)

	if rec := f.do(http.MethodPatch, "/admin/bookings/missing/cancel"); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}
