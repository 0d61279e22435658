package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/renoworks/booking-platform/pkg/logging"
)

// CRMForwarder pushes a qualified lead to the external CRM, returning
// the CRM's contact id. Forwarding is best-effort and never blocks the
// funnel response.
type CRMForwarder interface {
	ForwardQualifiedLead(ctx context.Context, lead *Lead) (string, error)
}

// Handler handles HTTP requests for leads
type Handler struct {
	repo     Repository
	crm      CRMForwarder
	logger   *logging.Logger
	dispatch func(fn func(ctx context.Context))
}

// NewHandler creates a new leads handler. crm may be nil.
func NewHandler(repo Repository, crm CRMForwarder, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		repo:   repo,
		crm:    crm,
		logger: logger,
	}
	h.dispatch = func(fn func(ctx context.Context)) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			fn(ctx)
		}()
	}
	return h
}

// CreateQualified handles POST /api/leads from the qualification form.
func (h *Handler) CreateQualified(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode lead request", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		if errors.Is(err, ErrRenterNotEligible) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "We cannot work with renters. Please have your landlord contact us directly.",
			})
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	lead, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create lead", "error", err)
		http.Error(w, "failed to submit form", http.StatusInternalServerError)
		return
	}

	h.logger.Info("lead qualified", "lead_id", lead.ID, "name", lead.DisplayName())
	h.forwardToCRM(lead)

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"leadId":  lead.ID,
	})
}

// forwardToCRM sends the qualification summary to the CRM without
// blocking the response. Failure is logged for manual follow-up.
func (h *Handler) forwardToCRM(lead *Lead) {
	if h.crm == nil {
		return
	}
	h.dispatch(func(ctx context.Context) {
		externalID, err := h.crm.ForwardQualifiedLead(ctx, lead)
		if err != nil {
			h.logger.Error("crm forward failed for qualified lead",
				"error", err, "lead_id", lead.ID, "integration", "crm")
			return
		}
		if err := h.repo.SetExternalID(ctx, lead.ID, externalID); err != nil {
			h.logger.Error("failed to store crm id on lead",
				"error", err, "lead_id", lead.ID, "external_id", externalID)
			return
		}
		h.logger.Info("lead forwarded to crm", "lead_id", lead.ID, "external_id", externalID)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
