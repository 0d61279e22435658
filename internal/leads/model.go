package leads

import (
	"strings"
	"time"
)

// Status tracks a lead through the funnel.
type Status string

const (
	// StatusNew marks leads imported from an external CRM.
	StatusNew Status = "new"
	// StatusQualified marks leads that passed the qualification form.
	StatusQualified Status = "qualified"
	// StatusContacted is set exactly when a consultation is booked.
	StatusContacted Status = "contacted"
	// StatusConverted marks leads that became customers.
	StatusConverted Status = "converted"
)

// Lead is a prospective customer from the qualification funnel or an
// inbound CRM event. Leads are never deleted.
type Lead struct {
	ID                       string    `json:"id"`
	FirstName                string    `json:"firstName"`
	LastName                 string    `json:"lastName"`
	Email                    string    `json:"email"`
	CellPhone                string    `json:"cellPhone"`
	Address                  string    `json:"address"`
	OwnOrRent                string    `json:"ownOrRent"`
	AvailableForConsult      bool      `json:"availableForConsult"`
	DecisionMakersAvail      bool      `json:"decisionMakersAvail"`
	RenovateElsewhere        bool      `json:"renovateElsewhere"`
	RenovateElsewhereDetails string    `json:"renovateElsewhereDetails,omitempty"`
	Status                   Status    `json:"status"`
	Source                   string    `json:"source,omitempty"`
	ExternalID               string    `json:"externalId,omitempty"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

// DisplayName is the customer-facing full name.
func (l *Lead) DisplayName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// CreateLeadRequest is the qualification form submission.
type CreateLeadRequest struct {
	FirstName                string `json:"firstName"`
	LastName                 string `json:"lastName"`
	Email                    string `json:"email"`
	CellPhone                string `json:"cellPhone"`
	Address                  string `json:"address"`
	OwnOrRent                string `json:"ownOrRent"`
	AvailableForConsult      bool   `json:"availableForConsult"`
	DecisionMakersAvail      bool   `json:"decisionMakersAvail"`
	RenovateElsewhere        bool   `json:"renovateElsewhere"`
	RenovateElsewhereDetails string `json:"renovateElsewhereDetails"`
}

// Validate checks the qualification form. Renters are screened out
// before any record is created.
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" {
		return ErrInvalidName
	}
	if r.Email == "" && r.CellPhone == "" {
		return ErrMissingContact
	}
	if strings.EqualFold(strings.TrimSpace(r.OwnOrRent), "rent") {
		return ErrRenterNotEligible
	}
	return nil
}

// InboundLead is a lead pushed to us by an external CRM webhook.
// It lands with status "new" and keeps the CRM's id for matching.
type InboundLead struct {
	FirstName  string
	LastName   string
	Email      string
	CellPhone  string
	Address    string
	Source     string
	ExternalID string
}
