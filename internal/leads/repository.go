package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage
type Repository interface {
	Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
	CreateInbound(ctx context.Context, in *InboundLead) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	FindByExternalID(ctx context.Context, externalID string) (*Lead, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	SetExternalID(ctx context.Context, id, externalID string) error
	List(ctx context.Context) ([]*Lead, error)
}

// InMemoryRepository keeps leads in memory; used in tests and when the
// service runs without a database.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
	}
}

// Create stores a qualified lead from the funnel.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	lead := &Lead{
		ID:                       uuid.NewString(),
		FirstName:                req.FirstName,
		LastName:                 req.LastName,
		Email:                    req.Email,
		CellPhone:                req.CellPhone,
		Address:                  req.Address,
		OwnOrRent:                req.OwnOrRent,
		AvailableForConsult:      req.AvailableForConsult,
		DecisionMakersAvail:      req.DecisionMakersAvail,
		RenovateElsewhere:        req.RenovateElsewhere,
		RenovateElsewhereDetails: req.RenovateElsewhereDetails,
		Status:                   StatusQualified,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.mu.Unlock()

	return copyLead(lead), nil
}

// CreateInbound stores a lead pushed by a CRM webhook with status "new".
func (r *InMemoryRepository) CreateInbound(ctx context.Context, in *InboundLead) (*Lead, error) {
	now := time.Now().UTC()
	lead := &Lead{
		ID:         uuid.NewString(),
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Email:      in.Email,
		CellPhone:  in.CellPhone,
		Address:    in.Address,
		OwnOrRent:  "unknown",
		Status:     StatusNew,
		Source:     in.Source,
		ExternalID: in.ExternalID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.mu.Unlock()

	return copyLead(lead), nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	return copyLead(lead), nil
}

// FindByExternalID retrieves a lead by its CRM id.
func (r *InMemoryRepository) FindByExternalID(ctx context.Context, externalID string) (*Lead, error) {
	if externalID == "" {
		return nil, ErrLeadNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, lead := range r.leads {
		if lead.ExternalID == externalID {
			return copyLead(lead), nil
		}
	}
	return nil, ErrLeadNotFound
}

// UpdateStatus moves a lead through the funnel.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	lead.Status = status
	lead.UpdatedAt = time.Now().UTC()
	return nil
}

// SetExternalID records the CRM id assigned to a forwarded lead.
func (r *InMemoryRepository) SetExternalID(ctx context.Context, id, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	lead.ExternalID = externalID
	lead.UpdatedAt = time.Now().UTC()
	return nil
}

// List returns all leads, newest first.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Lead, 0, len(r.leads))
	for _, lead := range r.leads {
		out = append(out, copyLead(lead))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func copyLead(l *Lead) *Lead {
	copied := *l
	return &copied
}
