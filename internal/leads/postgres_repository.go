package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db pgQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(db pgQuerier) *PostgresRepository {
	if db == nil {
		panic("leads: querier required")
	}
	return &PostgresRepository{db: db}
}

const leadColumns = `id, first_name, last_name, email, cell_phone, address, own_or_rent,
	available_for_consult, decision_makers_avail, renovate_elsewhere,
	renovate_elsewhere_details, status, source, external_id, created_at, updated_at`

// Create inserts a qualified lead from the funnel.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	query := `
		INSERT INTO leads (id, first_name, last_name, email, cell_phone, address, own_or_rent,
			available_for_consult, decision_makers_avail, renovate_elsewhere,
			renovate_elsewhere_details, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.FirstName,
		req.LastName,
		req.Email,
		req.CellPhone,
		req.Address,
		req.OwnOrRent,
		req.AvailableForConsult,
		req.DecisionMakersAvail,
		req.RenovateElsewhere,
		req.RenovateElsewhereDetails,
		string(StatusQualified),
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}

	return &Lead{
		ID:                       id,
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
		CreatedAt:                createdAt,
		UpdatedAt:                updatedAt,
	}, nil
}

// CreateInbound inserts a lead pushed by a CRM webhook with status "new".
func (r *PostgresRepository) CreateInbound(ctx context.Context, in *InboundLead) (*Lead, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO leads (id, first_name, last_name, email, cell_phone, address, own_or_rent,
			status, source, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, 'unknown', $7, $8, $9)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		in.FirstName,
		in.LastName,
		in.Email,
		in.CellPhone,
		in.Address,
		string(StatusNew),
		in.Source,
		in.ExternalID,
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("leads: insert inbound failed: %w", err)
	}

	return &Lead{
		ID:         id,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Email:      in.Email,
		CellPhone:  in.CellPhone,
		Address:    in.Address,
		OwnOrRent:  "unknown",
		Status:     StatusNew,
		Source:     in.Source,
		ExternalID: in.ExternalID,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}

// GetByID fetches a lead by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	return r.scanLead(r.db.QueryRow(ctx, query, id))
}

// FindByExternalID fetches the lead carrying the CRM's id.
func (r *PostgresRepository) FindByExternalID(ctx context.Context, externalID string) (*Lead, error) {
	if externalID == "" {
		return nil, ErrLeadNotFound
	}
	query := `SELECT ` + leadColumns + ` FROM leads WHERE external_id = $1 ORDER BY created_at LIMIT 1`
	return r.scanLead(r.db.QueryRow(ctx, query, externalID))
}

// UpdateStatus moves a lead through the funnel.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	query := `UPDATE leads SET status = $2, updated_at = now() WHERE id = $1`
	ct, err := r.db.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("leads: update status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// SetExternalID records the CRM id assigned to a forwarded lead.
func (r *PostgresRepository) SetExternalID(ctx context.Context, id, externalID string) error {
	query := `UPDATE leads SET external_id = $2, updated_at = now() WHERE id = $1`
	ct, err := r.db.Exec(ctx, query, id, externalID)
	if err != nil {
		return fmt.Errorf("leads: set external id: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// List returns all leads, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("leads: list: %w", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		lead, err := r.scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	var details, source, externalID *string
	if err := row.Scan(
		&lead.ID,
		&lead.FirstName,
		&lead.LastName,
		&lead.Email,
		&lead.CellPhone,
		&lead.Address,
		&lead.OwnOrRent,
		&lead.AvailableForConsult,
		&lead.DecisionMakersAvail,
		&lead.RenovateElsewhere,
		&details,
		&lead.Status,
		&source,
		&externalID,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: scan failed: %w", err)
	}
	if details != nil {
		lead.RenovateElsewhereDetails = *details
	}
	if source != nil {
		lead.Source = *source
	}
	if externalID != nil {
		lead.ExternalID = *externalID
	}
	return &lead, nil
}
