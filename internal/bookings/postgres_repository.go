package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository is the booking ledger backed by Postgres.
//
// Atomicity of CreateScheduled comes from transaction-scoped advisory
// locks keyed by the calendar days the conflict window touches: two
// commits whose windows can overlap always contend on at least one
// shared day key, so the second observes the first's row and fails.
// Commits on far-apart days take disjoint locks and run in parallel.
type PostgresRepository struct {
	db     pgPool
	window time.Duration
}

// NewPostgresRepository creates a ledger backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool, conflictWindow time.Duration) *PostgresRepository {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return newPostgresRepositoryWithPool(pool, conflictWindow)
}

func newPostgresRepositoryWithPool(db pgPool, conflictWindow time.Duration) *PostgresRepository {
	if conflictWindow <= 0 {
		conflictWindow = DefaultConflictWindow
	}
	return &PostgresRepository{db: db, window: conflictWindow}
}

const conflictQuery = `
	SELECT b.id, b.scheduled_at, l.first_name, l.last_name
	FROM bookings b
	JOIN leads l ON l.id = b.lead_id
	WHERE b.scheduled_at BETWEEN $1 AND $2
	  AND b.status <> 'cancelled'
	ORDER BY b.scheduled_at
	LIMIT 1
`

// CreateScheduled commits a booking after an atomic conflict check.
func (r *PostgresRepository) CreateScheduled(ctx context.Context, params CreateParams) (*Booking, error) {
	duration := params.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookings: begin commit tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, key := range advisoryKeys(params.ScheduledAt, r.window) {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return nil, fmt.Errorf("bookings: acquire day lock: %w", err)
		}
	}

	conflict, err := scanConflict(tx.QueryRow(ctx, conflictQuery,
		params.ScheduledAt.Add(-r.window), params.ScheduledAt.Add(r.window)))
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, &ConflictError{Conflict: *conflict}
	}

	id := uuid.NewString()
	var createdAt, updatedAt time.Time
	insert := `
		INSERT INTO bookings (id, lead_id, scheduled_at, duration_mins, status, external_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	if err := tx.QueryRow(ctx, insert,
		id,
		params.LeadID,
		params.ScheduledAt,
		int(duration/time.Minute),
		string(StatusScheduled),
		nullable(params.ExternalID),
		nullable(params.Notes),
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("bookings: insert failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("bookings: commit failed: %w", err)
	}

	return &Booking{
		ID:           id,
		LeadID:       params.LeadID,
		ScheduledAt:  params.ScheduledAt,
		DurationMins: int(duration / time.Minute),
		Status:       StatusScheduled,
		ExternalID:   params.ExternalID,
		Notes:        params.Notes,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// FindConflict returns the blocking booking for a candidate time, if any.
func (r *PostgresRepository) FindConflict(ctx context.Context, candidate time.Time) (*Conflict, error) {
	return scanConflict(r.db.QueryRow(ctx, conflictQuery,
		candidate.Add(-r.window), candidate.Add(r.window)))
}

func scanConflict(row pgx.Row) (*Conflict, error) {
	var c Conflict
	var firstName, lastName string
	if err := row.Scan(&c.BookingID, &c.ScheduledAt, &firstName, &lastName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("bookings: conflict lookup: %w", err)
	}
	c.CustomerName = strings.TrimSpace(firstName + " " + lastName)
	return &c, nil
}

// advisoryKeys returns the per-day lock keys covering the candidate's
// exclusion window. Windows near midnight span two days and take both
// locks; keys are ordered so concurrent commits never deadlock.
func advisoryKeys(candidate time.Time, window time.Duration) []string {
	first := candidate.Add(-window).UTC().Format("2006-01-02")
	last := candidate.Add(window).UTC().Format("2006-01-02")
	keys := []string{"bookings:" + first}
	if last != first {
		keys = append(keys, "bookings:"+last)
	}
	return keys
}

const bookingColumns = `id, lead_id, scheduled_at, duration_mins, status, google_event_id, external_id, notes, created_at, updated_at`

// GetByID fetches a booking by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.db.QueryRow(ctx, query, id))
}

// ScheduledTimesBetween lists active booking instants within [start, end].
func (r *PostgresRepository) ScheduledTimesBetween(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	query := `
		SELECT scheduled_at FROM bookings
		WHERE scheduled_at BETWEEN $1 AND $2 AND status <> 'cancelled'
		ORDER BY scheduled_at
	`
	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("bookings: list scheduled times: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("bookings: scan scheduled time: %w", err)
		}
		out = append(out, at)
	}
	return out, rows.Err()
}

// ListBetween lists all bookings (any status) within [start, end].
func (r *PostgresRepository) ListBetween(ctx context.Context, start, end time.Time) ([]*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE scheduled_at BETWEEN $1 AND $2 ORDER BY scheduled_at DESC`
	return r.queryBookings(ctx, query, start, end)
}

// List returns all bookings, newest scheduled time first.
func (r *PostgresRepository) List(ctx context.Context) ([]*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY scheduled_at DESC`
	return r.queryBookings(ctx, query)
}

func (r *PostgresRepository) queryBookings(ctx context.Context, query string, args ...any) ([]*Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("bookings: list: %w", err)
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SetGoogleEventID stores the calendar event id after the side effect runs.
func (r *PostgresRepository) SetGoogleEventID(ctx context.Context, id, eventID string) error {
	return r.updateColumn(ctx, id, "google_event_id", eventID)
}

// SetExternalID stores the CRM id after the side effect runs.
func (r *PostgresRepository) SetExternalID(ctx context.Context, id, externalID string) error {
	return r.updateColumn(ctx, id, "external_id", externalID)
}

func (r *PostgresRepository) updateColumn(ctx context.Context, id, column, value string) error {
	query := fmt.Sprintf(`UPDATE bookings SET %s = $2, updated_at = now() WHERE id = $1`, column)
	ct, err := r.db.Exec(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("bookings: update %s: %w", column, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// Cancel marks a booking cancelled. The row is retained for audit.
func (r *PostgresRepository) Cancel(ctx context.Context, id string) (*Booking, error) {
	query := `
		UPDATE bookings SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status <> 'cancelled'
		RETURNING ` + bookingColumns
	b, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			// Either missing or already cancelled; look it up to tell them apart.
			if _, getErr := r.GetByID(ctx, id); getErr == nil {
				return nil, ErrAlreadyCancelled
			}
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var googleEventID, externalID, notes *string
	if err := row.Scan(
		&b.ID,
		&b.LeadID,
		&b.ScheduledAt,
		&b.DurationMins,
		&b.Status,
		&googleEventID,
		&externalID,
		&notes,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("bookings: scan failed: %w", err)
	}
	if googleEventID != nil {
		b.GoogleEventID = *googleEventID
	}
	if externalID != nil {
		b.ExternalID = *externalID
	}
	if notes != nil {
		b.Notes = *notes
	}
	return &b, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
