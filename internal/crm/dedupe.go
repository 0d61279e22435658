package crm

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// EventDeduper remembers which webhook events were already processed.
// MarkProcessed returns true exactly once per event.
type EventDeduper interface {
	MarkProcessed(ctx context.Context, source, eventID string) (bool, error)
}

// RedisDeduper implements EventDeduper with SETNX and a TTL. CRMs
// redeliver webhooks on slow responses; a replay inside the TTL is
// dropped, and anything older than the TTL is long settled anyway.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper builds a deduper. ttl defaults to 72h when zero.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if client == nil {
		panic("crm: redis client required")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) MarkProcessed(ctx context.Context, source, eventID string) (bool, error) {
	key := fmt.Sprintf("crm:webhook:%s:%s", source, eventID)
	fresh, err := d.client.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("crm: dedupe check: %w", err)
	}
	return fresh, nil
}

// PostgresDeduper is the fallback for deployments without Redis. It
// keeps every processed event id; there is no TTL, the table just
// grows with webhook volume.
type PostgresDeduper struct {
	db interface {
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	}
}

// NewPostgresDeduper builds a deduper over the processed_events table.
func NewPostgresDeduper(pool *pgxpool.Pool) *PostgresDeduper {
	if pool == nil {
		panic("crm: pgx pool required")
	}
	return &PostgresDeduper{db: pool}
}

func (d *PostgresDeduper) MarkProcessed(ctx context.Context, source, eventID string) (bool, error) {
	ct, err := d.db.Exec(ctx,
		`INSERT INTO processed_events (source, event_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		source, eventID)
	if err != nil {
		return false, fmt.Errorf("crm: dedupe insert: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// NoopDeduper accepts every event. Used when neither Redis nor
// Postgres dedupe is configured; webhook handling is then idempotent
// only at the repository level.
type NoopDeduper struct{}

func (NoopDeduper) MarkProcessed(context.Context, string, string) (bool, error) {
	return true, nil
}
