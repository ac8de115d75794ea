package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuotaStore persists the per-day sent counter in Postgres. The upsert
// is the atomic increment the shared-counter contract requires; callers
// never read-modify-write.
type QuotaStore struct {
	pool *pgxpool.Pool
}

// NewQuotaStore builds a quota store over the shared pool.
func NewQuotaStore(db *DB) *QuotaStore {
	return &QuotaStore{pool: db.Pool}
}

// IncrementSent atomically adds n to the day's counter and returns the
// new total.
func (s *QuotaStore) IncrementSent(ctx context.Context, day string, n int) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx,
		`INSERT INTO quota_records (day, emails_sent)
		 VALUES ($1, $2)
		 ON CONFLICT (day) DO UPDATE
		 SET emails_sent = quota_records.emails_sent + EXCLUDED.emails_sent
		 RETURNING emails_sent`,
		day, n,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("increment quota for %s: %w", day, err)
	}
	return total, nil
}

// SentOn reads the day's counter, zero if absent.
func (s *QuotaStore) SentOn(ctx context.Context, day string) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT emails_sent FROM quota_records WHERE day = $1`,
		day,
	).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota for %s: %w", day, err)
	}
	return total, nil
}
