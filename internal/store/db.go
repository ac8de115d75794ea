// Package store provides the Postgres implementations of the engine's
// persistence contracts: campaigns, fans, artists, delivery outcomes,
// and quota records.
package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the shared pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// New opens a connection pool against the given DSN.
func New(ctx context.Context, conn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, conn)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool}, nil
}

// Close releases the pool.
func (db *DB) Close() {
	db.Pool.Close()
}
