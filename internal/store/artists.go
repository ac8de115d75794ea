package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/campaign"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/domain"
)

// ArtistStore is the pgx-backed artist/domain registry.
type ArtistStore struct {
	pool *pgxpool.Pool
}

// NewArtistStore builds an artist store over the shared pool.
func NewArtistStore(db *DB) *ArtistStore {
	return &ArtistStore{pool: db.Pool}
}

// Get loads an artist's sending identity.
func (s *ArtistStore) Get(ctx context.Context, id string) (*domain.Artist, error) {
	var a domain.Artist
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, ses_domain, ses_domain_verified
		 FROM artists WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Name, &a.Email, &a.SESDomain, &a.SESDomainVerified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, campaign.ErrArtistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artist %s: %w", id, err)
	}
	return &a, nil
}
