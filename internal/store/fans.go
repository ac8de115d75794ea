package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/csvparser"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/domain"
)

// FanStore is the pgx-backed fan directory.
type FanStore struct {
	pool *pgxpool.Pool
}

// NewFanStore builds a fan store over the shared pool.
func NewFanStore(db *DB) *FanStore {
	return &FanStore{pool: db.Pool}
}

// ListByArtist returns all fans on an artist's list with their
// subscription status and tracking preferences.
func (s *FanStore) ListByArtist(ctx context.Context, artistID string) ([]domain.Fan, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, artist_id, email, name, status,
		        allow_open_tracking, allow_click_tracking, created_at
		 FROM fans WHERE artist_id = $1
		 ORDER BY created_at ASC`,
		artistID,
	)
	if err != nil {
		return nil, fmt.Errorf("list fans for artist %s: %w", artistID, err)
	}
	defer rows.Close()

	var fans []domain.Fan
	for rows.Next() {
		var f domain.Fan
		if err := rows.Scan(
			&f.ID, &f.ArtistID, &f.Email, &f.Name, &f.Status,
			&f.AllowOpenTracking, &f.AllowClickTracking, &f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan fan: %w", err)
		}
		fans = append(fans, f)
	}
	return fans, rows.Err()
}

// Import upserts fans parsed from a CSV onto an artist's list. Existing
// addresses keep their subscription status; names and preferences are
// refreshed.
func (s *FanStore) Import(ctx context.Context, artistID string, rows []csvparser.FanRow) (int, error) {
	imported := 0
	for _, r := range rows {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO fans
			 (id, artist_id, email, name, status, allow_open_tracking, allow_click_tracking, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
			 ON CONFLICT (artist_id, email) DO UPDATE SET
			     name = EXCLUDED.name,
			     allow_open_tracking = EXCLUDED.allow_open_tracking,
			     allow_click_tracking = EXCLUDED.allow_click_tracking`,
			uuid.New().String(), artistID, r.Email, r.Name,
			domain.FanSubscribed, r.AllowOpenTracking, r.AllowClickTracking,
		)
		if err != nil {
			return imported, fmt.Errorf("import fan %s: %w", r.Email, err)
		}
		imported++
	}
	return imported, nil
}
