package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/campaign"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/domain"
)

// CampaignStore is the pgx-backed campaign.Store implementation.
type CampaignStore struct {
	pool *pgxpool.Pool
}

// NewCampaignStore builds a campaign store over the shared pool.
func NewCampaignStore(db *DB) *CampaignStore {
	return &CampaignStore{pool: db.Pool}
}

// Get loads one campaign with settings and stats.
func (s *CampaignStore) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	var c domain.Campaign
	err := s.pool.QueryRow(ctx,
		`SELECT id, artist_id, name, subject, html_body, text_body, status,
		        track_opens, track_clicks, send_to_unsubscribed,
		        total_sent, total_delivered, total_bounced, total_complained, total_failed,
		        send_date, created_at, updated_at
		 FROM campaigns WHERE id = $1`,
		id,
	).Scan(
		&c.ID, &c.ArtistID, &c.Name, &c.Subject, &c.HTMLBody, &c.TextBody, &c.Status,
		&c.Settings.TrackOpens, &c.Settings.TrackClicks, &c.Settings.SendToUnsubscribed,
		&c.Stats.TotalSent, &c.Stats.TotalDelivered, &c.Stats.TotalBounced,
		&c.Stats.TotalComplained, &c.Stats.TotalFailed,
		&c.SendDate, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}
	return &c, nil
}

// UpdateStatus transitions a campaign's status.
func (s *CampaignStore) UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE campaigns SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

// UpdateStats overwrites the aggregate delivery counters.
func (s *CampaignStore) UpdateStats(ctx context.Context, id string, stats domain.CampaignStats) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE campaigns
		 SET total_sent = $2, total_delivered = $3, total_bounced = $4,
		     total_complained = $5, total_failed = $6, updated_at = NOW()
		 WHERE id = $1`,
		id, stats.TotalSent, stats.TotalDelivered, stats.TotalBounced,
		stats.TotalComplained, stats.TotalFailed,
	)
	if err != nil {
		return fmt.Errorf("update campaign stats: %w", err)
	}
	return nil
}

// UpdateSendDate reschedules a campaign.
func (s *CampaignStore) UpdateSendDate(ctx context.Context, id string, sendDate time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE campaigns SET send_date = $2, updated_at = NOW() WHERE id = $1`,
		id, sendDate,
	)
	if err != nil {
		return fmt.Errorf("update campaign send date: %w", err)
	}
	return nil
}
