package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/domain"
)

// OutcomeStore is the pgx-backed delivery outcome sink. The log is
// append-only and idempotent on (campaign_id, fan_id, attempt); later
// bounce/complaint notifications correct an outcome in place rather
// than appending a second terminal record.
type OutcomeStore struct {
	pool *pgxpool.Pool
}

// NewOutcomeStore builds an outcome store over the shared pool.
func NewOutcomeStore(db *DB) *OutcomeStore {
	return &OutcomeStore{pool: db.Pool}
}

// LogOutcome records one send attempt's outcome. Replays of the same
// (campaign, fan, attempt) are dropped by the unique constraint.
func (s *OutcomeStore) LogOutcome(ctx context.Context, o domain.DeliveryOutcome) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO delivery_outcomes
		 (campaign_id, fan_id, attempt, status, message_id, error_message, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (campaign_id, fan_id, attempt) DO NOTHING`,
		o.CampaignID, o.FanID, o.Attempt, o.Status, o.MessageID, o.ErrorMessage, o.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("log outcome campaign=%s fan=%s: %w", o.CampaignID, o.FanID, err)
	}
	return nil
}

// CorrectOutcome updates a provisional "sent" outcome after a bounce or
// complaint notification for the message arrives. It touches the
// latest attempt only and never creates a new row.
func (s *OutcomeStore) CorrectOutcome(ctx context.Context, campaignID, fanID string, status domain.OutcomeStatus, detail string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE delivery_outcomes
		 SET status = $3, error_message = $4
		 WHERE campaign_id = $1 AND fan_id = $2
		   AND attempt = (
			SELECT MAX(attempt) FROM delivery_outcomes
			WHERE campaign_id = $1 AND fan_id = $2
		 )`,
		campaignID, fanID, status, detail,
	)
	if err != nil {
		return fmt.Errorf("correct outcome campaign=%s fan=%s: %w", campaignID, fanID, err)
	}
	return nil
}

// FansWithOutcome lists the fans that already have any outcome for the
// campaign, so a resumed send can skip them.
func (s *OutcomeStore) FansWithOutcome(ctx context.Context, campaignID string) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT fan_id FROM delivery_outcomes WHERE campaign_id = $1`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("fans with outcome %s: %w", campaignID, err)
	}
	defer rows.Close()

	fans := make(map[string]struct{})
	for rows.Next() {
		var fanID string
		if err := rows.Scan(&fanID); err != nil {
			return nil, fmt.Errorf("scan fan id: %w", err)
		}
		fans[fanID] = struct{}{}
	}
	return fans, rows.Err()
}

// StatsForCampaign recomputes aggregate stats from each fan's latest
// outcome.
func (s *OutcomeStore) StatsForCampaign(ctx context.Context, campaignID string) (domain.CampaignStats, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM (
			SELECT DISTINCT ON (fan_id) status
			FROM delivery_outcomes
			WHERE campaign_id = $1
			ORDER BY fan_id, attempt DESC
		 ) latest
		 GROUP BY status`,
		campaignID,
	)
	if err != nil {
		return domain.CampaignStats{}, fmt.Errorf("campaign stats %s: %w", campaignID, err)
	}
	defer rows.Close()

	var stats domain.CampaignStats
	for rows.Next() {
		var status domain.OutcomeStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats, fmt.Errorf("scan stats row: %w", err)
		}
		switch status {
		case domain.OutcomeSent:
			stats.TotalSent += n
			stats.TotalDelivered += n
		case domain.OutcomeBounced:
			stats.TotalSent += n
			stats.TotalBounced += n
		case domain.OutcomeComplained:
			stats.TotalSent += n
			stats.TotalComplained += n
		case domain.OutcomeFailed:
			stats.TotalFailed += n
		}
	}
	return stats, rows.Err()
}
