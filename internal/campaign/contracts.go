package campaign

import (
	"context"
	"time"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/domain"
)

// Store is the campaign persistence contract. Implementations must be
// safe for concurrent use.
type Store interface {
	// Get returns a campaign. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Campaign, error)

	UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error
	UpdateStats(ctx context.Context, id string, stats domain.CampaignStats) error
	UpdateSendDate(ctx context.Context, id string, sendDate time.Time) error
}

// FanDirectory resolves an artist's recipients with their consent and
// tracking preferences.
type FanDirectory interface {
	ListByArtist(ctx context.Context, artistID string) ([]domain.Fan, error)
}

// ArtistRegistry resolves the verified sending identity.
type ArtistRegistry interface {
	// Get returns an artist. Returns ErrArtistNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Artist, error)
}

// OutcomeSink is the append-only delivery outcome log, idempotent on
// (campaign, fan, attempt). Stats are recomputed from outcomes, never
// incremented in place. FansWithOutcome backs resume: fans with any
// recorded outcome are excluded from a rerun's recipient set so a
// paused campaign never emails the same fan twice.
type OutcomeSink interface {
	LogOutcome(ctx context.Context, o domain.DeliveryOutcome) error
	StatsForCampaign(ctx context.Context, campaignID string) (domain.CampaignStats, error)
	FansWithOutcome(ctx context.Context, campaignID string) (map[string]struct{}, error)
}

// QuotaReader reports remaining daily quota for the plausibility check
// before enqueueing.
type QuotaReader interface {
	Remaining(ctx context.Context, ceiling int) int
}
