package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/dispatch"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/domain"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/queue"
)

// Dispatcher drains one campaign's queue one batch at a time.
type Dispatcher interface {
	RunOnce(ctx context.Context) (dispatch.Report, error)
}

// Config wires the orchestrator. NewQueue and NewDispatcher are
// factories so the queue backend and dispatcher wiring stay injectable.
type Config struct {
	Store    Store
	Fans     FanDirectory
	Artists  ArtistRegistry
	Outcomes OutcomeSink
	Quota    QuotaReader
	Log      *zap.Logger

	NewQueue      func(campaignID string) queue.Queue
	NewDispatcher func(c *domain.Campaign, artist *domain.Artist, fans map[string]domain.Fan, q queue.Queue) Dispatcher

	DailyCeiling  int
	MaxAttempts   int
	BatchInterval time.Duration
	MaxIdleWait   time.Duration

	// Deadline abandons a send still not drained after this long.
	// Zero means no deadline.
	Deadline time.Duration
}

// SendReport summarizes a completed (or halted) campaign send.
type SendReport struct {
	CampaignID  string
	Enqueued    int
	Dispatch    dispatch.Report
	FinalStatus domain.CampaignStatus
	Stats       domain.CampaignStats
}

// Orchestrator is the engine entry point: it resolves the recipient set,
// enqueues one job per eligible fan, drives the dispatcher to completion
// or halt, and reconciles final campaign status and stats exactly once.
type Orchestrator struct {
	cfg Config
	now func() time.Time
}

// New builds an orchestrator, applying loop defaults.
func New(cfg Config) *Orchestrator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BatchInterval <= 0 {
		cfg.BatchInterval = time.Second
	}
	if cfg.MaxIdleWait <= 0 {
		cfg.MaxIdleWait = 60 * time.Second
	}
	return &Orchestrator{cfg: cfg, now: time.Now}
}

// SendCampaign runs one full campaign send.
//
// Precondition failures (campaign/artist missing, unverified domain,
// not sendable) abort before any job exists and leave the campaign's
// status untouched. Daily quota exhaustion and operator pause/cancel
// halt dispatching with the campaign resumable; everything else drains
// to completion.
func (o *Orchestrator) SendCampaign(ctx context.Context, campaignID string) (*SendReport, error) {
	// Resolving.
	c, err := o.cfg.Store.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !c.Sendable() {
		return nil, fmt.Errorf("%w: %s", ErrNotSendable, c.Status)
	}

	artist, err := o.cfg.Artists.Get(ctx, c.ArtistID)
	if err != nil {
		return nil, err
	}
	if !artist.SESDomainVerified {
		o.cfg.Log.Warn("aborting send: unverified sending domain",
			zap.String("campaign_id", c.ID),
			zap.String("artist_id", artist.ID),
		)
		return nil, ErrDomainNotVerified
	}

	fans, err := o.cfg.Fans.ListByArtist(ctx, c.ArtistID)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}

	// On a resume, fans that already have an outcome from an earlier run
	// are done; re-enqueueing them would email them again.
	delivered, err := o.cfg.Outcomes.FansWithOutcome(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve prior outcomes: %w", err)
	}

	eligible := make([]domain.Fan, 0, len(fans))
	for _, f := range fans {
		if _, done := delivered[f.ID]; done {
			continue
		}
		if f.EligibleFor(c.Settings) {
			eligible = append(eligible, f)
		}
	}

	if len(eligible) == 0 {
		o.cfg.Log.Info("campaign has no remaining eligible recipients", zap.String("campaign_id", c.ID))
		return o.finish(ctx, c.ID, domain.CampaignSent, dispatch.Report{}, 0)
	}

	if remaining := o.cfg.Quota.Remaining(ctx, o.cfg.DailyCeiling); remaining < len(eligible) {
		o.cfg.Log.Warn("daily quota may not cover recipient set",
			zap.String("campaign_id", c.ID),
			zap.Int("recipients", len(eligible)),
			zap.Int("quota_remaining", remaining),
		)
	}

	// Enqueuing.
	if err := o.cfg.Store.UpdateStatus(ctx, c.ID, domain.CampaignSending); err != nil {
		return nil, fmt.Errorf("transition to sending: %w", err)
	}

	now := o.now().UTC()
	scheduledAt := now
	if c.SendDate != nil && c.SendDate.After(now) {
		scheduledAt = c.SendDate.UTC()
	}

	q := o.cfg.NewQueue(c.ID)
	fansByID := make(map[string]domain.Fan, len(eligible))
	for _, f := range eligible {
		fansByID[f.ID] = f
		job := domain.DeliveryJob{
			ID:          uuid.New().String(),
			CampaignID:  c.ID,
			FanID:       f.ID,
			MaxAttempts: o.cfg.MaxAttempts,
			ScheduledAt: scheduledAt,
			CreatedAt:   o.now().UTC(),
			Status:      domain.JobQueued,
		}
		if err := q.Enqueue(ctx, job); err != nil {
			// Never leave the campaign stuck in sending.
			if rbErr := o.cfg.Store.UpdateStatus(ctx, c.ID, domain.CampaignDraft); rbErr != nil {
				o.cfg.Log.Error("rollback to draft failed",
					zap.String("campaign_id", c.ID), zap.Error(rbErr))
			}
			return nil, fmt.Errorf("enqueue jobs: %w", err)
		}
	}

	o.cfg.Log.Info("campaign enqueued",
		zap.String("campaign_id", c.ID),
		zap.Int("jobs", len(eligible)),
		zap.Time("scheduled_at", scheduledAt),
	)

	disp := o.cfg.NewDispatcher(c, artist, fansByID, q)

	// Dispatching.
	report, finalStatus := o.drain(ctx, c.ID, q, disp)
	rep, err := o.finish(ctx, c.ID, finalStatus, report, len(eligible))
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// drain loops the dispatcher until the queue empties or a halt
// condition triggers, and returns the status the campaign should end
// the run in.
func (o *Orchestrator) drain(ctx context.Context, campaignID string, q queue.Queue, disp Dispatcher) (dispatch.Report, domain.CampaignStatus) {
	if o.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Deadline)
		defer cancel()
	}

	var agg dispatch.Report
	for {
		// Operator pause/cancel takes effect here, at the batch boundary.
		if cur, err := o.cfg.Store.Get(ctx, campaignID); err == nil && cur.Halted() {
			o.cfg.Log.Info("campaign halted by operator",
				zap.String("campaign_id", campaignID),
				zap.String("status", string(cur.Status)),
			)
			return agg, cur.Status
		}

		rep, err := disp.RunOnce(ctx)
		agg.Add(rep)

		if errors.Is(err, dispatch.ErrDailyQuotaExhausted) {
			o.cfg.Log.Warn("daily quota exhausted, pausing campaign",
				zap.String("campaign_id", campaignID),
				zap.Int("sent_this_run", agg.Sent),
			)
			return agg, domain.CampaignPaused
		}
		if err != nil {
			o.cfg.Log.Error("dispatch run failed", zap.String("campaign_id", campaignID), zap.Error(err))
			if !o.sleep(ctx, o.cfg.BatchInterval) {
				return agg, domain.CampaignPaused
			}
			continue
		}

		pending, err := q.Len(ctx)
		if err != nil {
			o.cfg.Log.Error("queue length check failed", zap.Error(err))
			pending = 0
		}
		if pending == 0 {
			return agg, domain.CampaignSent
		}

		wait := o.cfg.BatchInterval
		if rep.Attempted == 0 && rep.Deferred == 0 {
			// Nothing ready yet: sleep until the earliest scheduled job,
			// capped so cancellation stays responsive.
			wait = o.cfg.MaxIdleWait
			if at, ok, err := q.EarliestScheduled(ctx); err == nil && ok {
				if until := at.Sub(o.now()); until < wait {
					wait = until
				}
			}
			if wait < 50*time.Millisecond {
				wait = 50 * time.Millisecond
			}
		}
		if !o.sleep(ctx, wait) {
			return agg, domain.CampaignPaused
		}
	}
}

// finish writes back final status and recomputed stats exactly once.
func (o *Orchestrator) finish(ctx context.Context, campaignID string, status domain.CampaignStatus, rep dispatch.Report, enqueued int) (*SendReport, error) {
	// Status/stats writes must land even when the halt reason was the
	// context itself.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	stats, err := o.cfg.Outcomes.StatsForCampaign(finishCtx, campaignID)
	if err != nil {
		o.cfg.Log.Error("failed to recompute campaign stats",
			zap.String("campaign_id", campaignID), zap.Error(err))
	} else if err := o.cfg.Store.UpdateStats(finishCtx, campaignID, stats); err != nil {
		o.cfg.Log.Error("failed to persist campaign stats",
			zap.String("campaign_id", campaignID), zap.Error(err))
	}

	if err := o.cfg.Store.UpdateStatus(finishCtx, campaignID, status); err != nil {
		return nil, fmt.Errorf("finalize campaign status: %w", err)
	}

	o.cfg.Log.Info("campaign send finished",
		zap.String("campaign_id", campaignID),
		zap.String("status", string(status)),
		zap.Int("enqueued", enqueued),
		zap.Int("sent", rep.Sent),
		zap.Int("failed", rep.Failed),
	)

	return &SendReport{
		CampaignID:  campaignID,
		Enqueued:    enqueued,
		Dispatch:    rep,
		FinalStatus: status,
		Stats:       stats,
	}, nil
}

// sleep waits for d or until ctx is done; returns false on cancellation.
func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
