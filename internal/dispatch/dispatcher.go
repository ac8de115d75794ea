// Package dispatch pulls ready delivery jobs in provider-sized batches,
// fans them out concurrently within the rate limits, and routes each
// outcome to success, retry, or terminal failure handling.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/domain"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/metrics"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/queue"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/ratelimit"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/retry"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/transport"
)

// ErrDailyQuotaExhausted halts a run. It is an expected resource limit,
// not a failure: the orchestrator pauses the campaign for a later
// resume instead of failing it.
var ErrDailyQuotaExhausted = errors.New("daily send quota exhausted")

// RateGate is the limiter contract the dispatcher sends through.
// TryAcquire must be atomic: an allowed decision has already charged
// both ceilings.
type RateGate interface {
	TryAcquire(ctx context.Context) ratelimit.Decision
}

// Assembler produces the transport payload for one fan.
type Assembler interface {
	Assemble(c *domain.Campaign, artist *domain.Artist, fan *domain.Fan) (*transport.Message, error)
}

// OutcomeSink persists terminal and provisional delivery outcomes.
type OutcomeSink interface {
	LogOutcome(ctx context.Context, o domain.DeliveryOutcome) error
}

// Report summarizes one dispatch run.
type Report struct {
	Attempted int
	Sent      int
	Retried   int
	Failed    int
	Deferred  int
}

// Add folds another run's report into this one.
func (r *Report) Add(o Report) {
	r.Attempted += o.Attempted
	r.Sent += o.Sent
	r.Retried += o.Retried
	r.Failed += o.Failed
	r.Deferred += o.Deferred
}

// Config wires a dispatcher for one campaign send.
type Config struct {
	Campaign  *domain.Campaign
	Artist    *domain.Artist
	Fans      map[string]domain.Fan
	Queue     queue.Queue
	Gate      RateGate
	Transport transport.Transport
	Assembler Assembler
	Policy    retry.Policy
	Sink      OutcomeSink
	Log       *zap.Logger

	BatchSize   int
	SendTimeout time.Duration
}

// Dispatcher drains the delivery queue for a single campaign. One
// dispatcher owns its queue; attempts for the same job are strictly
// sequential because a claimed job is only reinserted after its attempt
// completes.
type Dispatcher struct {
	cfg Config
	now func() time.Time
}

// New builds a dispatcher, applying defaults for batch size and send
// timeout.
func New(cfg Config) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 12
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	return &Dispatcher{cfg: cfg, now: time.Now}
}

type sendResult struct {
	job       domain.DeliveryJob
	messageID string
	err       error
}

// RunOnce claims one batch and dispatches it. Returns
// ErrDailyQuotaExhausted when the daily ceiling blocks the batch; every
// unsent job is already back in the queue when that happens.
func (d *Dispatcher) RunOnce(ctx context.Context) (Report, error) {
	var rep Report
	now := d.now()

	jobs, err := d.cfg.Queue.NextReady(ctx, d.cfg.BatchSize, now)
	if err != nil {
		return rep, fmt.Errorf("claim batch: %w", err)
	}
	if len(jobs) == 0 {
		return rep, nil
	}
	metrics.DispatchBatches.Inc()

	// Admission: consult the gate per job. Per-second denials nudge the
	// job forward. A daily denial returns the rest of the batch untouched
	// and halts the run; jobs already admitted have reserved quota, so
	// they still go out below.
	var haltErr error
	admitted := make([]domain.DeliveryJob, 0, len(jobs))
	for i, job := range jobs {
		dec := d.cfg.Gate.TryAcquire(ctx)
		if dec.Allowed {
			admitted = append(admitted, job)
			continue
		}

		if dec.Reason == ratelimit.ReasonDaily {
			for _, back := range jobs[i:] {
				if rerr := d.cfg.Queue.Reinsert(ctx, back, back.ScheduledAt); rerr != nil {
					d.cfg.Log.Error("failed to return job to queue",
						zap.String("job_id", back.ID), zap.Error(rerr))
				}
			}
			metrics.DailyQuotaHalts.Inc()
			haltErr = ErrDailyQuotaExhausted
			break
		}

		wait := dec.Wait
		if wait <= 0 {
			wait = 100 * time.Millisecond
		}
		if rerr := d.cfg.Queue.Reinsert(ctx, job, now.Add(wait)); rerr != nil {
			d.cfg.Log.Error("failed to defer job",
				zap.String("job_id", job.ID), zap.Error(rerr))
		}
		rep.Deferred++
		metrics.EmailsDeferred.Inc()
	}

	if len(admitted) == 0 {
		return rep, haltErr
	}

	// Bounded fan-out: one goroutine per admitted job, batch size is the
	// concurrency ceiling. In-flight sends always complete; cancellation
	// takes effect at the next batch boundary.
	results := make([]sendResult, len(admitted))
	var wg sync.WaitGroup
	for i, job := range admitted {
		wg.Add(1)
		go func(i int, job domain.DeliveryJob) {
			defer wg.Done()
			results[i] = d.sendOne(ctx, job)
		}(i, job)
	}
	wg.Wait()

	rep.Attempted = len(admitted)
	for _, res := range results {
		d.settle(ctx, res, &rep)
	}
	return rep, haltErr
}

// sendOne assembles and transmits a single job. Failures are returned,
// never allowed to affect sibling jobs in the batch.
func (d *Dispatcher) sendOne(ctx context.Context, job domain.DeliveryJob) sendResult {
	res := sendResult{job: job}

	if job.Attempt >= job.MaxAttempts {
		// Must never happen: the retry policy stops re-enqueueing at
		// MaxAttempts. Terminal for this job only.
		d.cfg.Log.Error("invariant violation: job dispatched past max attempts",
			zap.String("job_id", job.ID),
			zap.Int("attempt", job.Attempt),
			zap.Int("max_attempts", job.MaxAttempts),
		)
		res.err = transport.NewError(transport.KindInvalidRecipient, "attempt budget exceeded", nil)
		return res
	}

	fan, ok := d.cfg.Fans[job.FanID]
	if !ok {
		d.cfg.Log.Error("invariant violation: job references unknown fan",
			zap.String("job_id", job.ID), zap.String("fan_id", job.FanID))
		res.err = transport.NewError(transport.KindInvalidRecipient, "fan not in recipient set", nil)
		return res
	}

	msg, err := d.cfg.Assembler.Assemble(d.cfg.Campaign, d.cfg.Artist, &fan)
	if err != nil {
		res.err = err
		return res
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	out, err := d.cfg.Transport.Send(sendCtx, msg)
	if err != nil {
		res.err = err
		return res
	}
	res.messageID = out.MessageID
	return res
}

// settle routes one attempt's result: provisional sent outcome, retry
// re-insertion, or terminal failure outcome.
func (d *Dispatcher) settle(ctx context.Context, res sendResult, rep *Report) {
	job := res.job
	attempt := job.Attempt + 1

	if res.err == nil {
		outcome := domain.DeliveryOutcome{
			FanID:      job.FanID,
			CampaignID: job.CampaignID,
			Attempt:    attempt,
			Status:     domain.OutcomeSent,
			MessageID:  res.messageID,
			Timestamp:  d.now().UTC(),
		}
		if err := d.cfg.Sink.LogOutcome(ctx, outcome); err != nil {
			d.cfg.Log.Error("failed to log sent outcome",
				zap.String("job_id", job.ID), zap.Error(err))
		}
		if err := d.cfg.Queue.Remove(ctx, job.ID); err != nil {
			d.cfg.Log.Error("failed to remove finished job",
				zap.String("job_id", job.ID), zap.Error(err))
		}
		rep.Sent++
		metrics.EmailsSent.Inc()
		return
	}

	dec := d.cfg.Policy.Decide(attempt, res.err)
	if dec.Retry {
		job.Attempt = attempt
		if err := d.cfg.Queue.Reinsert(ctx, job, d.now().Add(dec.Delay)); err != nil {
			d.cfg.Log.Error("failed to re-enqueue retry",
				zap.String("job_id", job.ID), zap.Error(err))
		}
		d.cfg.Log.Warn("send attempt failed, retrying",
			zap.String("job_id", job.ID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", dec.Delay),
			zap.Error(res.err),
		)
		rep.Retried++
		metrics.EmailRetries.Inc()
		return
	}

	outcome := domain.DeliveryOutcome{
		FanID:        job.FanID,
		CampaignID:   job.CampaignID,
		Attempt:      attempt,
		Status:       terminalStatus(res.err),
		ErrorMessage: res.err.Error(),
		Timestamp:    d.now().UTC(),
	}
	if err := d.cfg.Sink.LogOutcome(ctx, outcome); err != nil {
		d.cfg.Log.Error("failed to log terminal outcome",
			zap.String("job_id", job.ID), zap.Error(err))
	}
	if err := d.cfg.Queue.Remove(ctx, job.ID); err != nil {
		d.cfg.Log.Error("failed to remove failed job",
			zap.String("job_id", job.ID), zap.Error(err))
	}
	d.cfg.Log.Warn("send failed terminally",
		zap.String("job_id", job.ID),
		zap.Int("attempt", attempt),
		zap.Error(res.err),
	)
	rep.Failed++
	metrics.EmailFailures.Inc()
}

// terminalStatus maps a terminal error onto an outcome class. Hard
// provider rejections count as bounces; everything else is failed.
func terminalStatus(err error) domain.OutcomeStatus {
	var terr *transport.Error
	if errors.As(err, &terr) && terr.Kind == transport.KindRejected {
		return domain.OutcomeBounced
	}
	return domain.OutcomeFailed
}
