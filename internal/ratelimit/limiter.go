// Package ratelimit gates outbound sends against two independent
// ceilings: a per-second cap and the provider's daily quota.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Reason says which ceiling blocked a send. Daily exhaustion pauses the
// whole campaign; per-second exhaustion only delays the next batch.
type Reason string

const (
	ReasonPerSecond Reason = "per_second"
	ReasonDaily     Reason = "daily"
)

// Decision is the non-blocking answer to "may I send right now". When
// the per-second cap is the blocker, Wait is the minimum time until the
// window frees up.
type Decision struct {
	Allowed bool
	Wait    time.Duration
	Reason  Reason
}

// QuotaTracker is the daily-ceiling side of the gate.
type QuotaTracker interface {
	Remaining(ctx context.Context, ceiling int) int
	RecordSent(ctx context.Context, n int)
}

// Limiter combines a token-bucket per-second gate with the daily quota
// tracker. Nothing blocks: CanSend is an advisory probe, TryAcquire is
// the atomic check-and-consume admission call, and Sent records a send
// admitted some other way.
type Limiter struct {
	mu           sync.Mutex
	perSecond    *rate.Limiter
	quota        QuotaTracker
	dailyCeiling int
	now          func() time.Time
}

// New builds a limiter allowing perSecond sends per second (burst equal
// to the cap) and dailyCeiling sends per UTC day.
func New(perSecond, dailyCeiling int, quota QuotaTracker) *Limiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Limiter{
		perSecond:    rate.NewLimiter(rate.Limit(perSecond), perSecond),
		quota:        quota,
		dailyCeiling: dailyCeiling,
		now:          time.Now,
	}
}

// CanSend answers instantly whether a send could proceed right now. It
// consumes nothing; the answer is advisory and may be stale by the time
// the caller acts on it. Admission that must not overshoot either
// ceiling goes through TryAcquire instead.
func (l *Limiter) CanSend(ctx context.Context) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.probeLocked(ctx, false)
}

// TryAcquire atomically admits one send: when allowed it has already
// consumed a per-second token and recorded the send against the daily
// quota, so concurrent callers sharing the limiter can never jointly
// exceed a ceiling.
func (l *Limiter) TryAcquire(ctx context.Context) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.probeLocked(ctx, true)
}

// Sent consumes one per-second token and records the send against the
// daily quota, for sends admitted outside TryAcquire.
func (l *Limiter) Sent(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.perSecond.AllowN(l.now(), 1)
	l.quota.RecordSent(ctx, 1)
}

// probeLocked checks both ceilings, consuming capacity when consume is
// set. Callers hold l.mu.
func (l *Limiter) probeLocked(ctx context.Context, consume bool) Decision {
	if l.quota.Remaining(ctx, l.dailyCeiling) <= 0 {
		return Decision{Reason: ReasonDaily}
	}

	now := l.now()
	r := l.perSecond.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay > 0 || !consume {
		r.CancelAt(now)
	}
	if delay > 0 {
		return Decision{Wait: delay, Reason: ReasonPerSecond}
	}
	if consume {
		l.quota.RecordSent(ctx, 1)
	}
	return Decision{Allowed: true}
}
