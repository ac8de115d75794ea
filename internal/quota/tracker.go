// Package quota tracks how many emails have been sent against the
// provider's daily ceiling. The counter is keyed by UTC calendar day and
// survives restarts through a pluggable store.
package quota

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// dayFormat keys quota records by UTC calendar day.
const dayFormat = "2006-01-02"

// Store persists the per-day sent counter. IncrementSent must be an
// atomic increment at the storage layer, never read-modify-write.
type Store interface {
	IncrementSent(ctx context.Context, day string, n int) (int, error)
	SentOn(ctx context.Context, day string) (int, error)
}

// Tracker reports remaining daily quota and records sends. Safe for
// concurrent use. If the store becomes unreachable the tracker keeps
// counting in memory so the rate limiter stays consistent; undercounting
// across a restart during an outage is accepted, blocking sends is not.
type Tracker struct {
	store Store
	log   *zap.Logger
	now   func() time.Time

	mu       sync.Mutex
	day      string
	sent     int
	degraded bool
}

// NewTracker builds a tracker over the given store.
func NewTracker(store Store, log *zap.Logger) *Tracker {
	return &Tracker{store: store, log: log, now: time.Now}
}

// Remaining returns how many sends are left today under ceiling. Never
// negative.
func (t *Tracker) Remaining(ctx context.Context, ceiling int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refreshLocked(ctx)

	remaining := ceiling - t.sent
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordSent adds n sends to today's counter. On store failure the
// in-memory counter still advances and the tracker reports degraded.
func (t *Tracker) RecordSent(ctx context.Context, n int) {
	if n <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Re-read on day rollover so yesterday's count is never carried
	// forward.
	t.refreshLocked(ctx)

	total, err := t.store.IncrementSent(ctx, t.day, n)
	if err != nil {
		t.sent += n
		if !t.degraded {
			t.degraded = true
			t.log.Warn("quota store unreachable, counting in memory only",
				zap.String("day", t.day),
				zap.Error(err),
			)
		}
		return
	}

	t.sent = total
	t.degraded = false
}

// Degraded reports whether the tracker is running on its in-memory
// counter because the store is unreachable.
func (t *Tracker) Degraded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.degraded
}

// refreshLocked loads the persisted count when the tracker is cold or
// the UTC day has rolled over. Callers hold t.mu.
func (t *Tracker) refreshLocked(ctx context.Context) {
	today := t.now().UTC().Format(dayFormat)
	if t.day == today && !t.degraded {
		return
	}

	rolled := t.day != today
	sent, err := t.store.SentOn(ctx, today)
	if err != nil {
		if rolled {
			// New day, unreachable store: start from zero rather than
			// carrying yesterday's count forward.
			t.day = today
			t.sent = 0
		}
		t.degraded = true
		t.log.Warn("quota store read failed", zap.String("day", today), zap.Error(err))
		return
	}

	t.day = today
	t.sent = sent
	t.degraded = false
}
