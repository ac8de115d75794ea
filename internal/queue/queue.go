// Package queue holds pending per-recipient delivery jobs, ordered by
// priority and scheduled time, with re-insertion for retries. Backends
// must honor the same contract whether in-memory or durable.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/domain"
)

// ErrNotFound is returned when a job id is not in the queue.
var ErrNotFound = errors.New("delivery job not found")

// Queue is the delivery queue contract for a single campaign send.
//
// NextReady claims up to batchSize jobs with scheduledAt <= now, ordered
// by (priority desc, scheduledAt asc, createdAt asc). Claimed jobs leave
// the pending set; callers either Reinsert them (retry/defer) or Remove
// them on a terminal outcome. No two callers may claim the same job
// concurrently.
type Queue interface {
	Enqueue(ctx context.Context, job domain.DeliveryJob) error
	NextReady(ctx context.Context, batchSize int, now time.Time) ([]domain.DeliveryJob, error)
	Reinsert(ctx context.Context, job domain.DeliveryJob, scheduledAt time.Time) error
	Remove(ctx context.Context, jobID string) error

	// Len counts pending jobs; EarliestScheduled reports when the next
	// one becomes ready so the dispatch loop can sleep precisely.
	Len(ctx context.Context) (int, error)
	EarliestScheduled(ctx context.Context) (time.Time, bool, error)
}
