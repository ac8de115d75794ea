package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/domain"
)

// Memory is an in-process queue for single-instance deployments. The
// dispatcher owns it exclusively for the duration of a campaign send.
// Claims carry the same lease as the durable backend: a claimed job
// whose holder never settles it becomes claimable again after
// lockTimeout.
type Memory struct {
	mu      sync.Mutex
	pending map[string]domain.DeliveryJob
	claimed map[string]memClaim
}

type memClaim struct {
	job domain.DeliveryJob
	at  time.Time
}

// NewMemory builds an empty in-memory queue.
func NewMemory() *Memory {
	return &Memory{
		pending: make(map[string]domain.DeliveryJob),
		claimed: make(map[string]memClaim),
	}
}

// Enqueue adds a job to the pending set.
func (m *Memory) Enqueue(ctx context.Context, job domain.DeliveryJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Status = domain.JobQueued
	m.pending[job.ID] = job
	return nil
}

// NextReady claims up to batchSize ready jobs in dispatch order,
// reclaiming any whose lease has gone stale.
func (m *Memory) NextReady(ctx context.Context, batchSize int, now time.Time) ([]domain.DeliveryJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, cl := range m.claimed {
		if now.Sub(cl.at) >= lockTimeout {
			job := cl.job
			job.Status = domain.JobQueued
			m.pending[id] = job
			delete(m.claimed, id)
		}
	}

	ready := make([]domain.DeliveryJob, 0, batchSize)
	for _, job := range m.pending {
		if !job.ScheduledAt.After(now) {
			ready = append(ready, job)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.ScheduledAt.Equal(b.ScheduledAt) {
			return a.ScheduledAt.Before(b.ScheduledAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	if len(ready) > batchSize {
		ready = ready[:batchSize]
	}

	for i := range ready {
		delete(m.pending, ready[i].ID)
		ready[i].Status = domain.JobClaimed
		m.claimed[ready[i].ID] = memClaim{job: ready[i], at: now}
	}
	return ready, nil
}

// Reinsert puts a claimed job back with a new scheduled time.
func (m *Memory) Reinsert(ctx context.Context, job domain.DeliveryJob, scheduledAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, job.ID)
	job.ScheduledAt = scheduledAt
	job.Status = domain.JobQueued
	m.pending[job.ID] = job
	return nil
}

// Remove drops a job and releases its claim.
func (m *Memory) Remove(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, jobID)
	delete(m.claimed, jobID)
	return nil
}

// Len counts pending jobs.
func (m *Memory) Len(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending), nil
}

// EarliestScheduled reports the soonest pending scheduled time.
func (m *Memory) EarliestScheduled(ctx context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var earliest time.Time
	found := false
	for _, job := range m.pending {
		if !found || job.ScheduledAt.Before(earliest) {
			earliest = job.ScheduledAt
			found = true
		}
	}
	return earliest, found, nil
}
