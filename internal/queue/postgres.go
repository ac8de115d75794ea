package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/domain"
)

// lockTimeout is the visibility timeout: a claimed job whose worker
// died becomes claimable again after this long.
const lockTimeout = 5 * time.Minute

// Postgres is a durable queue backend scoped to one campaign. Claims use
// FOR UPDATE SKIP LOCKED so concurrent dispatcher instances never
// process the same job.
type Postgres struct {
	pool       *pgxpool.Pool
	campaignID string
	workerID   string
}

// NewPostgres builds a durable queue for the given campaign.
func NewPostgres(pool *pgxpool.Pool, campaignID, workerID string) *Postgres {
	return &Postgres{pool: pool, campaignID: campaignID, workerID: workerID}
}

// Enqueue inserts a pending job row.
func (q *Postgres) Enqueue(ctx context.Context, job domain.DeliveryJob) error {
	_, err := q.pool.Exec(ctx,
		`INSERT INTO delivery_jobs
		 (id, campaign_id, fan_id, priority, attempt, max_attempts, scheduled_at, created_at, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		job.ID, job.CampaignID, job.FanID, job.Priority,
		job.Attempt, job.MaxAttempts, job.ScheduledAt, job.CreatedAt, domain.JobQueued,
	)
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// NextReady atomically claims up to batchSize ready jobs, reclaiming any
// whose lock has gone stale.
func (q *Postgres) NextReady(ctx context.Context, batchSize int, now time.Time) ([]domain.DeliveryJob, error) {
	// A crashed worker leaves its jobs claimed with a stale locked_at;
	// those become claimable again alongside the queued ones.
	rows, err := q.pool.Query(ctx,
		`UPDATE delivery_jobs
		 SET status = $4, locked_at = $2, worker_id = $5
		 WHERE id IN (
			SELECT id FROM delivery_jobs
			WHERE campaign_id = $1
			  AND scheduled_at <= $2
			  AND (status = $3
			       OR (status = $4 AND locked_at < $7))
			ORDER BY priority DESC, scheduled_at ASC, created_at ASC
			LIMIT $6
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, campaign_id, fan_id, priority, attempt, max_attempts, scheduled_at, created_at`,
		q.campaignID, now, domain.JobQueued, domain.JobClaimed, q.workerID, batchSize, now.Add(-lockTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	defer rows.Close()

	var jobs []domain.DeliveryJob
	for rows.Next() {
		var job domain.DeliveryJob
		if err := rows.Scan(
			&job.ID, &job.CampaignID, &job.FanID, &job.Priority,
			&job.Attempt, &job.MaxAttempts, &job.ScheduledAt, &job.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan claimed job: %w", err)
		}
		job.Status = domain.JobClaimed
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Reinsert releases a claimed job back to pending at a new scheduled
// time, carrying the caller's attempt count.
func (q *Postgres) Reinsert(ctx context.Context, job domain.DeliveryJob, scheduledAt time.Time) error {
	_, err := q.pool.Exec(ctx,
		`UPDATE delivery_jobs
		 SET status = $2, scheduled_at = $3, attempt = $4, locked_at = NULL, worker_id = NULL
		 WHERE id = $1`,
		job.ID, domain.JobQueued, scheduledAt, job.Attempt,
	)
	if err != nil {
		return fmt.Errorf("reinsert job %s: %w", job.ID, err)
	}
	return nil
}

// Remove deletes a job row after a terminal outcome.
func (q *Postgres) Remove(ctx context.Context, jobID string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM delivery_jobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("remove job %s: %w", jobID, err)
	}
	return nil
}

// Len counts this campaign's pending jobs.
func (q *Postgres) Len(ctx context.Context) (int, error) {
	var n int
	err := q.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM delivery_jobs WHERE campaign_id = $1 AND status = $2`,
		q.campaignID, domain.JobQueued,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending jobs: %w", err)
	}
	return n, nil
}

// EarliestScheduled reports the soonest pending scheduled time.
func (q *Postgres) EarliestScheduled(ctx context.Context) (time.Time, bool, error) {
	var earliest time.Time
	err := q.pool.QueryRow(ctx,
		`SELECT scheduled_at FROM delivery_jobs
		 WHERE campaign_id = $1 AND status = $2
		 ORDER BY scheduled_at ASC LIMIT 1`,
		q.campaignID, domain.JobQueued,
	).Scan(&earliest)
	if err == pgx.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("earliest scheduled: %w", err)
	}
	return earliest, true, nil
}
