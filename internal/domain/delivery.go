package domain

import "time"

// JobStatus is the queue lifecycle of one delivery job.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobClaimed JobStatus = "claimed"
	JobSent    JobStatus = "sent"
	JobFailed  JobStatus = "failed"
)

// DeliveryJob is one queued unit of work: send this campaign to this fan.
// ScheduledAt governs both the initial send time and retry backoff; a job
// is never dispatched before it. Attempt counts completed attempts and
// never exceeds MaxAttempts.
type DeliveryJob struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	FanID       string    `json:"fan_id"`
	Priority    int       `json:"priority"`
	Attempt     int       `json:"attempt"`
	MaxAttempts int       `json:"max_attempts"`
	ScheduledAt time.Time `json:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at"`
	Status      JobStatus `json:"status"`
}

// OutcomeStatus is the terminal result class of a delivery.
type OutcomeStatus string

const (
	OutcomeSent       OutcomeStatus = "sent"
	OutcomeBounced    OutcomeStatus = "bounced"
	OutcomeComplained OutcomeStatus = "complained"
	OutcomeFailed     OutcomeStatus = "failed"
)

// DeliveryOutcome is the durable record of one send attempt. Exactly one
// terminal outcome exists per (campaign, fan) pair; a "sent" outcome is
// provisional and may later be corrected in place to bounced/complained.
type DeliveryOutcome struct {
	FanID        string        `json:"fan_id"`
	CampaignID   string        `json:"campaign_id"`
	Attempt      int           `json:"attempt"`
	Status       OutcomeStatus `json:"status"`
	MessageID    string        `json:"message_id,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// QuotaRecord is one calendar day's sent counter, keyed by UTC date.
type QuotaRecord struct {
	Day        string `json:"day"` // "2006-01-02"
	EmailsSent int    `json:"emails_sent"`
}
