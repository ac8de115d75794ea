package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EmailsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_emails_sent_total",
			Help: "Total emails accepted by the provider",
		},
	)

	EmailFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_email_failures_total",
			Help: "Total emails with a terminal failure",
		},
	)

	EmailRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_email_retries_total",
			Help: "Total send attempts re-enqueued for retry",
		},
	)

	EmailsDeferred = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_emails_deferred_total",
			Help: "Total sends pushed back by the per-second rate limit",
		},
	)

	DispatchBatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_dispatch_batches_total",
			Help: "Total dispatch batches run",
		},
	)

	DailyQuotaHalts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_daily_quota_halts_total",
			Help: "Total dispatch runs halted by daily quota exhaustion",
		},
	)
)

func Init() {
	prometheus.MustRegister(EmailsSent)
	prometheus.MustRegister(EmailFailures)
	prometheus.MustRegister(EmailRetries)
	prometheus.MustRegister(EmailsDeferred)
	prometheus.MustRegister(DispatchBatches)
	prometheus.MustRegister(DailyQuotaHalts)
}
