package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ----------------------------
	// Transport
	// ----------------------------
	Transport    string `envconfig:"TRANSPORT" default:"ses"` // "ses" or "smtp"
	AWSRegion    string `envconfig:"AWS_REGION" default:"us-east-1"`
	AWSAccessKey string `envconfig:"AWS_ACCESS_KEY_ID" default:""`
	AWSSecretKey string `envconfig:"AWS_SECRET_ACCESS_KEY" default:""`
	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUser     string `envconfig:"SMTP_USER" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`

	// ----------------------------
	// Sending limits
	// ----------------------------
	SendRatePerSecond int           `envconfig:"SEND_RATE_PER_SECOND" default:"14"`
	DailySendQuota    int           `envconfig:"DAILY_SEND_QUOTA" default:"50000"`
	BatchSize         int           `envconfig:"BATCH_SIZE" default:"12"`
	MaxAttempts       int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	BatchInterval     time.Duration `envconfig:"BATCH_INTERVAL" default:"1s"`
	MaxIdleWait       time.Duration `envconfig:"MAX_IDLE_WAIT" default:"60s"`
	SendTimeout       time.Duration `envconfig:"SEND_TIMEOUT" default:"30s"`
	CampaignDeadline  time.Duration `envconfig:"CAMPAIGN_DEADLINE" default:"0"`

	// ----------------------------
	// Tracking
	// ----------------------------
	TrackingURL    string `envconfig:"TRACKING_URL" default:""`
	TrackingSecret string `envconfig:"TRACKING_SECRET" default:""`

	// ----------------------------
	// HTTP API
	// ----------------------------
	APIPort string `envconfig:"API_PORT" default:"8080"`

	// ----------------------------
	// Metrics
	// ----------------------------
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// ----------------------------
	// Storage
	// ----------------------------
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisURL    string `envconfig:"REDIS_URL" default:""` // quota counter falls back to Postgres when empty
}

func Load() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return &cfg, err
}
