package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/api"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/assemble"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/campaign"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/config"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/dispatch"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/domain"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/metrics"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/queue"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/quota"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/ratelimit"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/retry"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/store"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/transport"
)

func main() {

	// ------------------------------------------------
	// Logger
	// ------------------------------------------------
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// ------------------------------------------------
	// Config
	// ------------------------------------------------
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ------------------------------------------------
	// Root Context + Shutdown
	// ------------------------------------------------
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	// ------------------------------------------------
	// Database
	// ------------------------------------------------
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	campaigns := store.NewCampaignStore(db)
	fans := store.NewFanStore(db)
	artists := store.NewArtistStore(db)
	outcomes := store.NewOutcomeStore(db)

	// ------------------------------------------------
	// Metrics
	// ------------------------------------------------
	metrics.Init()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}

	go func() {
		logger.Info("metrics server started", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Quota Tracker + Rate Limiter
	// ------------------------------------------------
	var quotaStore quota.Store = store.NewQuotaStore(db)
	if cfg.RedisURL != "" {
		redisStore, err := quota.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisStore.Close()
		quotaStore = redisStore
	}

	tracker := quota.NewTracker(quotaStore, logger)
	limiter := ratelimit.New(cfg.SendRatePerSecond, cfg.DailySendQuota, tracker)

	// ------------------------------------------------
	// Email Transport
	// ------------------------------------------------
	var tp transport.Transport
	if cfg.Transport == "smtp" {
		tp = &transport.SMTP{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			User:        cfg.SMTPUser,
			Password:    cfg.SMTPPassword,
			StaticQuota: cfg.DailySendQuota,
		}
	} else {
		tp, err = transport.NewSES(ctx, cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.AWSRegion, logger)
		if err != nil {
			logger.Fatal("ses transport init failed", zap.Error(err))
		}
	}

	// ------------------------------------------------
	// Delivery Engine
	// ------------------------------------------------
	assembler := &assemble.Assembler{
		TrackingURL:    cfg.TrackingURL,
		TrackingSecret: cfg.TrackingSecret,
	}

	policy := retry.Default()
	policy.MaxAttempts = cfg.MaxAttempts

	workerID := "sender-" + uuid.New().String()[:8]

	orchestrator := campaign.New(campaign.Config{
		Store:    campaigns,
		Fans:     fans,
		Artists:  artists,
		Outcomes: outcomes,
		Quota:    tracker,
		Log:      logger,
		NewQueue: func(campaignID string) queue.Queue {
			return queue.NewPostgres(db.Pool, campaignID, workerID)
		},
		NewDispatcher: func(c *domain.Campaign, artist *domain.Artist, fanSet map[string]domain.Fan, q queue.Queue) campaign.Dispatcher {
			return dispatch.New(dispatch.Config{
				Campaign:    c,
				Artist:      artist,
				Fans:        fanSet,
				Queue:       q,
				Gate:        limiter,
				Transport:   tp,
				Assembler:   assembler,
				Policy:      policy,
				Sink:        outcomes,
				Log:         logger,
				BatchSize:   cfg.BatchSize,
				SendTimeout: cfg.SendTimeout,
			})
		},
		DailyCeiling:  cfg.DailySendQuota,
		MaxAttempts:   cfg.MaxAttempts,
		BatchInterval: cfg.BatchInterval,
		MaxIdleWait:   cfg.MaxIdleWait,
		Deadline:      cfg.CampaignDeadline,
	})

	// ------------------------------------------------
	// HTTP API Server
	// ------------------------------------------------
	handler := &api.Handler{
		Sender:    orchestrator,
		Campaigns: campaigns,
		Fans:      fans,
		Outcomes:  outcomes,
		Log:       logger,
		Base:      ctx,
	}

	apiServer := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: handler.Routes(),
	}

	go func() {
		logger.Info("api server started", zap.String("port", cfg.APIPort))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Wait for shutdown
	// ------------------------------------------------
	<-ctx.Done()

	logger.Info("shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", zap.Error(err))
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}

	logger.Info("application shutdown complete")
}
