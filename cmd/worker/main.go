package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrX1068/stunxtV2-sub005/internal/config"
	"github.com/MrX1068/stunxtV2-sub005/internal/domain/notification"
	"github.com/MrX1068/stunxtV2-sub005/internal/infra/email"
	"github.com/MrX1068/stunxtV2-sub005/internal/infra/inapp"
	"github.com/MrX1068/stunxtV2-sub005/internal/infra/push"
	"github.com/MrX1068/stunxtV2-sub005/internal/infra/queue"
	"github.com/MrX1068/stunxtV2-sub005/internal/infra/sms"
	"github.com/MrX1068/stunxtV2-sub005/internal/infra/store"
	"github.com/MrX1068/stunxtV2-sub005/internal/infra/template"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("worker configuration loaded")

	ctx := context.Background()
	policies := cfg.Policies()

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	// Postgres record store
	notifStore, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN)
	if err != nil {
		slog.Error("failed to initialize record store", "error", err)
		os.Exit(1)
	}
	defer notifStore.Close()
	slog.Info("record store initialized")

	// Shared Redis client for the in-app channel
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Channel senders. Email and in-app are always on; push and SMS come up
	// only when their provider credentials are configured.
	tmplEngine, err := template.NewEngine()
	if err != nil {
		slog.Error("failed to initialize template engine", "error", err)
		os.Exit(1)
	}

	senders := []notification.Sender{
		email.NewResendSender(cfg.Email.APIKey, cfg.Email.FromAddress, cfg.Email.FromName, tmplEngine),
		inapp.NewRedisSender(redisClient),
	}

	if cfg.Push.CredentialsFile != "" {
		fcmSender, err := push.NewFCMSender(ctx, cfg.Push.CredentialsFile)
		if err != nil {
			slog.Error("failed to initialize push sender", "error", err)
			os.Exit(1)
		}
		senders = append(senders, fcmSender)
		slog.Info("push sender initialized")
	}

	if cfg.SMS.AccountSID != "" {
		senders = append(senders, sms.NewTwilioSender(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.FromNumber))
		slog.Info("sms sender initialized")
	}

	// Asynq client for the reaper and for scheduled re-deferral
	redisOpt := queue.RedisOpt(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	asynqClient := queue.NewClient(redisOpt)
	defer asynqClient.Close()

	enqueuer := queue.NewEnqueuer(asynqClient, policies)

	// Notification worker
	notifWorker := notification.NewWorker(notifStore, enqueuer, policies, senders...)

	mux := asynq.NewServeMux()
	mux.HandleFunc(notification.TaskTypeSend, func(ctx context.Context, task *asynq.Task) error {
		payload, err := notification.ParseSendPayload(task.Payload())
		if err != nil {
			return err
		}
		return notifWorker.ProcessTask(ctx, payload.NotificationID)
	})

	// ==========================================
	// Per-Channel Queue Servers
	// ==========================================

	// One asynq server per channel gives each channel its own bounded pool
	// and its own backoff curve, so a rate-limited provider cannot starve
	// the other channels.
	servers := make([]*asynq.Server, 0, len(notification.Channels))
	for _, ch := range notification.Channels {
		policy := policies[ch]
		srv := queue.NewChannelServer(redisOpt, ch, policy)
		if err := srv.Start(mux); err != nil {
			slog.Error("failed to start channel server", "channel", ch, "error", err)
			os.Exit(1)
		}
		servers = append(servers, srv)
		slog.Info("channel server started",
			"channel", ch,
			"concurrency", policy.Concurrency,
			"max_attempts", policy.MaxAttempts,
		)
	}

	// ==========================================
	// Stale Record Reaper
	// ==========================================

	reaperCtx, reaperCancel := context.WithCancel(context.Background())
	defer reaperCancel()

	reaper := notification.NewReaper(notifStore, enqueuer, notification.ReaperConfig{
		Interval:       time.Duration(cfg.Reaper.IntervalSec) * time.Second,
		StaleThreshold: time.Duration(cfg.Reaper.StaleThresholdSec) * time.Second,
		BatchSize:      cfg.Reaper.BatchSize,
	})

	go reaper.Run(reaperCtx)

	// ==========================================
	// Graceful Shutdown
	// ==========================================

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	reaperCancel() // Stop the reaper first
	for _, srv := range servers {
		srv.Shutdown()
	}
	slog.Info("worker exited gracefully")
}
