package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrX1068/stunxtV2-sub005/internal/config"
	"github.com/MrX1068/stunxtV2-sub005/internal/domain/notification"
	"github.com/MrX1068/stunxtV2-sub005/internal/infra/queue"
	"github.com/MrX1068/stunxtV2-sub005/internal/infra/ratelimit"
	"github.com/MrX1068/stunxtV2-sub005/internal/infra/store"
	"github.com/MrX1068/stunxtV2-sub005/internal/router"

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

	slog.Info("configuration loaded", "port", cfg.Server.Port, "mode", cfg.Server.Mode)

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	// Postgres record store — the single source of truth. If it's down the
	// whole pipeline is down, so fail fast here.
	ctx := context.Background()
	notifStore, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN)
	if err != nil {
		slog.Error("failed to initialize record store", "error", err)
		os.Exit(1)
	}
	defer notifStore.Close()
	slog.Info("record store initialized")

	// Asynq client (for enqueuing dispatch jobs)
	asynqClient := queue.NewClient(queue.RedisOpt(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB))
	defer asynqClient.Close()
	slog.Info("queue client initialized", "redis", cfg.Redis.Address)

	enqueuer := queue.NewEnqueuer(asynqClient, cfg.Policies())

	// Recipient rate limiter on a shared Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	recipientLimiter := ratelimit.NewRedisRecipientLimiter(redisClient, cfg.RecipientRateLimit.MaxPerHour)
	slog.Info("recipient rate limiter initialized", "max_per_hour", cfg.RecipientRateLimit.MaxPerHour)

	// Service
	notificationService := notification.NewService(notifStore, enqueuer, recipientLimiter)

	// Handler
	notificationHandler := notification.NewHandler(notificationService)

	// Router
	r := router.New(cfg, notificationHandler)

	// ==========================================
	// HTTP Server with Graceful Shutdown
	// ==========================================

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}
