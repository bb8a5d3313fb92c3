package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/gatic-backend/internal/activity"
	"github.com/angelmondragon/gatic-backend/internal/cron"
	"github.com/angelmondragon/gatic-backend/internal/inventory"
	"github.com/angelmondragon/gatic-backend/internal/loans"
	"github.com/angelmondragon/gatic-backend/pkg/config"
	"github.com/angelmondragon/gatic-backend/pkg/db"
	"github.com/angelmondragon/gatic-backend/pkg/instance"
	"github.com/angelmondragon/gatic-backend/pkg/logger"
	"github.com/angelmondragon/gatic-backend/pkg/metrics"
	"github.com/angelmondragon/gatic-backend/pkg/migrate"
	"github.com/angelmondragon/gatic-backend/pkg/outbox"
	"github.com/angelmondragon/gatic-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	locker, err := redis.NewLocker(redisClient, redis.LockOptions{
		TTL:     cfg.Inventory.LockTTL,
		Retries: cfg.Inventory.LockRetries,
		Backoff: cfg.Inventory.LockRetryBackoff,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create locker", err)
		os.Exit(1)
	}

	rows := inventory.NewRepository(dbClient.DB())
	reconciler, err := inventory.NewReconciler(dbClient, rows, locker, metrics.NewReconcileMetrics(prometheus.DefaultRegisterer), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}
	activityService, err := activity.NewService(activity.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create activity service", err)
		os.Exit(1)
	}
	outboxRepo := outbox.NewRepository(dbClient.DB())

	loanService, err := loans.NewService(loans.ServiceParams{
		Repo:       loans.NewRepository(dbClient.DB()),
		Rows:       rows,
		Reconciler: reconciler,
		Activity:   activityService,
		Outbox:     outbox.NewService(outboxRepo, logg),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create loan service", err)
		os.Exit(1)
	}

	overdueJob, err := cron.NewLoansOverdueJob(cron.LoansOverdueJobParams{
		Logger: logg,
		Loans:  loanService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create overdue job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(overdueJob, retentionJob),
		Locker:   locker,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Inventory.OverdueInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
