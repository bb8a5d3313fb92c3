package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/gatic-backend/api/routes"
	"github.com/angelmondragon/gatic-backend/internal/activity"
	"github.com/angelmondragon/gatic-backend/internal/assignments"
	"github.com/angelmondragon/gatic-backend/internal/inventory"
	"github.com/angelmondragon/gatic-backend/internal/loans"
	"github.com/angelmondragon/gatic-backend/internal/tasks"
	"github.com/angelmondragon/gatic-backend/pkg/config"
	"github.com/angelmondragon/gatic-backend/pkg/db"
	"github.com/angelmondragon/gatic-backend/pkg/instance"
	"github.com/angelmondragon/gatic-backend/pkg/logger"
	"github.com/angelmondragon/gatic-backend/pkg/metrics"
	"github.com/angelmondragon/gatic-backend/pkg/migrate"
	"github.com/angelmondragon/gatic-backend/pkg/outbox"
	"github.com/angelmondragon/gatic-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	locker, err := redis.NewLocker(redisClient, redis.LockOptions{
		TTL:     cfg.Inventory.LockTTL,
		Retries: cfg.Inventory.LockRetries,
		Backoff: cfg.Inventory.LockRetryBackoff,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create group locker", err)
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
	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	inventoryService, err := inventory.NewService(rows, reconciler, activityService, events)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	loanService, err := loans.NewService(loans.ServiceParams{
		Repo:       loans.NewRepository(dbClient.DB()),
		Rows:       rows,
		Reconciler: reconciler,
		Activity:   activityService,
		Outbox:     events,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create loan service", err)
		os.Exit(1)
	}

	assignmentService, err := assignments.NewService(assignments.NewRepository(dbClient.DB()), rows, reconciler, activityService, events)
	if err != nil {
		logg.Error(context.Background(), "failed to create assignment service", err)
		os.Exit(1)
	}

	taskService, err := tasks.NewService(tasks.ServiceParams{
		Repo:       tasks.NewRepository(dbClient.DB()),
		DB:         dbClient,
		Rows:       rows,
		Reconciler: reconciler,
		Inventory:  inventoryService,
		Activity:   activityService,
		Outbox:     events,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create task service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promhttp.Handler(),
			inventoryService,
			loanService,
			assignmentService,
			taskService,
			activityService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			if err := closeAll(redisClient, dbClient); err != nil {
				logg.Error(ctx, "error closing connections", err)
			}
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := multierr.Combine(
		server.Shutdown(shutdownCtx),
		closeAll(redisClient, dbClient),
	); err != nil {
		logg.Error(shutdownCtx, "error during shutdown", err)
		os.Exit(1)
	}
}
