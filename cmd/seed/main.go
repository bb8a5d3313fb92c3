package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/gatic-backend/internal/activity"
	"github.com/angelmondragon/gatic-backend/internal/inventory"
	"github.com/angelmondragon/gatic-backend/pkg/config"
	"github.com/angelmondragon/gatic-backend/pkg/db"
	"github.com/angelmondragon/gatic-backend/pkg/logger"
	"github.com/angelmondragon/gatic-backend/pkg/migrate"
	"github.com/angelmondragon/gatic-backend/pkg/outbox"
	"github.com/angelmondragon/gatic-backend/pkg/redis"
)

const defaultSeedActor = "seed"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	file := flag.String("file", "seed/catalog.yaml", "YAML seed catalog")
	actor := flag.String("actor", "", "actor recorded on the created stock (overrides the file)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	catalog, err := loadCatalog(*file)
	if err != nil {
		logg.Error(ctx, "failed to load seed catalog", err)
		os.Exit(1)
	}
	inputs, err := catalog.inputs()
	if err != nil {
		logg.Error(ctx, "invalid seed catalog", err)
		os.Exit(1)
	}
	signer := catalog.Actor
	if *actor != "" {
		signer = *actor
	}
	if signer == "" {
		signer = defaultSeedActor
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()
	locker, err := redis.NewLocker(redisClient, redis.LockOptions{
		TTL:     cfg.Inventory.LockTTL,
		Retries: cfg.Inventory.LockRetries,
		Backoff: cfg.Inventory.LockRetryBackoff,
	})
	if err != nil {
		logg.Error(ctx, "failed to create group locker", err)
		os.Exit(1)
	}

	rows := inventory.NewRepository(dbClient.DB())
	reconciler, err := inventory.NewReconciler(dbClient, rows, locker, nil, logg)
	if err != nil {
		logg.Error(ctx, "failed to create reconciler", err)
		os.Exit(1)
	}
	activityService, err := activity.NewService(activity.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create activity service", err)
		os.Exit(1)
	}
	svc, err := inventory.NewService(rows, reconciler, activityService, outbox.NewService(outbox.NewRepository(dbClient.DB()), logg))
	if err != nil {
		logg.Error(ctx, "failed to create inventory service", err)
		os.Exit(1)
	}

	ctx = logg.WithActor(ctx, signer)
	report, err := seeder{stock: svc, groups: rows, logg: logg}.run(ctx, signer, inputs)
	if err != nil {
		logg.Error(logg.WithFields(ctx, map[string]any{"created": report.Created, "skipped": report.Skipped}), "seed failed", err)
		os.Exit(1)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"created": report.Created, "skipped": report.Skipped}), "seed complete")
}
