package main

import (
	"context"
	"errors"
	"flag"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/elibrary-backend/internal/bootstrap"
	"github.com/angelmondragon/elibrary-backend/internal/borrowing"
	"github.com/angelmondragon/elibrary-backend/internal/cron"
	"github.com/angelmondragon/elibrary-backend/internal/notifications"
	"github.com/angelmondragon/elibrary-backend/pkg/config"
	"github.com/angelmondragon/elibrary-backend/pkg/db"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
	"github.com/angelmondragon/elibrary-backend/pkg/metrics"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox"
)

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	proc := bootstrap.Start("cron-worker")
	cfg, logg := proc.Config, proc.Logger
	ctx, stop := proc.SignalContext()
	defer stop()
	defer func() {
		if err := proc.Close(); err != nil {
			logg.Error(ctx, "close resources", err)
		}
	}()

	dbClient := proc.Database(ctx)
	redisClient := proc.Redis(ctx)

	registry, err := buildRegistry(cfg, logg, dbClient)
	proc.Must(ctx, "register cron jobs", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron"), 0)
	proc.Must(ctx, "create cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	proc.Must(ctx, "create cron service", err)

	ctx = logg.WithField(ctx, "jobs", registry.Names())
	if *once {
		logg.Info(ctx, "running cron jobs once")
		proc.Must(ctx, "cron run", service.RunOnce(ctx))
		return
	}

	logg.Info(ctx, "cron worker started")
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		proc.Must(ctx, "cron worker stopped unexpectedly", err)
	}
	logg.Info(ctx, "cron worker stopped")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)

	catalogService, err := bootstrap.Catalog(cfg, logg, conn, metrics.NewLedgerMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		return nil, err
	}
	catalogSync, err := cron.NewCatalogSyncJob(logg, catalogService)
	if err != nil {
		return nil, err
	}
	overdue, err := cron.NewOverdueBorrowsJob(cron.OverdueBorrowsJobParams{
		Logger:  logg,
		DB:      dbClient,
		Borrows: borrowing.NewRepository(conn),
		Outbox:  outbox.NewService(outboxRepo, logg),
	})
	if err != nil {
		return nil, err
	}
	cleanup, err := cron.NewNotificationCleanupJob(logg, notifications.NewRepository(conn), 0)
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		DB:           dbClient,
		Repository:   outboxRepo,
		DeadAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(catalogSync, overdue, cleanup, retention), nil
}
