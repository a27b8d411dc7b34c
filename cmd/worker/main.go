package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/elibrary-backend/internal/bootstrap"
	"github.com/angelmondragon/elibrary-backend/internal/notifications"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox/registry"
)

func main() {
	proc := bootstrap.Start("worker")
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
	pubsubClient := proc.PubSub(ctx)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.ConsumerIdempotencyTTL)
	proc.Must(ctx, "create idempotency manager", err)

	notificationConsumer, err := notifications.NewConsumer(
		notifications.NewRepository(dbClient.DB()),
		pubsubClient.NotificationsSubscription(),
		registry.NewLedgerDecoders(),
		manager,
		logg,
	)
	proc.Must(ctx, "create notifications consumer", err)

	service, err := NewService(ServiceParams{
		Logger:    logg,
		DB:        dbClient,
		Redis:     redisClient,
		PubSub:    pubsubClient,
		Consumers: map[string]consumer{"notifications": notificationConsumer},
	})
	proc.Must(ctx, "create worker service", err)

	logg.Info(ctx, "worker started")
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		proc.Must(ctx, "worker stopped unexpectedly", err)
	}
	logg.Info(ctx, "worker stopped")
}
