package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/elibrary-backend/internal/bootstrap"
	"github.com/angelmondragon/elibrary-backend/pkg/metrics"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox/registry"
)

func main() {
	proc := bootstrap.Start("outbox-publisher")
	cfg, logg := proc.Config, proc.Logger
	ctx, stop := proc.SignalContext()
	defer stop()
	defer func() {
		if err := proc.Close(); err != nil {
			logg.Error(ctx, "close resources", err)
		}
	}()

	dbClient := proc.Database(ctx)
	pubsubClient := proc.PubSub(ctx)

	events, err := registry.NewEventRegistry(cfg.PubSub)
	proc.Must(ctx, "build event registry", err)

	conn := dbClient.DB()
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(conn),
		Registry:      events,
		DLQRepository: outbox.NewDLQRepository(conn),
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	proc.Must(ctx, "create outbox publisher", err)

	ctx = logg.WithField(ctx, "topic", cfg.PubSub.LedgerTopic)
	logg.Info(ctx, "outbox publisher started")
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		proc.Must(ctx, "outbox publisher stopped unexpectedly", err)
	}
	logg.Info(ctx, "outbox publisher stopped")
}
