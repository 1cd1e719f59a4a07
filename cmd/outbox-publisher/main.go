package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/partsdesk/pricing-backend/internal/bootstrap"
	"github.com/partsdesk/pricing-backend/pkg/metrics"
	"github.com/partsdesk/pricing-backend/pkg/outbox"
	"github.com/partsdesk/pricing-backend/pkg/outbox/registry"
)

func main() {
	bootstrap.Main("outbox-publisher", run)
}

func run(rt *bootstrap.Runtime) error {
	startCtx := context.Background()

	dbClient, err := rt.Database(startCtx)
	if err != nil {
		return err
	}
	pubsubClient, err := rt.PubSub(startCtx)
	if err != nil {
		return err
	}
	events, err := registry.NewEventRegistry(rt.Config.PubSub)
	if err != nil {
		return err
	}

	service, err := NewService(ServiceParams{
		Config:     rt.Config,
		Logger:     rt.Logger,
		DB:         dbClient,
		PubSub:     pubsubClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Registry:   events,
		Metrics:    metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	ctx, stop := rt.SignalContext(map[string]any{"topics": events.Topics()})
	defer stop()
	rt.Logger.Info(ctx, "outbox publisher started")
	return service.Run(ctx)
}
