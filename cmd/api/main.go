package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/partsdesk/pricing-backend/api"
	"github.com/partsdesk/pricing-backend/api/routes"
	"github.com/partsdesk/pricing-backend/internal/bootstrap"
	"github.com/partsdesk/pricing-backend/internal/overrides"
	"github.com/partsdesk/pricing-backend/internal/pricing"
	"github.com/partsdesk/pricing-backend/pkg/metrics"
	"github.com/partsdesk/pricing-backend/pkg/outbox"
)

func main() {
	bootstrap.Main("api", run)
}

func run(rt *bootstrap.Runtime) error {
	cfg := rt.Config
	startCtx := context.Background()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	dbClient, err := rt.Database(startCtx)
	if err != nil {
		return err
	}
	redisClient, err := rt.Redis(startCtx)
	if err != nil {
		return err
	}

	overridesRepo := overrides.NewRepository(dbClient.DB())
	overridesService, err := overrides.NewService(
		overridesRepo,
		dbClient,
		outbox.NewService(outbox.NewRepository(dbClient.DB()), rt.Logger),
		rt.Logger,
		overrides.Config{
			AllowClientWide:  cfg.FeatureFlags.AllowClientWide,
			EmitOutboxEvents: cfg.FeatureFlags.EmitOutboxEvents,
		},
	)
	if err != nil {
		return err
	}
	resolver, err := pricing.NewResolver(overridesRepo, rt.Logger, metrics.NewPricingMetrics(prometheus.DefaultRegisterer), pricing.Config{
		AllowClientWide: cfg.FeatureFlags.AllowClientWide,
	})
	if err != nil {
		return err
	}

	// Hosting platforms inject PORT; it wins over the configured port.
	port := cfg.App.Port
	if injected := os.Getenv("PORT"); injected != "" {
		port = injected
	}
	addr := ":" + port

	ctx, stop := rt.SignalContext(map[string]any{"addr": addr})
	defer stop()

	handler := routes.NewRouter(cfg, rt.Logger, dbClient, redisClient, resolver, overridesService, prometheus.DefaultGatherer)
	rt.Logger.Info(ctx, "api server listening")
	return api.Serve(ctx, api.NewServer(cfg, addr, handler), cfg.API.ShutdownTimeout)
}
