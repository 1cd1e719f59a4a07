package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/partsdesk/pricing-backend/internal/bootstrap"
	"github.com/partsdesk/pricing-backend/internal/cron"
	"github.com/partsdesk/pricing-backend/internal/overrides"
	"github.com/partsdesk/pricing-backend/pkg/config"
	"github.com/partsdesk/pricing-backend/pkg/db"
	"github.com/partsdesk/pricing-backend/pkg/metrics"
	"github.com/partsdesk/pricing-backend/pkg/outbox"
)

func main() {
	bootstrap.Main("cron-worker", run)
}

func run(rt *bootstrap.Runtime) error {
	cfg := rt.Config
	startCtx := context.Background()

	dbClient, err := rt.Database(startCtx)
	if err != nil {
		return err
	}
	redisClient, err := rt.Redis(startCtx)
	if err != nil {
		return err
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	overridesService, err := overrides.NewService(
		overrides.NewRepository(dbClient.DB()),
		dbClient,
		outbox.NewService(outboxRepo, rt.Logger),
		rt.Logger,
		overrides.Config{
			AllowClientWide:  cfg.FeatureFlags.AllowClientWide,
			EmitOutboxEvents: cfg.FeatureFlags.EmitOutboxEvents,
		},
	)
	if err != nil {
		return err
	}

	jobs, err := buildJobs(rt, cfg, overridesService, outboxRepo, dbClient)
	if err != nil {
		return err
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   rt.Logger,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	ctx, stop := rt.SignalContext(map[string]any{"jobs": jobs.Names()})
	defer stop()

	stopMetrics := serveMetrics(ctx, rt, ":"+cfg.App.Port)
	defer stopMetrics()

	rt.Logger.Info(ctx, "cron worker started")
	return service.Run(ctx)
}

func buildJobs(rt *bootstrap.Runtime, cfg *config.Config, overridesService overrides.Service, outboxRepo *outbox.Repository, dbClient *db.Client) (*cron.Registry, error) {
	backlog, err := cron.NewSyncBacklogJob(cron.SyncBacklogJobParams{
		Logger:            rt.Logger,
		Overrides:         overridesService,
		Outbox:            outboxRepo,
		Backlog:           metrics.NewSyncBacklogMetrics(prometheus.DefaultRegisterer),
		OutboxMetrics:     metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		FailureLookback:   cfg.Cron.SyncFailureLookback,
		OutboxMaxAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:          rt.Logger,
		DB:              dbClient,
		Repository:      outboxRepo,
		Retention:       days(cfg.Outbox.RetentionDays),
		ParkedRetention: days(cfg.Outbox.ParkedRetentionDays),
		MaxAttempts:     cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(backlog, retention), nil
}

// serveMetrics exposes the default Prometheus registry until the returned
// func is called.
func serveMetrics(ctx context.Context, rt *bootstrap.Runtime, addr string) func() {
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Logger.Error(ctx, "metrics listener stopped", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
}

// lockName is per environment so workers of different environments sharing
// one Redis do not block each other.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
