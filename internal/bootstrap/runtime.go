// Package bootstrap holds the startup and shutdown sequence shared by the
// long-running binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/partsdesk/pricing-backend/pkg/config"
	"github.com/partsdesk/pricing-backend/pkg/db"
	"github.com/partsdesk/pricing-backend/pkg/instance"
	"github.com/partsdesk/pricing-backend/pkg/logger"
	"github.com/partsdesk/pricing-backend/pkg/migrate"
	"github.com/partsdesk/pricing-backend/pkg/pubsub"
	"github.com/partsdesk/pricing-backend/pkg/redis"
)

type closer struct {
	name  string
	close func() error
}

// Runtime carries the config and logger of one process plus the clients it
// opened. Close releases the clients in reverse order.
type Runtime struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger

	closers []closer
}

// Load reads .env when present, parses the environment and builds the
// logger for the given service kind.
func Load(kind string) (*Runtime, error) {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Service.Kind = kind

	rt := &Runtime{
		Kind:   kind,
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
			Format:      cfg.App.LogFormat,
		}),
	}
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		rt.Logger.Warn(rt.Logger.WithField(context.Background(), "error", envErr.Error()), "ignoring unreadable .env file")
	}
	return rt, nil
}

func (rt *Runtime) onClose(name string, fn func() error) {
	rt.closers = append(rt.closers, closer{name: name, close: fn})
}

// Database connects and, in dev with auto-migrate on, brings the schema up.
func (rt *Runtime) Database(ctx context.Context) (*db.Client, error) {
	client, err := db.New(ctx, rt.Config.DB, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	rt.onClose("database", client.Close)

	if err := migrate.MaybeRunDev(ctx, rt.Config, rt.Logger, client); err != nil {
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return client, nil
}

func (rt *Runtime) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, rt.Config.Redis, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	rt.onClose("redis", client.Close)
	return client, nil
}

func (rt *Runtime) PubSub(ctx context.Context) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, rt.Config.GCP, rt.Config.PubSub, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("pubsub: %w", err)
	}
	rt.onClose("pubsub", client.Close)
	return client, nil
}

// SignalContext is canceled on SIGINT or SIGTERM. It carries the process
// identity fields plus extra.
func (rt *Runtime) SignalContext(extra map[string]any) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	fields := map[string]any{
		"env":          rt.Config.App.Env,
		"service_kind": rt.Kind,
		"instance":     instance.GetID(),
	}
	for k, v := range extra {
		fields[k] = v
	}
	return rt.Logger.WithFields(ctx, fields), stop
}

func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		c := rt.closers[i]
		if err := c.close(); err != nil {
			rt.Logger.Error(rt.Logger.WithField(context.Background(), "client", c.name), "close failed", err)
		}
	}
	rt.closers = nil
}

// Main runs fn with a loaded Runtime and exits non-zero when fn fails.
// Cancellation from a shutdown signal counts as success.
func Main(kind string, fn func(rt *Runtime) error) {
	rt, err := Load(kind)
	if err != nil {
		logger.New(logger.Options{ServiceName: kind}).Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	err = fn(rt)
	rt.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		rt.Logger.Error(context.Background(), kind+" stopped", err)
		os.Exit(1)
	}
	rt.Logger.Info(context.Background(), kind+" shut down cleanly")
}
