package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/partsdesk/pricing-backend/pkg/logger"
)

const (
	defaultPublishedRetention = 30 * 24 * time.Hour
	defaultParkedRetention    = 90 * 24 * time.Hour
	defaultRetentionBatch     = 500
	defaultParkedAttempts     = 10
)

// OutboxRetentionJobParams configure outbox pruning. Published rows are kept
// for Retention; rows the publisher gave up on are kept for ParkedRetention so
// operators can still inspect them. MaxAttempts must match the publisher's.
type OutboxRetentionJobParams struct {
	Logger          *logger.Logger
	DB              txRunner
	Repository      outboxRetentionRepo
	Retention       time.Duration
	ParkedRetention time.Duration
	MaxAttempts     int
	BatchSize       int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error)
	DeleteParkedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, maxAttempts, limit int) (int64, error)
}

type outboxRetentionJob struct {
	logg            *logger.Logger
	db              txRunner
	repo            outboxRetentionRepo
	retention       time.Duration
	parkedRetention time.Duration
	maxAttempts     int
	batchSize       int
	now             func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	j := &outboxRetentionJob{
		logg:            params.Logger,
		db:              params.DB,
		repo:            params.Repository,
		retention:       orDefault(params.Retention, defaultPublishedRetention),
		parkedRetention: orDefault(params.ParkedRetention, defaultParkedRetention),
		maxAttempts:     orDefault(params.MaxAttempts, defaultParkedAttempts),
		batchSize:       orDefault(params.BatchSize, defaultRetentionBatch),
		now:             time.Now,
	}
	return j, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

type deleteFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// Run prunes both classes of rows. A failing sweep does not stop the other.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	sweeps := []struct {
		name   string
		cutoff time.Time
		del    deleteFunc
	}{
		{
			name:   "published",
			cutoff: now.Add(-j.retention),
			del: func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
				return j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.batchSize)
			},
		},
		{
			name:   "parked",
			cutoff: now.Add(-j.parkedRetention),
			del: func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
				return j.repo.DeleteParkedBefore(ctx, tx, cutoff, j.maxAttempts, j.batchSize)
			},
		},
	}

	var errs error
	fields := map[string]any{"batch_size": j.batchSize}
	for _, sw := range sweeps {
		deleted, err := j.sweep(ctx, sw.cutoff, sw.del)
		fields[sw.name+"_deleted"] = deleted
		fields[sw.name+"_cutoff"] = sw.cutoff
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s sweep: %w", sw.name, err))
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "outbox.retention_complete")
	return errs
}

// sweep deletes in batches, one transaction each, until a batch comes back
// short.
func (j *outboxRetentionJob) sweep(ctx context.Context, cutoff time.Time, del deleteFunc) (int64, error) {
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		var n int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			n, err = del(ctx, tx, cutoff)
			return err
		})
		if err != nil {
			return total, err
		}
		total += n
		if n < int64(j.batchSize) {
			return total, nil
		}
	}
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
