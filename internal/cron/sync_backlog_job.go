package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/partsdesk/pricing-backend/internal/overrides"
	"github.com/partsdesk/pricing-backend/pkg/enums"
	"github.com/partsdesk/pricing-backend/pkg/logger"
	"github.com/partsdesk/pricing-backend/pkg/metrics"
)

const (
	defaultSyncFailureLookback = 7 * 24 * time.Hour
	defaultOutboxMaxAttempts   = 10
)

type syncBacklogCounter interface {
	SyncBacklog(ctx context.Context, failedSince time.Time) (overrides.SyncCounts, error)
}

type outboxPendingCounter interface {
	CountPending(ctx context.Context, maxAttempts int) (int64, error)
}

// SyncBacklogJobParams configure the backlog job. Sync failures older than
// FailureLookback no longer count as backlog.
type SyncBacklogJobParams struct {
	Logger            *logger.Logger
	Overrides         syncBacklogCounter
	Outbox            outboxPendingCounter
	Backlog           *metrics.SyncBacklogMetrics
	OutboxMetrics     *metrics.OutboxMetrics
	FailureLookback   time.Duration
	OutboxMaxAttempts int
}

// NewSyncBacklogJob builds the job exporting the ERP sync backlog. Outbox is
// optional.
func NewSyncBacklogJob(params SyncBacklogJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Overrides == nil {
		return nil, fmt.Errorf("overrides service required")
	}
	lookback := params.FailureLookback
	if lookback <= 0 {
		lookback = defaultSyncFailureLookback
	}
	maxAttempts := params.OutboxMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultOutboxMaxAttempts
	}
	return &syncBacklogJob{
		logg:          params.Logger,
		overrides:     params.Overrides,
		outbox:        params.Outbox,
		backlog:       params.Backlog,
		outboxMetrics: params.OutboxMetrics,
		lookback:      lookback,
		maxAttempts:   maxAttempts,
		now:           time.Now,
	}, nil
}

type syncBacklogJob struct {
	logg          *logger.Logger
	overrides     syncBacklogCounter
	outbox        outboxPendingCounter
	backlog       *metrics.SyncBacklogMetrics
	outboxMetrics *metrics.OutboxMetrics
	lookback      time.Duration
	maxAttempts   int
	now           func() time.Time
}

func (j *syncBacklogJob) Name() string { return "override-sync-backlog" }

func (j *syncBacklogJob) Run(ctx context.Context) error {
	failedSince := j.now().UTC().Add(-j.lookback)
	counts, err := j.overrides.SyncBacklog(ctx, failedSince)
	if err != nil {
		return fmt.Errorf("count sync backlog: %w", err)
	}
	j.backlog.Set(string(enums.SyncStatePending), counts.Pending)
	j.backlog.Set(string(enums.SyncStateFailed), counts.Failed)

	fields := map[string]any{
		"pending":      counts.Pending,
		"failed":       counts.Failed,
		"synced":       counts.Synced,
		"failed_since": failedSince,
	}
	if j.outbox != nil {
		pending, err := j.outbox.CountPending(ctx, j.maxAttempts)
		if err != nil {
			return fmt.Errorf("count pending outbox events: %w", err)
		}
		j.outboxMetrics.SetPending(pending)
		fields["outbox_pending"] = pending
	}

	logCtx := j.logg.WithFields(ctx, fields)
	if counts.Failed > 0 {
		j.logg.Warn(logCtx, "overrides.sync_backlog")
		return nil
	}
	j.logg.Info(logCtx, "overrides.sync_backlog")
	return nil
}
