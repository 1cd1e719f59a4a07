package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/partsdesk/pricing-backend/pkg/config"
	"github.com/partsdesk/pricing-backend/pkg/db/models"
	"github.com/partsdesk/pricing-backend/pkg/logger"
	"github.com/partsdesk/pricing-backend/pkg/metrics"
	"github.com/partsdesk/pricing-backend/pkg/outbox/payloads"
	"github.com/partsdesk/pricing-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize    = 50
	defaultPollInterval = 500 * time.Millisecond
	defaultMaxAttempts  = 10
	publishTimeout      = 15 * time.Second
	maxBackoff          = 10 * time.Second
	jitterWindow        = 250 * time.Millisecond
)

// outcome is the per-row result, also used as the metrics label.
type outcome string

const (
	outcomePublished outcome = "published"
	outcomeFailed    outcome = "failed"
	outcomeDead      outcome = "dead"
	outcomeHeld      outcome = "held"
)

const (
	reasonNonRetryable = "non_retryable"
	reasonMaxAttempts  = "max_attempts"
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	Metrics          *metrics.OutboxMetrics
}

// Service moves outbox rows to Pub/Sub. A batch is claimed with row locks in
// one transaction, so replicas can run side by side. The rule id is the
// ordering key, and after a failed publish the rule's later rows in the same
// batch are held for the next poll.
type Service struct {
	logg      *logger.Logger
	db        dbClient
	repo      outboxRepository
	pubsub    pubSubClient
	events    registryResolver
	metrics   *metrics.OutboxMetrics
	publisher publisherFactory

	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	var missing error
	for name, ok := range map[string]bool{
		"config":            params.Config != nil,
		"logger":            params.Logger != nil,
		"database client":   params.DB != nil,
		"pubsub client":     params.PubSub != nil,
		"outbox repository": params.Repository != nil,
		"event registry":    params.Registry != nil,
	} {
		if !ok {
			missing = multierr.Append(missing, fmt.Errorf("%s is required", name))
		}
	}
	if missing != nil {
		return nil, missing
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = gcpPublisherFactory(params.PubSub)
	}
	cfg := params.Config.Outbox
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		pubsub:       params.PubSub,
		events:       params.Registry,
		metrics:      params.Metrics,
		publisher:    factory,
		batchSize:    positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: positiveOr(time.Duration(cfg.PollIntervalMS)*time.Millisecond, defaultPollInterval),
	}, nil
}

func positiveOr[T int | time.Duration](v, fallback T) T {
	if v > 0 {
		return v
	}
	return fallback
}

// Run polls until ctx ends. A full batch is followed by another poll right
// away; a short one waits for the poll interval. Errors back off
// exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.preflight(ctx); err != nil {
		return err
	}

	backoff := time.Duration(0)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		claimed, err := s.drain(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			wait = withJitter(backoff)
		case claimed >= s.batchSize:
			backoff = 0
		default:
			backoff = 0
			wait = withJitter(s.pollInterval)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (s *Service) preflight(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping: %w", err)
	}
	return nil
}

// drain claims one batch and settles every row in it. It returns the number
// of rows claimed.
func (s *Service) drain(ctx context.Context) (int, error) {
	claimed := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		claimed = len(rows)

		blocked := map[uuid.UUID]bool{}
		for _, row := range rows {
			if blocked[row.AggregateID] {
				s.logg.Info(s.logg.WithFields(ctx, s.rowFields(row, nil)), "outbox row held behind failed predecessor")
				s.count(outcomeHeld)
				continue
			}
			result, err := s.deliver(ctx, tx, row)
			if err != nil {
				return err
			}
			if result == outcomeFailed {
				blocked[row.AggregateID] = true
			}
		}
		return nil
	})
	return claimed, err
}

// deliver publishes one row and records what happened on it.
func (s *Service) deliver(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (outcome, error) {
	resolved, err := s.events.Resolve(row)
	if err != nil {
		return outcomeDead, s.park(ctx, tx, row, reasonNonRetryable, err, s.rowFields(row, nil))
	}

	fields := s.rowFields(row, resolved)
	pubErr := s.publish(ctx, row, resolved)
	if pubErr == nil {
		if err := s.repo.MarkPublishedTx(tx, row.ID); err != nil {
			return "", fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		s.count(outcomePublished)
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox row published")
		return outcomePublished, nil
	}

	var permanent registry.NonRetryableError
	if errors.As(pubErr, &permanent) {
		return outcomeDead, s.park(ctx, tx, row, reasonNonRetryable, pubErr, fields)
	}

	attempt := row.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= s.maxAttempts {
		return outcomeDead, s.park(ctx, tx, row, reasonMaxAttempts, fmt.Errorf("gave up after %d attempts: %w", attempt, pubErr), fields)
	}

	fields["error"] = pubErr.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox publish failed, will retry")
	if err := s.repo.MarkFailedTx(tx, row.ID, pubErr); err != nil {
		return "", fmt.Errorf("mark %s failed: %w", row.ID, err)
	}
	s.count(outcomeFailed)
	return outcomeFailed, nil
}

// park ends retries for a row. Payload and last_error stay for operators,
// and attempt_count is pinned at the limit so the fetch query skips the row.
func (s *Service) park(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason string, cause error, fields map[string]any) error {
	fields["terminal_reason"] = reason
	fields["error"] = cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox row parked")

	if err := s.repo.MarkTerminalTx(tx, row.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("park %s: %w", row.ID, err)
	}
	s.count(outcomeDead)
	return nil
}

func (s *Service) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisher(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}

	msg := newMessage(row, resolved)
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher for topic %s returned no result", topic))
	}
	if _, err := result.Get(publishCtx); err != nil {
		// The client pauses an ordering key after a failed publish.
		pub.ResumePublish(msg.OrderingKey)
		return err
	}
	return nil
}

func (s *Service) count(o outcome) {
	s.metrics.IncResult(string(o))
}

// newMessage builds the Pub/Sub message for a row. Attributes let the ERP
// consumer route and filter without decoding the body.
func newMessage(row models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	ruleID := row.AggregateID.String()
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   ruleID,
		"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	switch payload := resolved.Payload.(type) {
	case *payloads.OverrideRuleChangedEvent:
		attrs["client_id"] = payload.ClientID.String()
		attrs["rule_version"] = strconv.Itoa(payload.Version)
		attrs["change"] = string(payload.Change)
	case *payloads.OverrideRuleSyncedEvent:
		attrs["client_id"] = payload.ClientID.String()
		attrs["sync_succeeded"] = strconv.FormatBool(payload.Succeeded)
	}
	return &gcppubsub.Message{Data: row.Payload, Attributes: attrs, OrderingKey: ruleID}
}

func (s *Service) rowFields(row models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"rule_id":       row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	}
	if resolved != nil {
		fields["event_id"] = resolved.Envelope.EventID
		fields["topic"] = resolved.Descriptor.Topic
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		return min(base*2, limit)
	}
	return min(current*2, limit)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
