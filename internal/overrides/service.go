package overrides

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/partsdesk/pricing-backend/pkg/db"
	"github.com/partsdesk/pricing-backend/pkg/db/models"
	"github.com/partsdesk/pricing-backend/pkg/enums"
	pkgerrors "github.com/partsdesk/pricing-backend/pkg/errors"
	"github.com/partsdesk/pricing-backend/pkg/logger"
	"github.com/partsdesk/pricing-backend/pkg/outbox"
	"github.com/partsdesk/pricing-backend/pkg/outbox/payloads"
	pkgpagination "github.com/partsdesk/pricing-backend/pkg/pagination"
)

const (
	defaultPendingSyncLimit = 100
	maxPendingSyncLimit     = 500
	maxSyncErrorLength      = 2000
)

// Service exposes override rule administration and ERP sync bookkeeping.
type Service interface {
	Create(ctx context.Context, actorID *uuid.UUID, input CreateInput) (*models.OverrideRule, error)
	Get(ctx context.Context, id uuid.UUID) (*models.OverrideRule, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, input UpdateInput) (*models.OverrideRule, error)
	SetActive(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, version int, active bool) (*models.OverrideRule, error)
	ListPendingSync(ctx context.Context, limit int) ([]models.OverrideRule, error)
	RecordSyncSuccess(ctx context.Context, id uuid.UUID, version int, sagePriceID string, at time.Time) (*models.OverrideRule, error)
	RecordSyncFailure(ctx context.Context, id uuid.UUID, version int, message string, at time.Time) (*models.OverrideRule, error)
	SyncBacklog(ctx context.Context, failedSince time.Time) (SyncCounts, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Config carries the feature flags the service honors.
type Config struct {
	AllowClientWide  bool
	EmitOutboxEvents bool
	Clock            func() time.Time
}

type service struct {
	repo   *Repository
	tx     txRunner
	events eventEmitter
	logg   *logger.Logger
	cfg    Config
}

// NewService builds an override rule service. events may be nil when outbox
// emission is disabled.
func NewService(repo *Repository, tx txRunner, events eventEmitter, logg *logger.Logger, cfg Config) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("override repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cfg.EmitOutboxEvents && events == nil {
		return nil, fmt.Errorf("outbox emitter required when outbox events are enabled")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: repo, tx: tx, events: events, logg: logg, cfg: cfg}, nil
}

func (s *service) Create(ctx context.Context, actorID *uuid.UUID, input CreateInput) (*models.OverrideRule, error) {
	rule := models.OverrideRule{
		ID:              uuid.New(),
		ClientID:        input.ClientID,
		ProductID:       input.ProductID,
		CategoryName:    normalizeCategory(input.CategoryName),
		DiscountPercent: input.DiscountPercent,
		FixedPrice:      input.FixedPrice,
		MinimumQuantity: decimal.NewFromInt(1),
		ValidFrom:       s.cfg.Clock(),
		ValidUntil:      input.ValidUntil,
		IsActive:        true,
		Priority:        input.Priority,
		CreatedBy:       actorID,
		UpdatedBy:       actorID,
		Notes:           input.Notes,
		Version:         1,
	}
	if input.MinimumQuantity != nil {
		rule.MinimumQuantity = *input.MinimumQuantity
	}
	if input.ValidFrom != nil {
		rule.ValidFrom = input.ValidFrom.UTC()
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	if err := validateRule(rule, s.cfg.AllowClientWide); err != nil {
		return nil, err
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &rule); err != nil {
			return err
		}
		return s.emitChanged(ctx, tx, rule, enums.OverrideChangeCreated, actorID)
	}); err != nil {
		return nil, s.mapWriteError(err, "create override rule")
	}

	s.logg.Info(s.ruleContext(ctx, rule), "overrides.created")
	return &rule, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.OverrideRule, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.Validation("rule_id", "rule_id is required")
	}
	return s.load(ctx, id)
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.ClientID == uuid.Nil {
		return nil, pkgerrors.Validation("client_id", "client_id is required")
	}

	query := listQuery{
		clientID:  params.ClientID,
		active:    params.Active,
		productID: params.ProductID,
		category:  strings.TrimSpace(params.Category),
		limit:     pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").WithDetails(map[string]any{"field": "cursor"})
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list override rules")
	}

	page, next := pkgpagination.Trim(rows, params.Limit, func(m models.OverrideRule) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return &ListResult{Items: NewRuleDTOs(page), Cursor: next}, nil
}

func (s *service) Update(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, input UpdateInput) (*models.OverrideRule, error) {
	if input.Version <= 0 {
		return nil, pkgerrors.Validation("version", "version is required")
	}
	rule, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.Version != input.Version {
		return nil, staleVersion(rule.ID, input.Version, rule.Version)
	}

	applyUpdate(rule, input)
	rule.UpdatedBy = actorID
	markPending(rule)
	if err := validateRule(*rule, s.cfg.AllowClientWide); err != nil {
		return nil, err
	}

	if err := s.writeVersioned(ctx, rule, input.Version, enums.OverrideChangeUpdated, actorID); err != nil {
		return nil, err
	}
	s.logg.Info(s.ruleContext(ctx, *rule), "overrides.updated")
	return rule, nil
}

func (s *service) SetActive(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, version int, active bool) (*models.OverrideRule, error) {
	if version <= 0 {
		return nil, pkgerrors.Validation("version", "version is required")
	}
	rule, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.Version != version {
		return nil, staleVersion(rule.ID, version, rule.Version)
	}
	if rule.IsActive == active {
		return rule, nil
	}

	change := enums.OverrideChangeDeactivated
	if active {
		change = enums.OverrideChangeActivated
	}
	rule.IsActive = active
	rule.UpdatedBy = actorID
	markPending(rule)

	if err := s.writeVersioned(ctx, rule, version, change, actorID); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(s.ruleContext(ctx, *rule), "change", change), "overrides.active_changed")
	return rule, nil
}

func (s *service) ListPendingSync(ctx context.Context, limit int) ([]models.OverrideRule, error) {
	switch {
	case limit <= 0:
		limit = defaultPendingSyncLimit
	case limit > maxPendingSyncLimit:
		limit = maxPendingSyncLimit
	}
	rows, err := s.repo.ListPendingSync(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending sync")
	}
	return rows, nil
}

func (s *service) RecordSyncSuccess(ctx context.Context, id uuid.UUID, version int, sagePriceID string, at time.Time) (*models.OverrideRule, error) {
	sagePriceID = strings.TrimSpace(sagePriceID)
	if sagePriceID == "" {
		return nil, pkgerrors.Validation("sage_price_id", "sage_price_id is required")
	}
	if at.IsZero() {
		at = s.cfg.Clock()
	}
	at = at.UTC()

	return s.recordSync(ctx, id, version, func(rule *models.OverrideRule) map[string]any {
		rule.SagePriceID = &sagePriceID
		rule.IsSyncedToSage = true
		rule.SageSyncDate = &at
		rule.SageSyncError = nil
		return map[string]any{
			"sage_price_id":     rule.SagePriceID,
			"is_synced_to_sage": true,
			"sage_sync_date":    at,
			"sage_sync_error":   nil,
		}
	})
}

func (s *service) RecordSyncFailure(ctx context.Context, id uuid.UUID, version int, message string, at time.Time) (*models.OverrideRule, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, pkgerrors.Validation("error", "error message is required")
	}
	if len(message) > maxSyncErrorLength {
		message = message[:maxSyncErrorLength]
	}
	if at.IsZero() {
		at = s.cfg.Clock()
	}
	at = at.UTC()

	return s.recordSync(ctx, id, version, func(rule *models.OverrideRule) map[string]any {
		rule.IsSyncedToSage = false
		rule.SageSyncDate = &at
		rule.SageSyncError = &message
		return map[string]any{
			"is_synced_to_sage": false,
			"sage_sync_date":    at,
			"sage_sync_error":   message,
		}
	})
}

func (s *service) SyncBacklog(ctx context.Context, failedSince time.Time) (SyncCounts, error) {
	counts, err := s.repo.CountBySyncState(ctx, failedSince)
	if err != nil {
		return SyncCounts{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count sync backlog")
	}
	return counts, nil
}

// recordSync applies an ERP report at the version the sync job read. The
// version is not bumped.
func (s *service) recordSync(ctx context.Context, id uuid.UUID, version int, apply func(rule *models.OverrideRule) map[string]any) (*models.OverrideRule, error) {
	if version <= 0 {
		return nil, pkgerrors.Validation("version", "version is required")
	}
	rule, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.Version != version {
		return nil, staleVersion(rule.ID, version, rule.Version)
	}

	values := apply(rule)
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateSync(ctx, rule.ID, version, values); err != nil {
			return err
		}
		if !s.cfg.EmitOutboxEvents {
			return nil
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOverrideRuleSynced,
			AggregateType: enums.AggregateOverrideRule,
			AggregateID:   rule.ID,
			Data: payloads.OverrideRuleSyncedEvent{
				RuleID:      rule.ID,
				ClientID:    rule.ClientID,
				Succeeded:   rule.IsSyncedToSage,
				SagePriceID: rule.SagePriceID,
				Error:       rule.SageSyncError,
				SyncedAt:    *rule.SageSyncDate,
			},
			OccurredAt: *rule.SageSyncDate,
		})
	}); err != nil {
		if errors.Is(err, errStaleVersion) {
			return nil, staleVersion(rule.ID, version, 0)
		}
		return nil, s.mapWriteError(err, "record sync result")
	}

	logCtx := s.logg.WithField(s.ruleContext(ctx, *rule), "sync_state", rule.SyncState())
	if rule.IsSyncedToSage {
		s.logg.Info(logCtx, "overrides.sync_recorded")
	} else {
		s.logg.Warn(s.logg.WithField(logCtx, "sync_error", *rule.SageSyncError), "overrides.sync_failed")
	}
	return rule, nil
}

func (s *service) writeVersioned(ctx context.Context, rule *models.OverrideRule, expected int, change enums.OverrideChange, actorID *uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateVersioned(ctx, rule, expected); err != nil {
			return err
		}
		return s.emitChanged(ctx, tx, *rule, change, actorID)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, errStaleVersion) {
		return staleVersion(rule.ID, expected, 0)
	}
	return s.mapWriteError(err, "update override rule")
}

func (s *service) emitChanged(ctx context.Context, tx *gorm.DB, rule models.OverrideRule, change enums.OverrideChange, actorID *uuid.UUID) error {
	if !s.cfg.EmitOutboxEvents {
		return nil
	}
	var actor *outbox.ActorRef
	if actorID != nil {
		actor = &outbox.ActorRef{ActorID: *actorID}
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOverrideRuleChanged,
		AggregateType: enums.AggregateOverrideRule,
		AggregateID:   rule.ID,
		Actor:         actor,
		Data:          payloads.NewOverrideRuleChangedEvent(rule, change),
		OccurredAt:    s.cfg.Clock(),
	})
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.OverrideRule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "override rule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load override rule")
	}
	return rule, nil
}

func (s *service) mapWriteError(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "override rule already exists")
	}
	if db.IsCheckViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "override rule violates a table constraint")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func (s *service) ruleContext(ctx context.Context, rule models.OverrideRule) context.Context {
	ctx = s.logg.WithRuleID(ctx, rule.ID.String())
	ctx = s.logg.WithClientID(ctx, rule.ClientID.String())
	return s.logg.WithField(ctx, "version", rule.Version)
}

func staleVersion(id uuid.UUID, expected, current int) error {
	details := map[string]any{"rule_id": id.String(), "expected_version": expected}
	if current > 0 {
		details["current_version"] = current
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "override rule was modified by another request").WithDetails(details)
}

// markPending sends the rule back to the ERP queue after an admin change.
func markPending(rule *models.OverrideRule) {
	rule.IsSyncedToSage = false
	rule.SageSyncError = nil
}

func applyUpdate(rule *models.OverrideRule, input UpdateInput) {
	input.ProductID.Apply(&rule.ProductID)
	if input.CategoryName.Set {
		rule.CategoryName = normalizeCategory(input.CategoryName.Value)
	}
	applyDecimal(&rule.DiscountPercent, input.DiscountPercent.Set, input.DiscountPercent.Value)
	applyDecimal(&rule.FixedPrice, input.FixedPrice.Set, input.FixedPrice.Value)
	if input.MinimumQuantity != nil {
		rule.MinimumQuantity = *input.MinimumQuantity
	}
	if input.ValidFrom != nil {
		rule.ValidFrom = input.ValidFrom.UTC()
	}
	input.ValidUntil.Apply(&rule.ValidUntil)
	if input.Priority != nil {
		rule.Priority = *input.Priority
	}
	input.Notes.Apply(&rule.Notes)
}

func applyDecimal(dst *decimal.NullDecimal, set bool, value *decimal.Decimal) {
	if !set {
		return
	}
	if value == nil {
		*dst = decimal.NullDecimal{}
		return
	}
	*dst = decimal.NullDecimal{Decimal: *value, Valid: true}
}
