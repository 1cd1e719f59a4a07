package overrides

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partsdesk/pricing-backend/internal/pricing"
	"github.com/partsdesk/pricing-backend/pkg/db/models"
)

// errStaleVersion is returned when a versioned write matched no row.
var errStaleVersion = errors.New("override rule version is stale")

// Repository exposes override rule persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an override rule repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new rule row.
func (r *Repository) Create(ctx context.Context, rule *models.OverrideRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(rule).Error
}

// FindByID loads a single rule.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OverrideRule, error) {
	var rule models.OverrideRule
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// List returns client-scoped rules using cursor pagination.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.OverrideRule, error) {
	query := r.db.WithContext(ctx).Model(&models.OverrideRule{}).Where("client_id = ?", opts.clientID)

	if opts.active != nil {
		query = query.Where("is_active = ?", *opts.active)
	}
	if opts.productID != nil {
		query = query.Where("product_id = ?", *opts.productID)
	}
	if opts.category != "" {
		query = query.Where("category_name = ?", opts.category)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.OverrideRule
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateVersioned writes every mutable column of rule when the stored version
// still equals expected, and bumps the version.
func (r *Repository) UpdateVersioned(ctx context.Context, rule *models.OverrideRule, expected int) error {
	now := time.Now().UTC()
	values := map[string]any{
		"product_id":        rule.ProductID,
		"category_name":     rule.CategoryName,
		"discount_percent":  rule.DiscountPercent,
		"fixed_price":       rule.FixedPrice,
		"minimum_quantity":  rule.MinimumQuantity,
		"valid_from":        rule.ValidFrom,
		"valid_until":       rule.ValidUntil,
		"is_active":         rule.IsActive,
		"priority":          rule.Priority,
		"updated_by":        rule.UpdatedBy,
		"notes":             rule.Notes,
		"is_synced_to_sage": rule.IsSyncedToSage,
		"sage_sync_error":   rule.SageSyncError,
		"version":           expected + 1,
		"updated_at":        now,
	}
	if err := r.updateAtVersion(ctx, rule.ID, expected, values); err != nil {
		return err
	}
	rule.Version = expected + 1
	rule.UpdatedAt = now
	return nil
}

// UpdateSync writes ERP bookkeeping columns without bumping the version, so a
// sync report never invalidates an admin's pending edit.
func (r *Repository) UpdateSync(ctx context.Context, id uuid.UUID, version int, values map[string]any) error {
	return r.updateAtVersion(ctx, id, version, values)
}

func (r *Repository) updateAtVersion(ctx context.Context, id uuid.UUID, version int, values map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.OverrideRule{}).
		Where("id = ? AND version = ?", id, version).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errStaleVersion
	}
	return nil
}

// ListCandidates returns active rules of the client that could match the
// product. Validity and quantity gates are left to the resolver.
func (r *Repository) ListCandidates(ctx context.Context, q pricing.CandidateQuery) ([]models.OverrideRule, error) {
	clauses := []string{"product_id = ?"}
	args := []any{q.ProductID}
	if category := models.CategoryKey(q.CategoryName); category != "" {
		clauses = append(clauses, "TRIM(category_name) = ?")
		args = append(args, category)
	}
	if q.IncludeClientWide {
		clauses = append(clauses, "(product_id IS NULL AND (category_name IS NULL OR TRIM(category_name) = ''))")
	}

	var rows []models.OverrideRule
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND is_active = ?", q.ClientID, true).
		Where("("+strings.Join(clauses, " OR ")+")", args...).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveByClient returns every active rule of the client.
func (r *Repository) ListActiveByClient(ctx context.Context, clientID uuid.UUID) ([]models.OverrideRule, error) {
	var rows []models.OverrideRule
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND is_active = ?", clientID, true).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListPendingSync returns rules the ERP has not confirmed, oldest change first.
func (r *Repository) ListPendingSync(ctx context.Context, limit int) ([]models.OverrideRule, error) {
	var rows []models.OverrideRule
	err := r.db.WithContext(ctx).
		Where("is_synced_to_sage = ?", false).
		Order("updated_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SyncCounts is the per-state size of the ERP backlog.
type SyncCounts struct {
	Pending int64 `json:"pending"`
	Failed  int64 `json:"failed"`
	Synced  int64 `json:"synced"`
}

// CountBySyncState counts rules per sync state. Failures older than
// failedSince are ignored when it is non-zero.
func (r *Repository) CountBySyncState(ctx context.Context, failedSince time.Time) (SyncCounts, error) {
	var counts SyncCounts
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.OverrideRule{})
	}

	if err := base().Where("is_synced_to_sage = ? AND sage_sync_error IS NULL", false).Count(&counts.Pending).Error; err != nil {
		return SyncCounts{}, err
	}
	failed := base().Where("is_synced_to_sage = ? AND sage_sync_error IS NOT NULL", false)
	if !failedSince.IsZero() {
		failed = failed.Where("sage_sync_date >= ?", failedSince)
	}
	if err := failed.Count(&counts.Failed).Error; err != nil {
		return SyncCounts{}, err
	}
	if err := base().Where("is_synced_to_sage = ?", true).Count(&counts.Synced).Error; err != nil {
		return SyncCounts{}, err
	}
	return counts, nil
}
