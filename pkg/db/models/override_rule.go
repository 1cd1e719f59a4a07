package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partsdesk/pricing-backend/pkg/enums"
)

// OverrideRule is a client-specific discount or fixed price, optionally
// narrowed to a product or a category.
type OverrideRule struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ClientID        uuid.UUID           `gorm:"column:client_id;type:uuid;not null"`
	ProductID       *uuid.UUID          `gorm:"column:product_id;type:uuid"`
	CategoryName    *string             `gorm:"column:category_name"`
	DiscountPercent decimal.NullDecimal `gorm:"column:discount_percent;type:numeric(5,2)"`
	FixedPrice      decimal.NullDecimal `gorm:"column:fixed_price;type:numeric(12,2)"`
	MinimumQuantity decimal.Decimal     `gorm:"column:minimum_quantity;type:numeric(12,3);not null"`
	ValidFrom       time.Time           `gorm:"column:valid_from;not null"`
	ValidUntil      *time.Time          `gorm:"column:valid_until"`
	IsActive        bool                `gorm:"column:is_active;not null"`
	Priority        int                 `gorm:"column:priority;not null"`
	CreatedBy       *uuid.UUID          `gorm:"column:created_by;type:uuid"`
	UpdatedBy       *uuid.UUID          `gorm:"column:updated_by;type:uuid"`
	Notes           *string             `gorm:"column:notes"`
	SagePriceID     *string             `gorm:"column:sage_price_id"`
	IsSyncedToSage  bool                `gorm:"column:is_synced_to_sage;not null"`
	SageSyncDate    *time.Time          `gorm:"column:sage_sync_date"`
	SageSyncError   *string             `gorm:"column:sage_sync_error"`
	Version         int                 `gorm:"column:version;not null"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (OverrideRule) TableName() string {
	return "client_price_overrides"
}

// Scope derives the specificity tier from the populated scope columns.
// A product id wins over a category; neither means the rule is client-wide.
func (r OverrideRule) Scope() enums.RuleScope {
	switch {
	case r.ProductID != nil:
		return enums.RuleScopeProduct
	case r.CategoryName != nil && CategoryKey(*r.CategoryName) != "":
		return enums.RuleScopeCategory
	default:
		return enums.RuleScopeClient
	}
}

// SyncState reports the ERP bookkeeping state of the rule.
func (r OverrideRule) SyncState() enums.SyncState {
	switch {
	case r.IsSyncedToSage:
		return enums.SyncStateSynced
	case r.SageSyncError != nil:
		return enums.SyncStateFailed
	default:
		return enums.SyncStatePending
	}
}

// CategoryKey is the form categories are compared in. It strips the same
// characters as SQL TRIM so store prefilters and in-memory matching agree.
func CategoryKey(name string) string {
	return strings.Trim(name, " ")
}
