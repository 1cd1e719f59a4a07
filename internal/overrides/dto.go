package overrides

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partsdesk/pricing-backend/pkg/db/models"
	"github.com/partsdesk/pricing-backend/pkg/enums"
	pkgpagination "github.com/partsdesk/pricing-backend/pkg/pagination"
	"github.com/partsdesk/pricing-backend/pkg/types"
)

// CreateInput holds the payload to create a rule. Nil optional fields take
// the column defaults.
type CreateInput struct {
	ClientID        uuid.UUID
	ProductID       *uuid.UUID
	CategoryName    *string
	DiscountPercent decimal.NullDecimal
	FixedPrice      decimal.NullDecimal
	MinimumQuantity *decimal.Decimal
	ValidFrom       *time.Time
	ValidUntil      *time.Time
	IsActive        *bool
	Priority        int
	Notes           *string
}

// UpdateInput is a partial update. Nullable fields clear the column on an
// explicit null; pointer fields cannot be cleared.
type UpdateInput struct {
	Version         int
	ProductID       types.Nullable[uuid.UUID]
	CategoryName    types.Nullable[string]
	DiscountPercent types.Nullable[decimal.Decimal]
	FixedPrice      types.Nullable[decimal.Decimal]
	MinimumQuantity *decimal.Decimal
	ValidFrom       *time.Time
	ValidUntil      types.Nullable[time.Time]
	Priority        *int
	Notes           types.Nullable[string]
}

type ListParams struct {
	ClientID  uuid.UUID
	Active    *bool
	ProductID *uuid.UUID
	Category  string
	pkgpagination.Params
}

type ListResult struct {
	Items  []RuleDTO `json:"items"`
	Cursor string    `json:"cursor"`
}

type listQuery struct {
	clientID  uuid.UUID
	active    *bool
	productID *uuid.UUID
	category  string
	limit     int
	cursor    *pkgpagination.Cursor
}

// RuleDTO is the API shape of an override rule.
type RuleDTO struct {
	ID              uuid.UUID           `json:"id"`
	ClientID        uuid.UUID           `json:"client_id"`
	ProductID       *uuid.UUID          `json:"product_id"`
	CategoryName    *string             `json:"category_name"`
	Scope           enums.RuleScope     `json:"scope"`
	DiscountPercent decimal.NullDecimal `json:"discount_percent"`
	FixedPrice      decimal.NullDecimal `json:"fixed_price"`
	MinimumQuantity decimal.Decimal     `json:"minimum_quantity"`
	ValidFrom       time.Time           `json:"valid_from"`
	ValidUntil      *time.Time          `json:"valid_until"`
	IsActive        bool                `json:"is_active"`
	Priority        int                 `json:"priority"`
	CreatedBy       *uuid.UUID          `json:"created_by"`
	UpdatedBy       *uuid.UUID          `json:"updated_by"`
	Notes           *string             `json:"notes"`
	SagePriceID     *string             `json:"sage_price_id"`
	SyncState       enums.SyncState     `json:"sync_state"`
	SageSyncDate    *time.Time          `json:"sage_sync_date"`
	SageSyncError   *string             `json:"sage_sync_error"`
	Version         int                 `json:"version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func NewRuleDTO(m models.OverrideRule) RuleDTO {
	return RuleDTO{
		ID:              m.ID,
		ClientID:        m.ClientID,
		ProductID:       m.ProductID,
		CategoryName:    m.CategoryName,
		Scope:           m.Scope(),
		DiscountPercent: m.DiscountPercent,
		FixedPrice:      m.FixedPrice,
		MinimumQuantity: m.MinimumQuantity,
		ValidFrom:       m.ValidFrom,
		ValidUntil:      m.ValidUntil,
		IsActive:        m.IsActive,
		Priority:        m.Priority,
		CreatedBy:       m.CreatedBy,
		UpdatedBy:       m.UpdatedBy,
		Notes:           m.Notes,
		SagePriceID:     m.SagePriceID,
		SyncState:       m.SyncState(),
		SageSyncDate:    m.SageSyncDate,
		SageSyncError:   m.SageSyncError,
		Version:         m.Version,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func NewRuleDTOs(rows []models.OverrideRule) []RuleDTO {
	out := make([]RuleDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewRuleDTO(row))
	}
	return out
}
