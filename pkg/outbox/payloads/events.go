package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partsdesk/pricing-backend/pkg/db/models"
	"github.com/partsdesk/pricing-backend/pkg/enums"
)

// OverrideRuleChangedEvent carries the full rule state after an admin change so
// the ERP sync job can push it without reading the database.
type OverrideRuleChangedEvent struct {
	RuleID          uuid.UUID            `json:"ruleId"`
	ClientID        uuid.UUID            `json:"clientId"`
	Change          enums.OverrideChange `json:"change"`
	Version         int                  `json:"version"`
	ProductID       *uuid.UUID           `json:"productId,omitempty"`
	CategoryName    *string              `json:"categoryName,omitempty"`
	DiscountPercent decimal.NullDecimal  `json:"discountPercent"`
	FixedPrice      decimal.NullDecimal  `json:"fixedPrice"`
	MinimumQuantity decimal.Decimal      `json:"minimumQuantity"`
	ValidFrom       time.Time            `json:"validFrom"`
	ValidUntil      *time.Time           `json:"validUntil,omitempty"`
	IsActive        bool                 `json:"isActive"`
	Priority        int                  `json:"priority"`
	SagePriceID     *string              `json:"sagePriceId,omitempty"`
}

// NewOverrideRuleChangedEvent snapshots a persisted rule.
func NewOverrideRuleChangedEvent(rule models.OverrideRule, change enums.OverrideChange) OverrideRuleChangedEvent {
	return OverrideRuleChangedEvent{
		RuleID:          rule.ID,
		ClientID:        rule.ClientID,
		Change:          change,
		Version:         rule.Version,
		ProductID:       rule.ProductID,
		CategoryName:    rule.CategoryName,
		DiscountPercent: rule.DiscountPercent,
		FixedPrice:      rule.FixedPrice,
		MinimumQuantity: rule.MinimumQuantity,
		ValidFrom:       rule.ValidFrom,
		ValidUntil:      rule.ValidUntil,
		IsActive:        rule.IsActive,
		Priority:        rule.Priority,
		SagePriceID:     rule.SagePriceID,
	}
}

// OverrideRuleSyncedEvent records the outcome the ERP job reported for a rule.
type OverrideRuleSyncedEvent struct {
	RuleID      uuid.UUID `json:"ruleId"`
	ClientID    uuid.UUID `json:"clientId"`
	Succeeded   bool      `json:"succeeded"`
	SagePriceID *string   `json:"sagePriceId,omitempty"`
	Error       *string   `json:"error,omitempty"`
	SyncedAt    time.Time `json:"syncedAt"`
}
