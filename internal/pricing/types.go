package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partsdesk/pricing-backend/pkg/db/models"
	"github.com/partsdesk/pricing-backend/pkg/enums"
)

// PricingRequest asks for the unit price one client pays for one product.
// CategoryName comes from the catalog entry of the product, never from user input.
type PricingRequest struct {
	ClientID     uuid.UUID
	ProductID    uuid.UUID
	CategoryName string
	Quantity     decimal.Decimal
	ListPrice    decimal.NullDecimal
	// AsOf defaults to the resolver clock when zero.
	AsOf time.Time
}

// PricingLine is one line of a batch quote for a single client.
type PricingLine struct {
	ProductID    uuid.UUID
	CategoryName string
	Quantity     decimal.Decimal
	ListPrice    decimal.NullDecimal
}

// PricingResult is the price decision for a request.
type PricingResult struct {
	ProductID     uuid.UUID
	UnitPrice     decimal.Decimal
	ListPrice     decimal.Decimal
	AppliedRuleID *uuid.UUID
	// DiscountPercent is set only when the applied rule priced by percentage.
	DiscountPercent decimal.NullDecimal
	FixedPrice      bool
	// MinimumQuantity is the lot condition of the applied rule.
	MinimumQuantity decimal.NullDecimal
	Scope           enums.RuleScope
	Source          enums.PriceSource
	AsOf            time.Time
	Warnings        []DataQualityWarning
}

// DataQualityWarning flags a rule that won eligibility and ranking but could
// not produce a price. Resolution continues with the next ranked rule.
type DataQualityWarning struct {
	RuleID  uuid.UUID
	Issue   enums.DataQualityIssue
	Message string
}

// CandidateQuery narrows the store lookup for a single resolution. Stores may
// return a superset; every eligibility check runs again in the resolver.
type CandidateQuery struct {
	ClientID          uuid.UUID
	ProductID         uuid.UUID
	CategoryName      string
	IncludeClientWide bool
}

// RuleSource is the read side of the override rule store.
type RuleSource interface {
	ListCandidates(ctx context.Context, query CandidateQuery) ([]models.OverrideRule, error)
	ListActiveByClient(ctx context.Context, clientID uuid.UUID) ([]models.OverrideRule, error)
}
