package pricing

import (
	"time"

	"github.com/partsdesk/pricing-backend/pkg/db/models"
	"github.com/partsdesk/pricing-backend/pkg/enums"
)

// eligible reports whether rule may price req at asOf.
func eligible(rule models.OverrideRule, req PricingRequest, asOf time.Time, allowClientWide bool) bool {
	if rule.ClientID != req.ClientID || !rule.IsActive {
		return false
	}
	if rule.ValidFrom.After(asOf) {
		return false
	}
	if rule.ValidUntil != nil && rule.ValidUntil.Before(asOf) {
		return false
	}
	if rule.MinimumQuantity.GreaterThan(req.Quantity) {
		return false
	}
	return scopeMatches(rule, req, allowClientWide)
}

func scopeMatches(rule models.OverrideRule, req PricingRequest, allowClientWide bool) bool {
	switch rule.Scope() {
	case enums.RuleScopeProduct:
		return *rule.ProductID == req.ProductID
	case enums.RuleScopeCategory:
		category := models.CategoryKey(req.CategoryName)
		return category != "" && models.CategoryKey(*rule.CategoryName) == category
	case enums.RuleScopeClient:
		return allowClientWide
	default:
		return false
	}
}

func filterEligible(rules []models.OverrideRule, req PricingRequest, asOf time.Time, allowClientWide bool) []models.OverrideRule {
	out := make([]models.OverrideRule, 0, len(rules))
	for _, rule := range rules {
		if eligible(rule, req, asOf, allowClientWide) {
			out = append(out, rule)
		}
	}
	return out
}
