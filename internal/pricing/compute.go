package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/partsdesk/pricing-backend/pkg/db/models"
	"github.com/partsdesk/pricing-backend/pkg/enums"
)

// minorUnits is the currency precision percent-derived prices are rounded to.
const minorUnits = 2

var hundred = decimal.NewFromInt(100)

type rulePrice struct {
	unit            decimal.Decimal
	discountPercent decimal.NullDecimal
	fixed           bool
}

// priceWithRule computes the unit price a rule yields from listPrice. A fixed
// price takes precedence over a percentage. A rule that cannot price returns
// a warning instead.
func priceWithRule(rule models.OverrideRule, listPrice decimal.Decimal) (*rulePrice, *DataQualityWarning) {
	fixedSet := rule.FixedPrice.Valid
	percentSet := rule.DiscountPercent.Valid
	fixedOK := fixedSet && !rule.FixedPrice.Decimal.IsNegative()
	percentOK := percentSet && validPercent(rule.DiscountPercent.Decimal)

	switch {
	case !fixedSet && !percentSet:
		return nil, warn(rule, enums.IssueNoPricingMode, "rule defines neither fixed_price nor discount_percent")
	case fixedSet && percentSet && (!fixedOK || !percentOK):
		return nil, warn(rule, enums.IssueInconsistentPricingMode,
			fmt.Sprintf("rule defines fixed_price %s and discount_percent %s with an out of range value",
				rule.FixedPrice.Decimal, rule.DiscountPercent.Decimal))
	case fixedSet && !fixedOK:
		return nil, warn(rule, enums.IssueInvalidFixedPrice,
			fmt.Sprintf("fixed_price %s is negative", rule.FixedPrice.Decimal))
	case fixedOK:
		return &rulePrice{unit: rule.FixedPrice.Decimal, fixed: true}, nil
	case !percentOK:
		return nil, warn(rule, enums.IssueInvalidDiscountPercent,
			fmt.Sprintf("discount_percent %s is outside [0, 100]", rule.DiscountPercent.Decimal))
	default:
		return &rulePrice{
			unit:            applyPercent(listPrice, rule.DiscountPercent.Decimal),
			discountPercent: rule.DiscountPercent,
		}, nil
	}
}

// applyPercent returns listPrice * (1 - pct/100) rounded half-up to minor units.
func applyPercent(listPrice, pct decimal.Decimal) decimal.Decimal {
	return listPrice.Mul(hundred.Sub(pct)).Shift(-2).Round(minorUnits)
}

func validPercent(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThanOrEqual(hundred)
}

func warn(rule models.OverrideRule, issue enums.DataQualityIssue, msg string) *DataQualityWarning {
	return &DataQualityWarning{RuleID: rule.ID, Issue: issue, Message: msg}
}
