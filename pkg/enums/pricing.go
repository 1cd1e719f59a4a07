package enums

// PriceSource reports where a resolved unit price came from.
type PriceSource string

const (
	PriceSourceOverride PriceSource = "override"
	PriceSourceList     PriceSource = "list"
)

func (p PriceSource) String() string { return string(p) }

func (p PriceSource) IsValid() bool {
	return p == PriceSourceOverride || p == PriceSourceList
}

// RuleScope is the specificity tier of an override rule.
type RuleScope string

const (
	RuleScopeProduct  RuleScope = "product"
	RuleScopeCategory RuleScope = "category"
	RuleScopeClient   RuleScope = "client"
)

// scopeRanks doubles as the set of known scopes.
var scopeRanks = map[RuleScope]int{
	RuleScopeProduct:  3,
	RuleScopeCategory: 2,
	RuleScopeClient:   1,
}

func (s RuleScope) String() string { return string(s) }

func (s RuleScope) IsValid() bool {
	_, ok := scopeRanks[s]
	return ok
}

// Rank orders scopes by specificity. Unknown scopes rank 0.
func (s RuleScope) Rank() int { return scopeRanks[s] }

func ParseRuleScope(value string) (RuleScope, error) {
	return parse("rule scope", value, []RuleScope{RuleScopeProduct, RuleScopeCategory, RuleScopeClient})
}

// DataQualityIssue classifies a matched rule that could not produce a price.
type DataQualityIssue string

const (
	IssueNoPricingMode           DataQualityIssue = "no_pricing_mode"
	IssueInvalidDiscountPercent  DataQualityIssue = "invalid_discount_percent"
	IssueInvalidFixedPrice       DataQualityIssue = "invalid_fixed_price"
	IssueInconsistentPricingMode DataQualityIssue = "inconsistent_pricing_modes"
)

var dataQualityIssues = []DataQualityIssue{
	IssueNoPricingMode,
	IssueInvalidDiscountPercent,
	IssueInvalidFixedPrice,
	IssueInconsistentPricingMode,
}

func (i DataQualityIssue) String() string { return string(i) }

func (i DataQualityIssue) IsValid() bool { return known(i, dataQualityIssues) }
