package pricing

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsdesk/pricing-backend/pkg/db/models"
	"github.com/partsdesk/pricing-backend/pkg/enums"
	pkgerrors "github.com/partsdesk/pricing-backend/pkg/errors"
	"github.com/partsdesk/pricing-backend/pkg/logger"
	"github.com/partsdesk/pricing-backend/pkg/metrics"
)

var (
	clientC1  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	clientC2  = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	productP1 = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	productP2 = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
	asOf      = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
)

type stubRuleSource struct {
	rules       []models.OverrideRule
	err         error
	candidateQ  []CandidateQuery
	clientLoads int
}

func (s *stubRuleSource) ListCandidates(_ context.Context, q CandidateQuery) ([]models.OverrideRule, error) {
	s.candidateQ = append(s.candidateQ, q)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.OverrideRule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.ClientID == q.ClientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRuleSource) ListActiveByClient(_ context.Context, clientID uuid.UUID) ([]models.OverrideRule, error) {
	s.clientLoads++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.OverrideRule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.ClientID == clientID && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

type ruleOpt func(*models.OverrideRule)

func newRule(id string, opts ...ruleOpt) models.OverrideRule {
	r := models.OverrideRule{
		ID:              uuid.MustParse(id),
		ClientID:        clientC1,
		MinimumQuantity: decimal.NewFromInt(1),
		ValidFrom:       asOf.Add(-30 * 24 * time.Hour),
		IsActive:        true,
		Version:         1,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func forProduct(id uuid.UUID) ruleOpt {
	return func(r *models.OverrideRule) { r.ProductID = &id }
}

func forCategory(name string) ruleOpt {
	return func(r *models.OverrideRule) { r.CategoryName = &name }
}

func percent(v string) ruleOpt {
	return func(r *models.OverrideRule) {
		r.DiscountPercent = decimal.NullDecimal{Decimal: decimal.RequireFromString(v), Valid: true}
	}
}

func fixed(v string) ruleOpt {
	return func(r *models.OverrideRule) {
		r.FixedPrice = decimal.NullDecimal{Decimal: decimal.RequireFromString(v), Valid: true}
	}
}

func priority(p int) ruleOpt {
	return func(r *models.OverrideRule) { r.Priority = p }
}

func minQty(v string) ruleOpt {
	return func(r *models.OverrideRule) { r.MinimumQuantity = decimal.RequireFromString(v) }
}

func validFrom(t time.Time) ruleOpt {
	return func(r *models.OverrideRule) { r.ValidFrom = t }
}

func validUntil(t time.Time) ruleOpt {
	return func(r *models.OverrideRule) { r.ValidUntil = &t }
}

func inactive() ruleOpt {
	return func(r *models.OverrideRule) { r.IsActive = false }
}

func ownedBy(clientID uuid.UUID) ruleOpt {
	return func(r *models.OverrideRule) { r.ClientID = clientID }
}

func price(v string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(v), Valid: true}
}

func request(qty, listPrice string) PricingRequest {
	return PricingRequest{
		ClientID:     clientC1,
		ProductID:    productP1,
		CategoryName: "Freinage",
		Quantity:     decimal.RequireFromString(qty),
		ListPrice:    price(listPrice),
		AsOf:         asOf,
	}
}

type harness struct {
	resolver *Resolver
	source   *stubRuleSource
	logs     *bytes.Buffer
	registry *prometheus.Registry
}

func newHarness(t *testing.T, rules []models.OverrideRule, cfg Config) *harness {
	t.Helper()
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "pricing-test", Output: buf})
	reg := prometheus.NewRegistry()
	source := &stubRuleSource{rules: rules}
	resolver, err := NewResolver(source, logg, metrics.NewPricingMetrics(reg), cfg)
	require.NoError(t, err)
	return &harness{resolver: resolver, source: source, logs: buf, registry: reg}
}

func requireOverride(t *testing.T, result *PricingResult, ruleID, unit string) {
	t.Helper()
	require.Equal(t, enums.PriceSourceOverride, result.Source)
	require.NotNil(t, result.AppliedRuleID)
	require.Equal(t, uuid.MustParse(ruleID), *result.AppliedRuleID)
	require.True(t, decimal.RequireFromString(unit).Equal(result.UnitPrice),
		"expected unit price %s, got %s", unit, result.UnitPrice)
}

func requireList(t *testing.T, result *PricingResult, unit string) {
	t.Helper()
	require.Equal(t, enums.PriceSourceList, result.Source)
	require.Nil(t, result.AppliedRuleID)
	require.True(t, decimal.RequireFromString(unit).Equal(result.UnitPrice),
		"expected unit price %s, got %s", unit, result.UnitPrice)
}

const (
	ruleA = "00000000-0000-0000-0000-00000000000a"
	ruleB = "00000000-0000-0000-0000-00000000000b"
	ruleC = "00000000-0000-0000-0000-00000000000c"
	ruleD = "00000000-0000-0000-0000-00000000000d"
)

func TestResolveNoRulesFallsBackToListPrice(t *testing.T) {
	h := newHarness(t, nil, Config{})

	result, err := h.resolver.Resolve(context.Background(), request("1", "100"))
	require.NoError(t, err)
	requireList(t, result, "100")
	assert.True(t, decimal.NewFromInt(100).Equal(result.ListPrice))
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.Scope)
}

func TestResolveCategoryDiscount(t *testing.T) {
	h := newHarness(t, []models.OverrideRule{
		newRule(ruleA, forCategory("Freinage"), percent("10")),
	}, Config{})

	result, err := h.resolver.Resolve(context.Background(), request("1", "200"))
	require.NoError(t, err)
	requireOverride(t, result, ruleA, "180.00")
	assert.Equal(t, enums.RuleScopeCategory, result.Scope)
	assert.True(t, result.DiscountPercent.Valid)
	assert.True(t, decimal.NewFromInt(10).Equal(result.DiscountPercent.Decimal))
	assert.False(t, result.FixedPrice)
	assert.Equal(t, "180.00", result.UnitPrice.StringFixed(2))
}

func TestResolveProductScopeBeatsCategoryRegardlessOfPriority(t *testing.T) {
	h := newHarness(t, []models.OverrideRule{
		newRule(ruleA, forCategory("Freinage"), percent("10"), priority(50)),
		newRule(ruleB, forProduct(productP1), fixed("150"), priority(0)),
	}, Config{})

	result, err := h.resolver.Resolve(context.Background(), request("1", "200"))
	require.NoError(t, err)
	requireOverride(t, result, ruleB, "150.00")
	assert.Equal(t, enums.RuleScopeProduct, result.Scope)
	assert.True(t, result.FixedPrice)
	assert.False(t, result.DiscountPercent.Valid)
}

func TestResolveHigherPriorityWinsWithinTier(t *testing.T) {
	h := newHarness(t, []models.OverrideRule{
		newRule(ruleA, forCategory("Freinage"), percent("10"), priority(5)),
		newRule(ruleB, forCategory("Freinage"), percent("20"), priority(8)),
	}, Config{})

	result, err := h.resolver.Resolve(context.Background(), request("1", "200"))
	require.NoError(t, err)
	requireOverride(t, result, ruleB, "160.00")
}

func TestResolveMinimumQuantityGate(t *testing.T) {
	h := newHarness(t, []models.OverrideRule{
		newRule(ruleA, forProduct(productP1), percent("15"), minQty("10")),
	}, Config{})

	result, err := h.resolver.Resolve(context.Background(), request("5", "40"))
	require.NoError(t, err)
	requireList(t, result, "40")

	result, err = h.resolver.Resolve(context.Background(), request("10", "40"))
	require.NoError(t, err)
	requireOverride(t, result, ruleA, "34.00")
	require.True(t, result.MinimumQuantity.Valid)
	assert.True(t, decimal.NewFromInt(10).Equal(result.MinimumQuantity.Decimal))
}

func TestResolveValidityWindow(t *testing.T) {
	yesterday := asOf.Add(-24 * time.Hour)
	tomorrow := asOf.Add(24 * time.Hour)

	tests := []struct {
		name     string
		rule     models.OverrideRule
		eligible bool
	}{
		{name: "expired yesterday", rule: newRule(ruleA, forProduct(productP1), fixed("1"), priority(99), validUntil(yesterday))},
		{name: "starts tomorrow", rule: newRule(ruleA, forProduct(productP1), fixed("1"), validFrom(tomorrow))},
		{name: "starts exactly now", rule: newRule(ruleA, forProduct(productP1), fixed("1"), validFrom(asOf)), eligible: true},
		{name: "ends exactly now", rule: newRule(ruleA, forProduct(productP1), fixed("1"), validUntil(asOf)), eligible: true},
		{name: "open ended", rule: newRule(ruleA, forProduct(productP1), fixed("1")), eligible: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, []models.OverrideRule{tt.rule}, Config{})
			result, err := h.resolver.Resolve(context.Background(), request("1", "25"))
			require.NoError(t, err)
			if tt.eligible {
				requireOverride(t, result, ruleA, "1")
			} else {
				requireList(t, result, "25")
			}
		})
	}
}

func TestResolveExpiredHighestRankedRuleIsSkipped(t *testing.T) {
	h := newHarness(t, []models.OverrideRule{
		newRule(ruleA, forProduct(productP1), fixed("10"), priority(100), validUntil(asOf.Add(-24*time.Hour))),
		newRule(ruleB, forCategory("Freinage"), percent("5")),
	}, Config{})

	result, err := h.resolver.Resolve(context.Background(), request("1", "100"))
	require.NoError(t, err)
	requireOverride(t, result, ruleB, "95.00")
}

func TestResolveFixedPriceTakesPrecedenceOverPercent(t *testing.T) {
	h := newHarness(t, []models.OverrideRule{
		newRule(ruleA, forProduct(productP1), fixed("42.50"), percent("90")),
	}, Config{})

	result, err := h.resolver.Resolve(context.Background(), request("1", "100"))
	require.NoError(t, err)
	requireOverride(t, result, ruleA, "42.50")
	assert.True(t, result.FixedPrice)
}

func TestResolveReturnsFixedPriceUnchanged(t *testing.T) {
	h := newHarness(t, []models.OverrideRule{
		newRule(ruleA, forProduct(productP1), fixed("12.345")),
	}, Config{})

	result, err := h.resolver.Resolve(context.Background(), request("1", "100"))
	require.NoError(t, err)
	requireOverride(t, result, ruleA, "12.345")
	assert.False(t, result.DiscountPercent.Valid)
	assert.Empty(t, result.Warnings)
}

func TestResolveRoundsHalfUpToCents(t *testing.T) {
	tests := []struct {
		list, pct, want string
	}{
		{list: "10.005", pct: "50", want: "5.00"},
		{list: "10.01", pct: "50", want: "5.01"},
		{list: "19.99", pct: "12.5", want: "17.49"},
		{list: "0.05", pct: "10", want: "0.05"},
		{list: "99.99", pct: "100", want: "0.00"},
		{list: "250", pct: "0", want: "250.00"},
	}
	for _, tt := range tests {
		t.Run(tt.list+"x"+tt.pct, func(t *testing.T) {
			h := newHarness(t, []models.OverrideRule{
				newRule(ruleA, forProduct(productP1), percent(tt.pct)),
			}, Config{})
			result, err := h.resolver.Resolve(context.Background(), request("1", tt.list))
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.UnitPrice.StringFixed(2))
		})
	}
}

func TestResolveTieBreaksOnValidFromThenID(t *testing.T) {
	older := asOf.Add(-72 * time.Hour)
	newer := asOf.Add(-1 * time.Hour)

	h := newHarness(t, []models.OverrideRule{
		newRule(ruleA, forCategory("Freinage"), percent("10"), validFrom(older)),
		newRule(ruleB, forCategory("Freinage"), percent("20"), validFrom(newer)),
	}, Config{})
	result, err := h.resolver.Resolve(context.Background(), request("1", "100"))
	require.NoError(t, err)
	requireOverride(t, result, ruleB, "80")

	h = newHarness(t, []models.OverrideRule{
		newRule(ruleD, forCategory("Freinage"), percent("40"), validFrom(newer)),
		newRule(ruleC, forCategory("Freinage"), percent("30"), validFrom(newer)),
	}, Config{})
	result, err = h.resolver.Resolve(context.Background(), request("1", "100"))
	require.NoError(t, err)
	requireOverride(t, result, ruleC, "70")
}

func TestResolveIsDeterministicAcrossInputOrder(t *testing.T) {
	rules := []models.OverrideRule{
		newRule(ruleA, forCategory("Freinage"), percent("10"), priority(3)),
		newRule(ruleB, forCategory("Freinage"), percent("15"), priority(3)),
		newRule(ruleC, forCategory("Freinage"), percent("20"), priority(3)),
		newRule(ruleD, forProduct(productP2), fixed("1")),
	}
	reversed := []models.OverrideRule{rules[3], rules[2], rules[1], rules[0]}

	first := newHarness(t, rules, Config{})
	second := newHarness(t, reversed, Config{})

	a1, err := first.resolver.Resolve(context.Background(), request("2", "80"))
	require.NoError(t, err)
	a2, err := first.resolver.Resolve(context.Background(), request("2", "80"))
	require.NoError(t, err)
	b, err := second.resolver.Resolve(context.Background(), request("2", "80"))
	require.NoError(t, err)

	require.Equal(t, a1, a2)
	require.Equal(t, a1, b)
	requireOverride(t, a1, ruleA, "72")
}

func TestResolveSkipsRuleWithoutPricingModeAndWarns(t *testing.T) {
	h := newHarness(t, []models.OverrideRule{
		newRule(ruleA, forProduct(productP1), priority(10)),
		newRule(ruleB, forCategory("Freinage"), percent("10")),
	}, Config{})

	result, err := h.resolver.Resolve(context.Background(), request("1", "50"))
	require.NoError(t, err)
	requireOverride(t, result, ruleB, "45")
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, uuid.MustParse(ruleA), result.Warnings[0].RuleID)
	assert.Equal(t, enums.IssueNoPricingMode, result.Warnings[0].Issue)

	assert.Contains(t, h.logs.String(), "pricing.data_quality")
	assert.Contains(t, h.logs.String(), ruleA)
	assert.Contains(t, h.logs.String(), `"issue":"no_pricing_mode"`)

	mfs, err := h.registry.Gather()
	require.NoError(t, err)
	var warned float64
	for _, mf := range mfs {
		if mf.GetName() == "pricing_data_quality_warnings_total" {
			warned = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), warned)
}

func TestResolveMalformedOnlyRuleFallsBackToList(t *testing.T) {
	tests := []struct {
		name  string
		rule  models.OverrideRule
		issue enums.DataQualityIssue
	}{
		{name: "neither", rule: newRule(ruleA, forProduct(productP1)), issue: enums.IssueNoPricingMode},
		{name: "percent above range", rule: newRule(ruleA, forProduct(productP1), percent("120")), issue: enums.IssueInvalidDiscountPercent},
		{name: "negative fixed", rule: newRule(ruleA, forProduct(productP1), fixed("-3")), issue: enums.IssueInvalidFixedPrice},
		{name: "inconsistent signs", rule: newRule(ruleA, forProduct(productP1), fixed("-3"), percent("10")), issue: enums.IssueInconsistentPricingMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, []models.OverrideRule{tt.rule}, Config{})
			result, err := h.resolver.Resolve(context.Background(), request("1", "12.34"))
			require.NoError(t, err)
			requireList(t, result, "12.34")
			require.Len(t, result.Warnings, 1)
			assert.Equal(t, tt.issue, result.Warnings[0].Issue)
		})
	}
}

func TestResolveIgnoresInactiveAndForeignRules(t *testing.T) {
	h := newHarness(t, []models.OverrideRule{
		newRule(ruleA, forProduct(productP1), fixed("1"), inactive()),
		newRule(ruleB, forProduct(productP1), fixed("2"), ownedBy(clientC2)),
		newRule(ruleC, forProduct(productP2), fixed("3")),
		newRule(ruleD, forCategory("Suspension"), fixed("4")),
	}, Config{})

	result, err := h.resolver.Resolve(context.Background(), request("1", "9.99"))
	require.NoError(t, err)
	requireList(t, result, "9.99")
}

func TestResolveCategoryMatching(t *testing.T) {
	h := newHarness(t, []models.OverrideRule{
		newRule(ruleA, forCategory(" Freinage "), percent("10")),
	}, Config{})

	req := request("1", "100")
	req.CategoryName = "Freinage  "
	result, err := h.resolver.Resolve(context.Background(), req)
	require.NoError(t, err)
	requireOverride(t, result, ruleA, "90")

	req.CategoryName = ""
	result, err = h.resolver.Resolve(context.Background(), req)
	require.NoError(t, err)
	requireList(t, result, "100")
}

func TestResolveClientWideRules(t *testing.T) {
	rules := []models.OverrideRule{
		newRule(ruleA, percent("5"), priority(100)),
		newRule(ruleB, forCategory("Freinage"), percent("10")),
	}

	h := newHarness(t, rules, Config{AllowClientWide: true})
	result, err := h.resolver.Resolve(context.Background(), request("1", "100"))
	require.NoError(t, err)
	requireOverride(t, result, ruleB, "90")

	req := request("1", "100")
	req.CategoryName = "Suspension"
	result, err = h.resolver.Resolve(context.Background(), req)
	require.NoError(t, err)
	requireOverride(t, result, ruleA, "95")
	assert.Equal(t, enums.RuleScopeClient, result.Scope)
	require.Len(t, h.source.candidateQ, 2)
	assert.True(t, h.source.candidateQ[1].IncludeClientWide)

	h = newHarness(t, rules, Config{AllowClientWide: false})
	result, err = h.resolver.Resolve(context.Background(), req)
	require.NoError(t, err)
	requireList(t, result, "100")
}

func TestResolveValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*PricingRequest)
		field string
	}{
		{name: "missing client", edit: func(r *PricingRequest) { r.ClientID = uuid.Nil }, field: "client_id"},
		{name: "missing product", edit: func(r *PricingRequest) { r.ProductID = uuid.Nil }, field: "product_id"},
		{name: "zero quantity", edit: func(r *PricingRequest) { r.Quantity = decimal.Zero }, field: "quantity"},
		{name: "negative quantity", edit: func(r *PricingRequest) { r.Quantity = decimal.NewFromInt(-2) }, field: "quantity"},
		{name: "absent list price", edit: func(r *PricingRequest) { r.ListPrice = decimal.NullDecimal{} }, field: "list_price"},
		{name: "negative list price", edit: func(r *PricingRequest) { r.ListPrice = price("-0.01") }, field: "list_price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, Config{})
			req := request("1", "10")
			tt.edit(&req)

			result, err := h.resolver.Resolve(context.Background(), req)
			require.Error(t, err)
			require.Nil(t, result)
			require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
			assert.Equal(t, tt.field, pkgerrors.Field(err))
			assert.Empty(t, h.source.candidateQ, "store must not be queried for invalid input")
		})
	}
}

func TestResolveZeroListPriceIsValid(t *testing.T) {
	h := newHarness(t, []models.OverrideRule{
		newRule(ruleA, forProduct(productP1), percent("10")),
	}, Config{})
	result, err := h.resolver.Resolve(context.Background(), request("1", "0"))
	require.NoError(t, err)
	requireOverride(t, result, ruleA, "0")
}

func TestResolveStoreFailureIsNotListPrice(t *testing.T) {
	h := newHarness(t, nil, Config{})
	cause := errors.New("connection refused")
	h.source.err = cause

	result, err := h.resolver.Resolve(context.Background(), request("1", "10"))
	require.Error(t, err)
	require.Nil(t, result)
	require.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
	require.ErrorIs(t, err, cause)
	assert.Contains(t, h.logs.String(), "pricing.store_unavailable")

	_, err = h.resolver.ResolveMany(context.Background(), clientC1, asOf, []PricingLine{
		{ProductID: productP1, Quantity: decimal.NewFromInt(1), ListPrice: price("10")},
	})
	require.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestResolveDefaultsAsOfToClock(t *testing.T) {
	clock := func() time.Time { return asOf.Add(48 * time.Hour) }
	h := newHarness(t, []models.OverrideRule{
		newRule(ruleA, forProduct(productP1), fixed("7"), validFrom(asOf.Add(24*time.Hour))),
	}, Config{Clock: clock})

	req := request("1", "10")
	req.AsOf = time.Time{}
	result, err := h.resolver.Resolve(context.Background(), req)
	require.NoError(t, err)
	requireOverride(t, result, ruleA, "7")
	assert.True(t, clock().Equal(result.AsOf))
}

func TestResolveManyPricesEachLineFromOneSnapshot(t *testing.T) {
	h := newHarness(t, []models.OverrideRule{
		newRule(ruleA, forProduct(productP1), fixed("150")),
		newRule(ruleB, forCategory("Freinage"), percent("10")),
		newRule(ruleC, forCategory("Freinage"), percent("50"), ownedBy(clientC2)),
	}, Config{})

	results, err := h.resolver.ResolveMany(context.Background(), clientC1, asOf, []PricingLine{
		{ProductID: productP1, CategoryName: "Freinage", Quantity: decimal.NewFromInt(1), ListPrice: price("200")},
		{ProductID: productP2, CategoryName: "Freinage", Quantity: decimal.NewFromInt(3), ListPrice: price("200")},
		{ProductID: productP2, CategoryName: "Eclairage", Quantity: decimal.NewFromInt(3), ListPrice: price("12")},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 1, h.source.clientLoads)

	requireOverride(t, &results[0], ruleA, "150")
	requireOverride(t, &results[1], ruleB, "180")
	requireList(t, &results[2], "12")
	assert.Equal(t, productP2, results[2].ProductID)

	single, err := h.resolver.Resolve(context.Background(), PricingRequest{
		ClientID: clientC1, ProductID: productP2, CategoryName: "Freinage",
		Quantity: decimal.NewFromInt(3), ListPrice: price("200"), AsOf: asOf,
	})
	require.NoError(t, err)
	assert.Equal(t, *single, results[1])
}

func TestResolveManyValidation(t *testing.T) {
	h := newHarness(t, nil, Config{})

	_, err := h.resolver.ResolveMany(context.Background(), uuid.Nil, asOf, []PricingLine{{}})
	assert.Equal(t, "client_id", pkgerrors.Field(err))

	_, err = h.resolver.ResolveMany(context.Background(), clientC1, asOf, nil)
	assert.Equal(t, "lines", pkgerrors.Field(err))

	_, err = h.resolver.ResolveMany(context.Background(), clientC1, asOf, []PricingLine{
		{ProductID: productP1, Quantity: decimal.NewFromInt(1), ListPrice: price("1")},
		{ProductID: productP1, Quantity: decimal.Zero, ListPrice: price("1")},
	})
	assert.Equal(t, "lines[1].quantity", pkgerrors.Field(err))
	assert.Equal(t, 0, h.source.clientLoads)
}

func TestNewResolverRequiresCollaborators(t *testing.T) {
	_, err := NewResolver(nil, logger.New(logger.Options{}), nil, Config{})
	require.Error(t, err)
	_, err = NewResolver(&stubRuleSource{}, nil, nil, Config{})
	require.Error(t, err)
}
