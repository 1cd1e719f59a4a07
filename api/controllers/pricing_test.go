package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsdesk/pricing-backend/internal/pricing"
	"github.com/partsdesk/pricing-backend/pkg/config"
	"github.com/partsdesk/pricing-backend/pkg/enums"
	pkgerrors "github.com/partsdesk/pricing-backend/pkg/errors"
)

type stubResolver struct {
	gotReq      pricing.PricingRequest
	gotClient   uuid.UUID
	gotLines    []pricing.PricingLine
	hadDeadline bool
	result      *pricing.PricingResult
	results     []pricing.PricingResult
	err         error
}

func (s *stubResolver) Resolve(ctx context.Context, req pricing.PricingRequest) (*pricing.PricingResult, error) {
	s.gotReq = req
	_, s.hadDeadline = ctx.Deadline()
	return s.result, s.err
}

func (s *stubResolver) ResolveMany(ctx context.Context, clientID uuid.UUID, _ time.Time, lines []pricing.PricingLine) ([]pricing.PricingResult, error) {
	s.gotClient = clientID
	s.gotLines = lines
	_, s.hadDeadline = ctx.Deadline()
	return s.results, s.err
}

func TestPricingResolveReturnsOverride(t *testing.T) {
	clientID, productID, ruleID := uuid.New(), uuid.New(), uuid.New()
	resolver := &stubResolver{result: &pricing.PricingResult{
		ProductID:       productID,
		UnitPrice:       decimal.RequireFromString("90.00"),
		ListPrice:       decimal.RequireFromString("100.00"),
		AppliedRuleID:   &ruleID,
		DiscountPercent: decimal.NewNullDecimal(decimal.NewFromInt(10)),
		MinimumQuantity: decimal.NewNullDecimal(decimal.NewFromInt(1)),
		Scope:           enums.RuleScopeProduct,
		Source:          enums.PriceSourceOverride,
	}}
	handler := PricingResolve(resolver, config.PricingConfig{StoreTimeout: time.Second}, nil)

	body := `{"client_id":"` + clientID.String() + `","product_id":"` + productID.String() + `","category_name":"Brakes","quantity":"5","list_price":"100.00"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/pricing/resolve", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resolver.hadDeadline)
	assert.Equal(t, clientID, resolver.gotReq.ClientID)
	assert.Equal(t, "Brakes", resolver.gotReq.CategoryName)
	assert.True(t, resolver.gotReq.Quantity.Equal(decimal.NewFromInt(5)))
	assert.True(t, resolver.gotReq.ListPrice.Valid)

	var envelope struct {
		Data struct {
			UnitPrice     string     `json:"unit_price"`
			Source        string     `json:"source"`
			AppliedRuleID *uuid.UUID `json:"applied_rule_id"`
			Scope         *string    `json:"scope"`
			Warnings      []any      `json:"warnings"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "90", envelope.Data.UnitPrice)
	assert.Equal(t, "override", envelope.Data.Source)
	require.NotNil(t, envelope.Data.AppliedRuleID)
	assert.Equal(t, ruleID, *envelope.Data.AppliedRuleID)
	require.NotNil(t, envelope.Data.Scope)
	assert.Equal(t, "product", *envelope.Data.Scope)
	assert.NotNil(t, envelope.Data.Warnings)
}

func TestPricingResolveRejectsBadClientID(t *testing.T) {
	resolver := &stubResolver{}
	handler := PricingResolve(resolver, config.PricingConfig{}, nil)

	body := `{"client_id":"C-42","product_id":"` + uuid.NewString() + `","quantity":"1","list_price":"1"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/pricing/resolve", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"client_id"`)
}

func TestPricingResolveSurfacesStoreFailure(t *testing.T) {
	resolver := &stubResolver{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("timeout"), "override rule store unavailable")}
	handler := PricingResolve(resolver, config.PricingConfig{}, nil)

	body := `{"client_id":"` + uuid.NewString() + `","product_id":"` + uuid.NewString() + `","quantity":"1","list_price":"10"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/pricing/resolve", strings.NewReader(body)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, resolver.hadDeadline)
}

func TestPricingQuotePricesEveryLine(t *testing.T) {
	clientID := uuid.New()
	first, second := uuid.New(), uuid.New()
	resolver := &stubResolver{results: []pricing.PricingResult{
		{ProductID: first, UnitPrice: decimal.NewFromInt(10), ListPrice: decimal.NewFromInt(10), Source: enums.PriceSourceList},
		{ProductID: second, UnitPrice: decimal.NewFromInt(4), ListPrice: decimal.NewFromInt(5), Source: enums.PriceSourceOverride},
	}}
	handler := PricingQuote(resolver, config.PricingConfig{MaxQuoteLines: 10}, nil)

	body := `{"client_id":"` + clientID.String() + `","lines":[` +
		`{"product_id":"` + first.String() + `","quantity":"1","list_price":"10"},` +
		`{"product_id":"` + second.String() + `","category_name":"Filters","quantity":"12","list_price":"5"}]}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, clientID, resolver.gotClient)
	require.Len(t, resolver.gotLines, 2)
	assert.Equal(t, "Filters", resolver.gotLines[1].CategoryName)

	var envelope struct {
		Data struct {
			Lines []struct {
				ProductID uuid.UUID `json:"product_id"`
				Source    string    `json:"source"`
			} `json:"lines"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Len(t, envelope.Data.Lines, 2)
	assert.Equal(t, second, envelope.Data.Lines[1].ProductID)
	assert.Equal(t, "override", envelope.Data.Lines[1].Source)
}

func TestPricingQuoteEnforcesLineCap(t *testing.T) {
	resolver := &stubResolver{}
	handler := PricingQuote(resolver, config.PricingConfig{MaxQuoteLines: 1}, nil)

	line := `{"product_id":"` + uuid.NewString() + `","quantity":"1","list_price":"1"}`
	body := `{"client_id":"` + uuid.NewString() + `","lines":[` + line + `,` + line + `]}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"lines"`)
	assert.Nil(t, resolver.gotLines)
}

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}
