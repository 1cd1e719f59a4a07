package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partsdesk/pricing-backend/api/responses"
	"github.com/partsdesk/pricing-backend/api/validators"
	"github.com/partsdesk/pricing-backend/internal/pricing"
	"github.com/partsdesk/pricing-backend/pkg/config"
	"github.com/partsdesk/pricing-backend/pkg/enums"
	pkgerrors "github.com/partsdesk/pricing-backend/pkg/errors"
	"github.com/partsdesk/pricing-backend/pkg/logger"
)

// PriceResolver is the pricing surface the HTTP layer depends on.
type PriceResolver interface {
	Resolve(ctx context.Context, req pricing.PricingRequest) (*pricing.PricingResult, error)
	ResolveMany(ctx context.Context, clientID uuid.UUID, asOf time.Time, lines []pricing.PricingLine) ([]pricing.PricingResult, error)
}

type pricingResolveRequest struct {
	ClientID     string              `json:"client_id" validate:"required,uuid"`
	ProductID    string              `json:"product_id" validate:"required,uuid"`
	CategoryName string              `json:"category_name"`
	Quantity     decimal.Decimal     `json:"quantity"`
	ListPrice    decimal.NullDecimal `json:"list_price"`
	AsOf         *time.Time          `json:"as_of"`
}

func (r pricingResolveRequest) toRequest() pricing.PricingRequest {
	req := pricing.PricingRequest{
		ClientID:     uuid.MustParse(strings.TrimSpace(r.ClientID)),
		ProductID:    uuid.MustParse(strings.TrimSpace(r.ProductID)),
		CategoryName: r.CategoryName,
		Quantity:     r.Quantity,
		ListPrice:    r.ListPrice,
	}
	if r.AsOf != nil {
		req.AsOf = *r.AsOf
	}
	return req
}

type pricingQuoteLine struct {
	ProductID    string              `json:"product_id" validate:"required,uuid"`
	CategoryName string              `json:"category_name"`
	Quantity     decimal.Decimal     `json:"quantity"`
	ListPrice    decimal.NullDecimal `json:"list_price"`
}

type pricingQuoteRequest struct {
	ClientID string             `json:"client_id" validate:"required,uuid"`
	AsOf     *time.Time         `json:"as_of"`
	Lines    []pricingQuoteLine `json:"lines" validate:"required,min=1,dive"`
}

func (r pricingQuoteRequest) toLines() []pricing.PricingLine {
	lines := make([]pricing.PricingLine, len(r.Lines))
	for i, line := range r.Lines {
		lines[i] = pricing.PricingLine{
			ProductID:    uuid.MustParse(strings.TrimSpace(line.ProductID)),
			CategoryName: line.CategoryName,
			Quantity:     line.Quantity,
			ListPrice:    line.ListPrice,
		}
	}
	return lines
}

type pricingWarningResponse struct {
	RuleID  uuid.UUID              `json:"rule_id"`
	Issue   enums.DataQualityIssue `json:"issue"`
	Message string                 `json:"message"`
}

type pricingResultResponse struct {
	ProductID       uuid.UUID                `json:"product_id"`
	UnitPrice       decimal.Decimal          `json:"unit_price"`
	ListPrice       decimal.Decimal          `json:"list_price"`
	Source          enums.PriceSource        `json:"source"`
	AppliedRuleID   *uuid.UUID               `json:"applied_rule_id"`
	Scope           *enums.RuleScope         `json:"scope"`
	DiscountPercent decimal.NullDecimal      `json:"discount_percent"`
	FixedPrice      bool                     `json:"fixed_price"`
	MinimumQuantity decimal.NullDecimal      `json:"minimum_quantity"`
	AsOf            time.Time                `json:"as_of"`
	Warnings        []pricingWarningResponse `json:"warnings"`
}

func pricingResultFromDomain(res pricing.PricingResult) pricingResultResponse {
	out := pricingResultResponse{
		ProductID:       res.ProductID,
		UnitPrice:       res.UnitPrice,
		ListPrice:       res.ListPrice,
		Source:          res.Source,
		AppliedRuleID:   res.AppliedRuleID,
		DiscountPercent: res.DiscountPercent,
		FixedPrice:      res.FixedPrice,
		MinimumQuantity: res.MinimumQuantity,
		AsOf:            res.AsOf,
		Warnings:        make([]pricingWarningResponse, 0, len(res.Warnings)),
	}
	if res.Scope != "" {
		scope := res.Scope
		out.Scope = &scope
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, pricingWarningResponse{
			RuleID:  w.RuleID,
			Issue:   w.Issue,
			Message: w.Message,
		})
	}
	return out
}

type pricingQuoteResponse struct {
	ClientID uuid.UUID               `json:"client_id"`
	Lines    []pricingResultResponse `json:"lines"`
}

// PricingResolve prices one product for one client.
func PricingResolve(resolver PriceResolver, cfg config.PricingConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resolver == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing resolver unavailable"))
			return
		}

		var payload pricingResolveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx, cancel := withStoreTimeout(r.Context(), cfg.StoreTimeout)
		defer cancel()

		result, err := resolver.Resolve(ctx, payload.toRequest())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, pricingResultFromDomain(*result))
	}
}

// PricingQuote prices every line of a quote for one client from a single
// read of the client's rules.
func PricingQuote(resolver PriceResolver, cfg config.PricingConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resolver == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing resolver unavailable"))
			return
		}

		var payload pricingQuoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if cfg.MaxQuoteLines > 0 && len(payload.Lines) > cfg.MaxQuoteLines {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation("lines", fmt.Sprintf("a quote may carry at most %d lines", cfg.MaxQuoteLines)))
			return
		}

		var asOf time.Time
		if payload.AsOf != nil {
			asOf = *payload.AsOf
		}
		clientID := uuid.MustParse(strings.TrimSpace(payload.ClientID))

		ctx, cancel := withStoreTimeout(r.Context(), cfg.StoreTimeout)
		defer cancel()

		results, err := resolver.ResolveMany(ctx, clientID, asOf, payload.toLines())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := pricingQuoteResponse{
			ClientID: clientID,
			Lines:    make([]pricingResultResponse, 0, len(results)),
		}
		for _, res := range results {
			resp.Lines = append(resp.Lines, pricingResultFromDomain(res))
		}
		responses.WriteSuccess(w, resp)
	}
}

func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
