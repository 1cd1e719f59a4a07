package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/partsdesk/pricing-backend/pkg/db/models"
	"github.com/partsdesk/pricing-backend/pkg/enums"
	pkgerrors "github.com/partsdesk/pricing-backend/pkg/errors"
	"github.com/partsdesk/pricing-backend/pkg/logger"
	"github.com/partsdesk/pricing-backend/pkg/metrics"
)

var tracer = otel.Tracer("github.com/partsdesk/pricing-backend/internal/pricing")

// Config tunes resolver behavior.
type Config struct {
	// AllowClientWide lets rules with neither product nor category apply to
	// every product of the client, below category rules.
	AllowClientWide bool
	// Clock supplies asOf when a request leaves it zero. Defaults to time.Now.
	Clock func() time.Time
}

// Resolver picks the override rule that prices a request. It holds no mutable
// state and is safe for concurrent use.
type Resolver struct {
	rules           RuleSource
	logg            *logger.Logger
	metrics         *metrics.PricingMetrics
	allowClientWide bool
	now             func() time.Time
}

// NewResolver wires a resolver over the provided rule source.
func NewResolver(rules RuleSource, logg *logger.Logger, pm *metrics.PricingMetrics, cfg Config) (*Resolver, error) {
	if rules == nil {
		return nil, fmt.Errorf("rule source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Resolver{
		rules:           rules,
		logg:            logg,
		metrics:         pm,
		allowClientWide: cfg.AllowClientWide,
		now:             clock,
	}, nil
}

// Resolve prices a single request. Finding no rule is not an error: the result
// falls back to list price. A store failure is returned as CodeDependency and
// never downgraded to list price.
func (r *Resolver) Resolve(ctx context.Context, req PricingRequest) (*PricingResult, error) {
	started := time.Now()
	defer func() { r.metrics.ObserveDuration(time.Since(started)) }()

	ctx, span := tracer.Start(ctx, "pricing.Resolve",
		trace.WithAttributes(
			attribute.String("client_id", req.ClientID.String()),
			attribute.String("product_id", req.ProductID.String()),
		),
	)
	defer span.End()

	if err := validateRequest(req, ""); err != nil {
		span.SetStatus(codes.Error, "invalid pricing request")
		return nil, err
	}
	asOf := r.asOf(req.AsOf)

	rules, err := r.rules.ListCandidates(ctx, CandidateQuery{
		ClientID:          req.ClientID,
		ProductID:         req.ProductID,
		CategoryName:      models.CategoryKey(req.CategoryName),
		IncludeClientWide: r.allowClientWide,
	})
	if err != nil {
		return nil, r.storeFailure(ctx, span, req.ClientID, err)
	}

	result := r.decide(ctx, req, asOf, rules)
	annotate(span, result)
	return result, nil
}

// ResolveMany prices several lines for one client from a single read of the
// client's active rules. Each line is decided exactly as Resolve would.
func (r *Resolver) ResolveMany(ctx context.Context, clientID uuid.UUID, asOf time.Time, lines []PricingLine) ([]PricingResult, error) {
	started := time.Now()
	defer func() { r.metrics.ObserveDuration(time.Since(started)) }()

	ctx, span := tracer.Start(ctx, "pricing.ResolveMany",
		trace.WithAttributes(
			attribute.String("client_id", clientID.String()),
			attribute.Int("lines", len(lines)),
		),
	)
	defer span.End()

	if clientID == uuid.Nil {
		span.SetStatus(codes.Error, "invalid pricing request")
		return nil, pkgerrors.Validation("client_id", "client_id is required")
	}
	if len(lines) == 0 {
		span.SetStatus(codes.Error, "invalid pricing request")
		return nil, pkgerrors.Validation("lines", "at least one line is required")
	}

	requests := make([]PricingRequest, len(lines))
	for i, line := range lines {
		requests[i] = PricingRequest{
			ClientID:     clientID,
			ProductID:    line.ProductID,
			CategoryName: line.CategoryName,
			Quantity:     line.Quantity,
			ListPrice:    line.ListPrice,
		}
		if err := validateRequest(requests[i], fmt.Sprintf("lines[%d].", i)); err != nil {
			span.SetStatus(codes.Error, "invalid pricing request")
			return nil, err
		}
	}
	at := r.asOf(asOf)

	rules, err := r.rules.ListActiveByClient(ctx, clientID)
	if err != nil {
		return nil, r.storeFailure(ctx, span, clientID, err)
	}

	results := make([]PricingResult, len(requests))
	for i, req := range requests {
		results[i] = *r.decide(ctx, req, at, rules)
	}
	return results, nil
}

func (r *Resolver) asOf(requested time.Time) time.Time {
	if requested.IsZero() {
		return r.now().UTC()
	}
	return requested.UTC()
}

// decide filters, ranks and prices. Rules that rank first but cannot price are
// reported as warnings and the next rule is tried.
func (r *Resolver) decide(ctx context.Context, req PricingRequest, asOf time.Time, rules []models.OverrideRule) *PricingResult {
	listPrice := req.ListPrice.Decimal
	result := &PricingResult{
		ProductID: req.ProductID,
		UnitPrice: listPrice,
		ListPrice: listPrice,
		Source:    enums.PriceSourceList,
		AsOf:      asOf,
	}

	candidates := filterEligible(rules, req, asOf, r.allowClientWide)
	rank(candidates)

	for _, rule := range candidates {
		price, warning := priceWithRule(rule, listPrice)
		if warning != nil {
			r.reportWarning(ctx, req, *warning)
			result.Warnings = append(result.Warnings, *warning)
			continue
		}

		ruleID := rule.ID
		result.UnitPrice = price.unit
		result.AppliedRuleID = &ruleID
		result.DiscountPercent = price.discountPercent
		result.FixedPrice = price.fixed
		result.MinimumQuantity = decimal.NullDecimal{Decimal: rule.MinimumQuantity, Valid: true}
		result.Scope = rule.Scope()
		result.Source = enums.PriceSourceOverride
		break
	}

	r.metrics.IncResolution(result.Source.String())
	return result
}

func (r *Resolver) reportWarning(ctx context.Context, req PricingRequest, w DataQualityWarning) {
	r.metrics.IncDataQualityWarning(w.Issue.String())
	ctx = r.logg.WithClientID(ctx, req.ClientID.String())
	ctx = r.logg.WithRuleID(ctx, w.RuleID.String())
	ctx = r.logg.WithFields(ctx, map[string]any{
		"issue":      w.Issue.String(),
		"product_id": req.ProductID.String(),
		"detail":     w.Message,
	})
	r.logg.Warn(ctx, "pricing.data_quality")
}

func (r *Resolver) storeFailure(ctx context.Context, span trace.Span, clientID uuid.UUID, err error) error {
	r.metrics.IncStoreError()
	span.RecordError(err)
	span.SetStatus(codes.Error, "override rule store unavailable")
	ctx = r.logg.WithClientID(ctx, clientID.String())
	r.logg.Error(ctx, "pricing.store_unavailable", err)
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "override rule store unavailable")
}

func annotate(span trace.Span, result *PricingResult) {
	attrs := []attribute.KeyValue{
		attribute.String("source", result.Source.String()),
		attribute.Int("warnings", len(result.Warnings)),
	}
	if result.AppliedRuleID != nil {
		attrs = append(attrs, attribute.String("applied_rule_id", result.AppliedRuleID.String()))
	}
	span.SetAttributes(attrs...)
}
