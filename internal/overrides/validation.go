package overrides

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/partsdesk/pricing-backend/pkg/db/models"
	pkgerrors "github.com/partsdesk/pricing-backend/pkg/errors"
)

var (
	hundred     = decimal.NewFromInt(100)
	fixedMax    = decimal.RequireFromString("9999999999.99")
	quantityMax = decimal.RequireFromString("999999999.999")
)

type fieldError struct {
	field   string
	message string
}

func (e fieldError) Error() string {
	return e.field + ": " + e.message
}

// validateRule checks a rule about to be written. Every problem is reported;
// the first one also lands in details.field.
func validateRule(rule models.OverrideRule, allowClientWide bool) error {
	var errs error
	add := func(field, message string) {
		errs = multierr.Append(errs, fieldError{field: field, message: message})
	}

	if rule.ClientID == uuid.Nil {
		add("client_id", "client_id is required")
	}

	hasProduct := rule.ProductID != nil
	hasCategory := rule.CategoryName != nil
	switch {
	case hasProduct && hasCategory:
		add("category_name", "set product_id or category_name, not both")
	case hasCategory && strings.TrimSpace(*rule.CategoryName) == "":
		add("category_name", "category_name cannot be blank")
	case !hasProduct && !hasCategory && !allowClientWide:
		add("product_id", "product_id or category_name is required")
	}
	if hasProduct && *rule.ProductID == uuid.Nil {
		add("product_id", "product_id cannot be the nil uuid")
	}

	hasPercent := rule.DiscountPercent.Valid
	hasFixed := rule.FixedPrice.Valid
	switch {
	case !hasPercent && !hasFixed:
		add("discount_percent", "discount_percent or fixed_price is required")
	case hasPercent && hasFixed:
		add("fixed_price", "set discount_percent or fixed_price, not both")
	}
	if hasPercent {
		p := rule.DiscountPercent.Decimal
		if p.IsNegative() || p.GreaterThan(hundred) {
			add("discount_percent", "discount_percent must be between 0 and 100")
		} else if !p.Equal(p.Round(2)) {
			add("discount_percent", "discount_percent allows two decimal places")
		}
	}
	if hasFixed {
		f := rule.FixedPrice.Decimal
		if f.IsNegative() {
			add("fixed_price", "fixed_price cannot be negative")
		} else if f.GreaterThan(fixedMax) || !f.Equal(f.Round(2)) {
			add("fixed_price", "fixed_price must fit numeric(12,2)")
		}
	}

	q := rule.MinimumQuantity
	if !q.IsPositive() {
		add("minimum_quantity", "minimum_quantity must be greater than zero")
	} else if q.GreaterThan(quantityMax) || !q.Equal(q.Round(3)) {
		add("minimum_quantity", "minimum_quantity must fit numeric(12,3)")
	}

	if rule.ValidFrom.IsZero() {
		add("valid_from", "valid_from is required")
	}
	if rule.ValidUntil != nil && rule.ValidUntil.Before(rule.ValidFrom) {
		add("valid_until", "valid_until cannot be before valid_from")
	}

	return toValidationError(errs)
}

func toValidationError(errs error) error {
	list := multierr.Errors(errs)
	if len(list) == 0 {
		return nil
	}
	fields := make(map[string]string, len(list))
	first := ""
	firstMsg := ""
	for _, err := range list {
		fe, ok := err.(fieldError)
		if !ok {
			continue
		}
		if first == "" {
			first, firstMsg = fe.field, fe.message
		}
		if _, seen := fields[fe.field]; !seen {
			fields[fe.field] = fe.message
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, firstMsg).WithDetails(map[string]any{
		"field":  first,
		"fields": fields,
	})
}

// normalizeCategory trims the category; a blank value is kept so validation
// can reject it.
func normalizeCategory(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
