package pricing

import (
	"github.com/google/uuid"

	pkgerrors "github.com/partsdesk/pricing-backend/pkg/errors"
)

// validateRequest fails fast on the first malformed field. prefix locates the
// field inside a batch ("lines[2].").
func validateRequest(req PricingRequest, prefix string) error {
	switch {
	case prefix == "" && req.ClientID == uuid.Nil:
		return pkgerrors.Validation("client_id", "client_id is required")
	case req.ProductID == uuid.Nil:
		return pkgerrors.Validation(prefix+"product_id", "product_id is required")
	case !req.Quantity.IsPositive():
		return pkgerrors.Validation(prefix+"quantity", "quantity must be greater than zero")
	case !req.ListPrice.Valid:
		return pkgerrors.Validation(prefix+"list_price", "list_price is required")
	case req.ListPrice.Decimal.IsNegative():
		return pkgerrors.Validation(prefix+"list_price", "list_price cannot be negative")
	}
	return nil
}
