package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partsdesk/pricing-backend/api/middleware"
	"github.com/partsdesk/pricing-backend/api/responses"
	"github.com/partsdesk/pricing-backend/api/validators"
	"github.com/partsdesk/pricing-backend/internal/overrides"
	pkgerrors "github.com/partsdesk/pricing-backend/pkg/errors"
	"github.com/partsdesk/pricing-backend/pkg/logger"
	"github.com/partsdesk/pricing-backend/pkg/pagination"
	"github.com/partsdesk/pricing-backend/pkg/types"
)

const maxCategoryFilterLength = 120

type overrideCreateRequest struct {
	ProductID       *string             `json:"product_id" validate:"omitempty,uuid"`
	CategoryName    *string             `json:"category_name"`
	DiscountPercent decimal.NullDecimal `json:"discount_percent"`
	FixedPrice      decimal.NullDecimal `json:"fixed_price"`
	MinimumQuantity *decimal.Decimal    `json:"minimum_quantity"`
	ValidFrom       *time.Time          `json:"valid_from"`
	ValidUntil      *time.Time          `json:"valid_until"`
	IsActive        *bool               `json:"is_active"`
	Priority        int                 `json:"priority"`
	Notes           *string             `json:"notes"`
}

func (r overrideCreateRequest) toInput(clientID uuid.UUID) overrides.CreateInput {
	input := overrides.CreateInput{
		ClientID:        clientID,
		CategoryName:    r.CategoryName,
		DiscountPercent: r.DiscountPercent,
		FixedPrice:      r.FixedPrice,
		MinimumQuantity: r.MinimumQuantity,
		ValidFrom:       r.ValidFrom,
		ValidUntil:      r.ValidUntil,
		IsActive:        r.IsActive,
		Priority:        r.Priority,
		Notes:           r.Notes,
	}
	if r.ProductID != nil {
		id := uuid.MustParse(strings.TrimSpace(*r.ProductID))
		input.ProductID = &id
	}
	return input
}

type overrideUpdateRequest struct {
	Version         int                             `json:"version" validate:"required,gt=0"`
	ProductID       types.Nullable[uuid.UUID]       `json:"product_id"`
	CategoryName    types.Nullable[string]          `json:"category_name"`
	DiscountPercent types.Nullable[decimal.Decimal] `json:"discount_percent"`
	FixedPrice      types.Nullable[decimal.Decimal] `json:"fixed_price"`
	MinimumQuantity *decimal.Decimal                `json:"minimum_quantity"`
	ValidFrom       *time.Time                      `json:"valid_from"`
	ValidUntil      types.Nullable[time.Time]       `json:"valid_until"`
	Priority        *int                            `json:"priority"`
	Notes           types.Nullable[string]          `json:"notes"`
}

func (r overrideUpdateRequest) toInput() overrides.UpdateInput {
	return overrides.UpdateInput{
		Version:         r.Version,
		ProductID:       r.ProductID,
		CategoryName:    r.CategoryName,
		DiscountPercent: r.DiscountPercent,
		FixedPrice:      r.FixedPrice,
		MinimumQuantity: r.MinimumQuantity,
		ValidFrom:       r.ValidFrom,
		ValidUntil:      r.ValidUntil,
		Priority:        r.Priority,
		Notes:           r.Notes,
	}
}

type overrideVersionRequest struct {
	Version int `json:"version" validate:"required,gt=0"`
}

// OverrideList returns a client's rules newest first, cursor paginated.
func OverrideList(svc overrides.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "override service unavailable"))
			return
		}

		clientID, err := validators.ParseURLUUID(r, "clientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := validators.ParseQueryBool(r, "active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseQueryUUID(r, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), overrides.ListParams{
			ClientID:  clientID,
			Active:    active,
			ProductID: productID,
			Category:  validators.SanitizeString(r.URL.Query().Get("category"), maxCategoryFilterLength),
			Params: pagination.Params{
				Limit:  limit,
				Cursor: r.URL.Query().Get("cursor"),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// OverrideCreate stores a new rule for the client in the path.
func OverrideCreate(svc overrides.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "override service unavailable"))
			return
		}

		clientID, err := validators.ParseURLUUID(r, "clientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload overrideCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), middleware.ActorIDFromContext(r.Context()), payload.toInput(clientID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteCreated(w, overrides.NewRuleDTO(*created))
	}
}

// OverrideGet returns one rule by id.
func OverrideGet(svc overrides.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "override service unavailable"))
			return
		}

		ruleID, err := validators.ParseURLUUID(r, "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.Get(r.Context(), ruleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, overrides.NewRuleDTO(*rule))
	}
}

// OverrideUpdate applies a partial update at the caller's version.
func OverrideUpdate(svc overrides.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "override service unavailable"))
			return
		}

		ruleID, err := validators.ParseURLUUID(r, "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload overrideUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), middleware.ActorIDFromContext(r.Context()), ruleID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, overrides.NewRuleDTO(*updated))
	}
}

// OverrideSetActive soft-enables or soft-disables a rule.
func OverrideSetActive(svc overrides.Service, active bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "override service unavailable"))
			return
		}

		ruleID, err := validators.ParseURLUUID(r, "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload overrideVersionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.SetActive(r.Context(), middleware.ActorIDFromContext(r.Context()), ruleID, payload.Version, active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, overrides.NewRuleDTO(*rule))
	}
}
