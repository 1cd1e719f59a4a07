package controllers

import (
	"net/http"
	"time"

	"github.com/partsdesk/pricing-backend/api/responses"
	"github.com/partsdesk/pricing-backend/api/validators"
	"github.com/partsdesk/pricing-backend/internal/overrides"
	"github.com/partsdesk/pricing-backend/pkg/db/models"
	pkgerrors "github.com/partsdesk/pricing-backend/pkg/errors"
	"github.com/partsdesk/pricing-backend/pkg/logger"
)

const (
	defaultPendingSyncPage = 100
	maxPendingSyncPage     = 500
)

type syncReportRequest struct {
	Version     int        `json:"version" validate:"required,gt=0"`
	SagePriceID *string    `json:"sage_price_id"`
	Error       *string    `json:"error"`
	SyncedAt    *time.Time `json:"synced_at"`
}

type pendingSyncResponse struct {
	Items []overrides.RuleDTO `json:"items"`
}

// AdminPendingSync lists rules the ERP has not acknowledged, oldest change first.
func AdminPendingSync(svc overrides.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "override service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultPendingSyncPage, 1, maxPendingSyncPage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListPendingSync(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, pendingSyncResponse{Items: overrides.NewRuleDTOs(rows)})
	}
}

// AdminSyncReport records the ERP outcome for one rule. Exactly one of
// sage_price_id or error must be present.
func AdminSyncReport(svc overrides.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload syncReportRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var at time.Time
		if payload.SyncedAt != nil {
			at = *payload.SyncedAt
		}

		var rule *models.OverrideRule
		switch {
		case payload.SagePriceID != nil && payload.Error != nil:
			err = pkgerrors.Validation("error", "send either sage_price_id or error, not both")
		case payload.SagePriceID != nil:
			rule, err = svc.RecordSyncSuccess(r.Context(), ruleID, payload.Version, *payload.SagePriceID, at)
		case payload.Error != nil:
			rule, err = svc.RecordSyncFailure(r.Context(), ruleID, payload.Version, *payload.Error, at)
		default:
			err = pkgerrors.Validation("sage_price_id", "sage_price_id or error is required")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, overrides.NewRuleDTO(*rule))
	}
}
