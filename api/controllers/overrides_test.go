package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsdesk/pricing-backend/api/middleware"
	"github.com/partsdesk/pricing-backend/internal/overrides"
	"github.com/partsdesk/pricing-backend/pkg/db/models"
	pkgerrors "github.com/partsdesk/pricing-backend/pkg/errors"
)

type stubOverrideService struct {
	rule *models.OverrideRule
	err  error

	actor       *uuid.UUID
	created     overrides.CreateInput
	updated     overrides.UpdateInput
	listParams  overrides.ListParams
	activeArg   *bool
	versionArg  int
	sagePriceID string
	syncError   string
	pendingArg  int
}

func (s *stubOverrideService) Create(_ context.Context, actorID *uuid.UUID, input overrides.CreateInput) (*models.OverrideRule, error) {
	s.actor = actorID
	s.created = input
	return s.rule, s.err
}

func (s *stubOverrideService) Get(_ context.Context, _ uuid.UUID) (*models.OverrideRule, error) {
	return s.rule, s.err
}

func (s *stubOverrideService) List(_ context.Context, params overrides.ListParams) (*overrides.ListResult, error) {
	s.listParams = params
	if s.err != nil {
		return nil, s.err
	}
	return &overrides.ListResult{Items: []overrides.RuleDTO{overrides.NewRuleDTO(*s.rule)}, Cursor: "next"}, nil
}

func (s *stubOverrideService) Update(_ context.Context, actorID *uuid.UUID, _ uuid.UUID, input overrides.UpdateInput) (*models.OverrideRule, error) {
	s.actor = actorID
	s.updated = input
	return s.rule, s.err
}

func (s *stubOverrideService) SetActive(_ context.Context, actorID *uuid.UUID, _ uuid.UUID, version int, active bool) (*models.OverrideRule, error) {
	s.actor = actorID
	s.versionArg = version
	s.activeArg = &active
	return s.rule, s.err
}

func (s *stubOverrideService) ListPendingSync(_ context.Context, limit int) ([]models.OverrideRule, error) {
	s.pendingArg = limit
	if s.err != nil {
		return nil, s.err
	}
	return []models.OverrideRule{*s.rule}, nil
}

func (s *stubOverrideService) RecordSyncSuccess(_ context.Context, _ uuid.UUID, version int, sagePriceID string, _ time.Time) (*models.OverrideRule, error) {
	s.versionArg = version
	s.sagePriceID = sagePriceID
	return s.rule, s.err
}

func (s *stubOverrideService) RecordSyncFailure(_ context.Context, _ uuid.UUID, version int, message string, _ time.Time) (*models.OverrideRule, error) {
	s.versionArg = version
	s.syncError = message
	return s.rule, s.err
}

func (s *stubOverrideService) SyncBacklog(_ context.Context, _ time.Time) (overrides.SyncCounts, error) {
	return overrides.SyncCounts{}, s.err
}

func sampleRule() *models.OverrideRule {
	productID := uuid.New()
	return &models.OverrideRule{
		ID:              uuid.New(),
		ClientID:        uuid.New(),
		ProductID:       &productID,
		DiscountPercent: decimal.NewNullDecimal(decimal.NewFromInt(15)),
		MinimumQuantity: decimal.NewFromInt(1),
		ValidFrom:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		IsActive:        true,
		Version:         2,
	}
}

func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestOverrideCreatePassesActorAndClient(t *testing.T) {
	svc := &stubOverrideService{rule: sampleRule()}
	handler := OverrideCreate(svc, nil)

	clientID, productID, actorID := uuid.New(), uuid.New(), uuid.New()
	body := `{"product_id":"` + productID.String() + `","discount_percent":"12.5","minimum_quantity":"10","priority":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/"+clientID.String()+"/overrides", strings.NewReader(body))
	req = withURLParams(req, map[string]string{"clientId": clientID.String()})
	req = req.WithContext(middleware.WithActorID(req.Context(), actorID))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, svc.actor)
	assert.Equal(t, actorID, *svc.actor)
	assert.Equal(t, clientID, svc.created.ClientID)
	require.NotNil(t, svc.created.ProductID)
	assert.Equal(t, productID, *svc.created.ProductID)
	assert.True(t, svc.created.DiscountPercent.Decimal.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, 3, svc.created.Priority)

	var envelope struct {
		Data overrides.RuleDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, svc.rule.ID, envelope.Data.ID)
	assert.Equal(t, 2, envelope.Data.Version)
}

func TestOverrideCreateRejectsBadClientPath(t *testing.T) {
	handler := OverrideCreate(&stubOverrideService{rule: sampleRule()}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/acme/overrides", strings.NewReader(`{}`))
	req = withURLParams(req, map[string]string{"clientId": "acme"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"clientId"`)
}

func TestOverrideUpdateDistinguishesNullFromOmitted(t *testing.T) {
	svc := &stubOverrideService{rule: sampleRule()}
	handler := OverrideUpdate(svc, nil)

	ruleID := uuid.New()
	body := `{"version":2,"valid_until":null,"fixed_price":"42.00","discount_percent":null}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/overrides/"+ruleID.String(), strings.NewReader(body))
	req = withURLParams(req, map[string]string{"ruleId": ruleID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, svc.updated.Version)
	assert.True(t, svc.updated.ValidUntil.IsNull())
	assert.True(t, svc.updated.DiscountPercent.IsNull())
	require.NotNil(t, svc.updated.FixedPrice.Value)
	assert.True(t, svc.updated.FixedPrice.Value.Equal(decimal.NewFromInt(42)))
	assert.False(t, svc.updated.Notes.Set)
	assert.Nil(t, svc.updated.Priority)
}

func TestOverrideUpdateRequiresVersion(t *testing.T) {
	handler := OverrideUpdate(&stubOverrideService{rule: sampleRule()}, nil)

	ruleID := uuid.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/overrides/"+ruleID.String(), strings.NewReader(`{"priority":5}`))
	req = withURLParams(req, map[string]string{"ruleId": ruleID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"version"`)
}

func TestOverrideUpdateSurfacesConflict(t *testing.T) {
	svc := &stubOverrideService{err: pkgerrors.New(pkgerrors.CodeConflict, "override rule was modified concurrently")}
	handler := OverrideUpdate(svc, nil)

	ruleID := uuid.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/overrides/"+ruleID.String(), strings.NewReader(`{"version":1,"priority":5}`))
	req = withURLParams(req, map[string]string{"ruleId": ruleID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestOverrideSetActive(t *testing.T) {
	svc := &stubOverrideService{rule: sampleRule()}
	handler := OverrideSetActive(svc, false, nil)

	ruleID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/overrides/"+ruleID.String()+"/deactivate", strings.NewReader(`{"version":4}`))
	req = withURLParams(req, map[string]string{"ruleId": ruleID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.activeArg)
	assert.False(t, *svc.activeArg)
	assert.Equal(t, 4, svc.versionArg)
	assert.Nil(t, svc.actor)
}

func TestOverrideGetNotFound(t *testing.T) {
	handler := OverrideGet(&stubOverrideService{err: pkgerrors.New(pkgerrors.CodeNotFound, "override rule not found")}, nil)

	ruleID := uuid.New()
	req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/overrides/"+ruleID.String(), nil), map[string]string{"ruleId": ruleID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "override rule not found")
}

func TestOverrideListParsesFilters(t *testing.T) {
	svc := &stubOverrideService{rule: sampleRule()}
	handler := OverrideList(svc, nil)

	clientID, productID := uuid.New(), uuid.New()
	url := "/api/v1/clients/" + clientID.String() + "/overrides?active=false&product_id=" + productID.String() + "&category=%20Brakes%20&limit=10&cursor=abc"
	req := withURLParams(httptest.NewRequest(http.MethodGet, url, nil), map[string]string{"clientId": clientID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, clientID, svc.listParams.ClientID)
	require.NotNil(t, svc.listParams.Active)
	assert.False(t, *svc.listParams.Active)
	assert.Equal(t, productID, *svc.listParams.ProductID)
	assert.Equal(t, "Brakes", svc.listParams.Category)
	assert.Equal(t, 10, svc.listParams.Limit)
	assert.Equal(t, "abc", svc.listParams.Cursor)
	assert.Contains(t, rec.Body.String(), `"cursor":"next"`)
}

func TestAdminPendingSync(t *testing.T) {
	svc := &stubOverrideService{rule: sampleRule()}
	handler := AdminPendingSync(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/overrides/sync/pending?limit=25", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 25, svc.pendingArg)
	assert.Contains(t, rec.Body.String(), svc.rule.ID.String())
}

func TestAdminSyncReport(t *testing.T) {
	ruleID := uuid.New()
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantPrice  string
		wantError  string
	}{
		{name: "success", body: `{"version":3,"sage_price_id":"SP-100"}`, wantStatus: http.StatusOK, wantPrice: "SP-100"},
		{name: "failure", body: `{"version":3,"error":"customer on hold"}`, wantStatus: http.StatusOK, wantError: "customer on hold"},
		{name: "both", body: `{"version":3,"sage_price_id":"SP-1","error":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "neither", body: `{"version":3}`, wantStatus: http.StatusBadRequest},
		{name: "missing version", body: `{"sage_price_id":"SP-1"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubOverrideService{rule: sampleRule()}
			handler := AdminSyncReport(svc, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/overrides/"+ruleID.String()+"/sync", strings.NewReader(tt.body))
			req = withURLParams(req, map[string]string{"ruleId": ruleID.String()})
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantPrice, svc.sagePriceID)
			assert.Equal(t, tt.wantError, svc.syncError)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, 3, svc.versionArg)
			}
		})
	}
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthReady(t *testing.T) {
	cfg := testConfig()

	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"database": stubPinger{}, "redis": stubPinger{}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"ok"`)

	rec = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"redis": stubPinger{err: context.DeadlineExceeded}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dependency":"redis"`)
}

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthLive(testConfig()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-PartsDesk-Env"))
}
