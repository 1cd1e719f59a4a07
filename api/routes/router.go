package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/partsdesk/pricing-backend/api/controllers"
	"github.com/partsdesk/pricing-backend/api/middleware"
	"github.com/partsdesk/pricing-backend/internal/overrides"
	"github.com/partsdesk/pricing-backend/pkg/config"
	"github.com/partsdesk/pricing-backend/pkg/logger"
	pkgredis "github.com/partsdesk/pricing-backend/pkg/redis"
)

// RedisStore is the redis surface the router needs: idempotency records,
// rate limit counters and the readiness ping.
type RedisStore interface {
	pkgredis.IdempotencyStore
	pkgredis.WindowCounter
	pkgredis.Pinger
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisStore RedisStore,
	resolver controllers.PriceResolver,
	overridesService overrides.Service,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.API.CORSAllowedOrigins),
	)

	deps := map[string]controllers.Pinger{"database": dbP}
	var idempotency func(http.Handler) http.Handler
	var rateLimit func(http.Handler) http.Handler
	if redisStore != nil {
		deps["redis"] = redisStore
		idempotency = middleware.Idempotency(redisStore, cfg.API.IdempotencyTTL, logg)
		rateLimit = middleware.RateLimit(
			middleware.NewRateLimitPolicy("pricing", cfg.API.RateLimitWindow, cfg.API.RateLimitRequests),
			redisStore,
			logg,
		)
	} else {
		idempotency = passThrough
		rateLimit = passThrough
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))

		r.Route("/pricing", func(r chi.Router) {
			r.Use(rateLimit)
			r.Post("/resolve", controllers.PricingResolve(resolver, cfg.Pricing, logg))
			r.Post("/quote", controllers.PricingQuote(resolver, cfg.Pricing, logg))
		})

		r.Route("/clients/{clientId}/overrides", func(r chi.Router) {
			r.Get("/", controllers.OverrideList(overridesService, logg))
			r.With(idempotency).Post("/", controllers.OverrideCreate(overridesService, logg))
		})

		r.Route("/overrides/{ruleId}", func(r chi.Router) {
			r.Get("/", controllers.OverrideGet(overridesService, logg))
			r.Patch("/", controllers.OverrideUpdate(overridesService, logg))
			r.With(idempotency).Post("/activate", controllers.OverrideSetActive(overridesService, true, logg))
			r.With(idempotency).Post("/deactivate", controllers.OverrideSetActive(overridesService, false, logg))
		})

		r.Route("/admin/overrides", func(r chi.Router) {
			r.Get("/sync/pending", controllers.AdminPendingSync(overridesService, logg))
			r.With(idempotency).Post("/{ruleId}/sync", controllers.AdminSyncReport(overridesService, logg))
		})
	})

	return r
}

func passThrough(next http.Handler) http.Handler {
	return next
}
