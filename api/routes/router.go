package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hrthis/hrthis-backend/api/controllers"
	catalogcontrollers "github.com/hrthis/hrthis-backend/api/controllers/catalog"
	coincontrollers "github.com/hrthis/hrthis-backend/api/controllers/coins"
	purchasecontrollers "github.com/hrthis/hrthis-backend/api/controllers/purchases"
	"github.com/hrthis/hrthis-backend/api/middleware"
	"github.com/hrthis/hrthis-backend/internal/benefits"
	"github.com/hrthis/hrthis-backend/internal/coins"
	"github.com/hrthis/hrthis-backend/internal/fulfillment"
	"github.com/hrthis/hrthis-backend/internal/milestones"
	"github.com/hrthis/hrthis-backend/internal/purchases"
	"github.com/hrthis/hrthis-backend/internal/rules"
	"github.com/hrthis/hrthis-backend/pkg/config"
	"github.com/hrthis/hrthis-backend/pkg/db"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	"github.com/hrthis/hrthis-backend/pkg/logger"
	pkgredis "github.com/hrthis/hrthis-backend/pkg/redis"
)

// RedisStore is the Redis surface the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	pkgredis.Pinger
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Dependencies carries every collaborator the router hands to controllers.
type Dependencies struct {
	DB          db.Pinger
	Redis       RedisStore
	Metrics     http.Handler
	Coins       coins.Service
	Rules       rules.Service
	Benefits    benefits.Service
	Milestones  milestones.Service
	Purchases   purchases.Service
	Fulfillment fulfillment.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSAllowedOrigins),
	)

	var (
		idemStore   pkgredis.IdempotencyStore
		rateLimiter middleware.FixedWindowLimiter
		readiness   = map[string]controllers.Pinger{}
	)
	if deps.DB != nil {
		readiness["database"] = deps.DB
	}
	if deps.Redis != nil {
		idemStore = deps.Redis
		rateLimiter = deps.Redis
		readiness["redis"] = deps.Redis
	}

	purchasePolicy := middleware.NewRateLimitPolicy("purchase", cfg.HTTP.PurchaseRateLimit, cfg.HTTP.RateLimitWindow)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, cfg.Eventing.RequestIdempotencyTTL, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/coins", func(r chi.Router) {
			r.Get("/balance", coincontrollers.Balance(deps.Coins, logg))
			r.Get("/transactions", coincontrollers.Transactions(deps.Coins, logg))
			r.Get("/summary", coincontrollers.Summary(deps.Coins, logg))
		})
		r.Get("/rules", catalogcontrollers.ListRules(deps.Rules, logg))
		r.Route("/benefits", func(r chi.Router) {
			r.Get("/", catalogcontrollers.ListBenefits(deps.Benefits, logg))
			r.Get("/{benefitId}", catalogcontrollers.GetBenefit(deps.Benefits, logg))
			r.With(middleware.UserRateLimit(purchasePolicy, rateLimiter, logg)).
				Post("/{benefitId}/purchase", coincontrollers.Purchase(deps.Coins, logg))
		})
		r.Get("/purchases", coincontrollers.MyPurchases(deps.Coins, logg))
		r.Route("/events", func(r chi.Router) {
			r.Get("/", catalogcontrollers.ListEvents(deps.Milestones, logg))
			r.Get("/unlocked", coincontrollers.UnlockedEvents(deps.Coins, logg))
			r.Get("/next", coincontrollers.NextEvent(deps.Coins, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Use(middleware.Idempotency(idemStore, cfg.Eventing.RequestIdempotencyTTL, logg))

		r.Route("/coins", func(r chi.Router) {
			r.Post("/grants", coincontrollers.AdminGrant(deps.Coins, logg))
			r.Post("/rule-grants", coincontrollers.AdminRuleGrant(deps.Coins, logg))
			r.Get("/transactions", coincontrollers.AdminTransactions(deps.Coins, logg))
		})
		r.Route("/users/{userId}", func(r chi.Router) {
			r.Get("/balance", coincontrollers.AdminUserBalance(deps.Coins, logg))
			r.Get("/transactions", coincontrollers.AdminUserTransactions(deps.Coins, logg))
		})
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", catalogcontrollers.AdminListRules(deps.Rules, logg))
			r.Post("/", catalogcontrollers.AdminCreateRule(deps.Rules, logg))
			r.Patch("/{ruleId}", catalogcontrollers.AdminUpdateRule(deps.Rules, logg))
			r.Delete("/{ruleId}", catalogcontrollers.AdminDeleteRule(deps.Rules, logg))
		})
		r.Route("/benefits", func(r chi.Router) {
			r.Get("/", catalogcontrollers.AdminListBenefits(deps.Benefits, logg))
			r.Post("/", catalogcontrollers.AdminCreateBenefit(deps.Benefits, logg))
			r.Patch("/{benefitId}", catalogcontrollers.AdminUpdateBenefit(deps.Benefits, logg))
			r.Delete("/{benefitId}", catalogcontrollers.AdminDeleteBenefit(deps.Benefits, logg))
		})
		r.Route("/events", func(r chi.Router) {
			r.Get("/", catalogcontrollers.AdminListEvents(deps.Milestones, logg))
			r.Post("/", catalogcontrollers.AdminCreateEvent(deps.Milestones, logg))
			r.Patch("/{eventId}", catalogcontrollers.AdminUpdateEvent(deps.Milestones, logg))
			r.Delete("/{eventId}", catalogcontrollers.AdminDeleteEvent(deps.Milestones, logg))
		})
		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", purchasecontrollers.AdminList(deps.Purchases, deps.Fulfillment, logg))
			r.Patch("/{purchaseId}/status", purchasecontrollers.AdminTransition(deps.Fulfillment, logg))
		})
	})

	return r
}
