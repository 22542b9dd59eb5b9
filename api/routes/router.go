package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/swiftcart-backend/api/controllers"
	"github.com/angelmondragon/swiftcart-backend/api/middleware"
	"github.com/angelmondragon/swiftcart-backend/internal/cart"
	"github.com/angelmondragon/swiftcart-backend/internal/checkout"
	"github.com/angelmondragon/swiftcart-backend/internal/orders"
	"github.com/angelmondragon/swiftcart-backend/internal/placeorder"
	"github.com/angelmondragon/swiftcart-backend/pkg/config"
	"github.com/angelmondragon/swiftcart-backend/pkg/enums"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/swiftcart-backend/pkg/redis"
)

// RedisClient is the slice of *redis.Client the HTTP layer uses.
type RedisClient interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Services groups the domain services behind the API.
type Services struct {
	Cart       cart.Service
	Checkout   checkout.Service
	Orders     orders.Service
	PlaceOrder placeorder.Service
}

// NewRouter wires middleware and routes. redisClient may be nil, in which
// case idempotency and rate limiting are skipped. metrics may be nil.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient RedisClient,
	metrics http.Handler,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	deps := map[string]controllers.Pinger{"db": dbP}
	if redisClient != nil {
		deps["redis"] = redisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	passthrough := func(next http.Handler) http.Handler { return next }
	idempotency, couponLimit := passthrough, passthrough
	if redisClient != nil {
		idempotency = middleware.Idempotency(redisClient, cfg.Checkout.IdempotencyTTL, logg)
		couponLimit = middleware.RateLimit(middleware.NewRateLimitPolicy(
			"coupon",
			cfg.RateLimit.CouponWindow,
			cfg.RateLimit.CouponUserLimit,
			cfg.RateLimit.CouponIPLimit,
		), redisClient, logg)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(svc.Cart, logg))
			r.Delete("/", controllers.CartClear(svc.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svc.Cart, logg))
			r.Post("/items/{productId}/decrement", controllers.CartDecrement(svc.Cart, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(svc.Cart, logg))
		})

		r.Route("/checkout/{shopId}", func(r chi.Router) {
			r.Post("/quote", controllers.CheckoutQuote(svc.Checkout, logg))
			r.With(couponLimit).Post("/coupon", controllers.CheckoutApplyCoupon(svc.Checkout, logg))
			r.With(idempotency).Post("/submit", controllers.CheckoutSubmit(svc.Checkout, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(svc.Orders, logg))
			r.With(idempotency).Post("/place", controllers.PlaceOrder(svc.PlaceOrder, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svc.Orders, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin, enums.ActorRoleShop))
			r.With(idempotency).Post("/orders/{userId}/{orderId}/status", controllers.AdminOrderStatus(svc.Orders, logg))
		})
	})

	return r
}
