package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/swiftcart-backend/api"
	"github.com/angelmondragon/swiftcart-backend/api/routes"
	"github.com/angelmondragon/swiftcart-backend/internal/admin"
	"github.com/angelmondragon/swiftcart-backend/internal/cart"
	"github.com/angelmondragon/swiftcart-backend/internal/checkout"
	"github.com/angelmondragon/swiftcart-backend/internal/coupons"
	"github.com/angelmondragon/swiftcart-backend/internal/notifications"
	"github.com/angelmondragon/swiftcart-backend/internal/orders"
	"github.com/angelmondragon/swiftcart-backend/internal/placeorder"
	"github.com/angelmondragon/swiftcart-backend/internal/shops"
	"github.com/angelmondragon/swiftcart-backend/internal/users"
	"github.com/angelmondragon/swiftcart-backend/pkg/config"
	"github.com/angelmondragon/swiftcart-backend/pkg/db"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	"github.com/angelmondragon/swiftcart-backend/pkg/metrics"
	"github.com/angelmondragon/swiftcart-backend/pkg/migrate"
	"github.com/angelmondragon/swiftcart-backend/pkg/pricing"
	"github.com/angelmondragon/swiftcart-backend/pkg/pubsub"
	"github.com/angelmondragon/swiftcart-backend/pkg/redis"
	"github.com/angelmondragon/swiftcart-backend/pkg/store"
)

const shutdownTimeout = 15 * time.Second

type orderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event notifications.OrderPlacedEvent) (string, error)
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.ForService("api", cfg.App)

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	docs, err := store.NewGorm(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create document store", err)
		os.Exit(1)
	}

	// order events are best effort; without a project the api runs silent
	var events orderEventPublisher
	psClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Warn(context.Background(), "pubsub unavailable, order events disabled")
	} else {
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		publisher, err := notifications.NewPublisher(psClient.NotificationPublisher())
		if err != nil {
			logg.Error(context.Background(), "failed to create notification publisher", err)
			os.Exit(1)
		}
		events = publisher
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(reg)

	services, err := buildServices(cfg, logg, docs, checkoutMetrics, events)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	handler := routes.NewRouter(cfg, logg, dbClient, redisClient, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), services)
	server := api.NewServer(addr, handler)

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, docs store.Store, m *metrics.CheckoutMetrics, events orderEventPublisher) (routes.Services, error) {
	shopRepo := shops.NewRepository(docs)
	userRepo := users.NewRepository(docs)
	cartRepo := cart.NewRepository(docs)
	adminRepo := admin.NewRepository(docs)
	calc := pricing.NewCalculator(pricing.PolicyFromConfig(cfg.Pricing))

	cartService, err := cart.NewService(docs, shopRepo, logg)
	if err != nil {
		return routes.Services{}, fmt.Errorf("cart service: %w", err)
	}

	loader, err := checkout.NewLoader(shopRepo, userRepo, cartRepo, adminRepo, calc, logg)
	if err != nil {
		return routes.Services{}, fmt.Errorf("checkout loader: %w", err)
	}
	resolver, err := coupons.NewResolver(docs, logg)
	if err != nil {
		return routes.Services{}, fmt.Errorf("coupon resolver: %w", err)
	}
	committer, err := checkout.NewCommitter(docs, logg,
		checkout.WithAtomicCommit(cfg.Checkout.AtomicCommit),
		checkout.WithCommitMetrics(m),
	)
	if err != nil {
		return routes.Services{}, fmt.Errorf("checkout committer: %w", err)
	}
	checkoutService, err := checkout.NewService(loader, resolver, committer, m, logg)
	if err != nil {
		return routes.Services{}, fmt.Errorf("checkout service: %w", err)
	}

	orderService, err := orders.NewService(orders.NewRepository(docs), logg)
	if err != nil {
		return routes.Services{}, fmt.Errorf("order service: %w", err)
	}

	params := placeorder.ServiceParams{
		Users:     userRepo,
		Loader:    loader,
		Coupons:   resolver,
		Committer: committer,
		Metrics:   m,
		Logger:    logg,
	}
	if events != nil {
		params.Events = events
	}
	placeService, err := placeorder.NewService(params)
	if err != nil {
		return routes.Services{}, fmt.Errorf("place order service: %w", err)
	}

	return routes.Services{
		Cart:       cartService,
		Checkout:   checkoutService,
		Orders:     orderService,
		PlaceOrder: placeService,
	}, nil
}
