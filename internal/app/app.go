// Package app wires the storefront client together: configuration, logging,
// the Redis-backed cart, and the API clients.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/agrovenca/storefront/pkg/database"
	"github.com/agrovenca/storefront/pkg/httpclient"
	pkglogger "github.com/agrovenca/storefront/pkg/logger"

	"github.com/agrovenca/storefront/internal/auth"
	"github.com/agrovenca/storefront/internal/cart"
	"github.com/agrovenca/storefront/internal/cart/redisstore"
	"github.com/agrovenca/storefront/internal/catalog"
	"github.com/agrovenca/storefront/internal/checkout"
	"github.com/agrovenca/storefront/internal/config"
	"github.com/agrovenca/storefront/internal/domain"
)

// App holds the wired storefront client.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	rdb    *redis.Client

	Cart        *cart.Store
	Reconciler  *checkout.Reconciler
	Coupons     *checkout.CouponManager
	Catalog     *catalog.Coordinator
	OrderNumber *checkout.OrderNumber
}

// NewApp creates the application, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	ownerID := cfg.CartOwnerID
	if ownerID == "" {
		ownerID = uuid.NewString()
		logger.Info("using anonymous cart", slog.String("owner_id", ownerID))
	}
	// All further logging carries the cart owner.
	logger = pkglogger.WithContext(pkglogger.WithOwnerID(ctx, ownerID), logger)

	cartTTL := time.Duration(cfg.CartTTL) * time.Hour
	storage := redisstore.New(rdb, logger, ownerID, cartTTL)
	store, err := cart.NewStore(ctx, storage, logger)
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("open cart: %w", err)
	}

	session := auth.Anonymous()
	if cfg.APIToken != "" {
		session, err = auth.NewSession(cfg.APIToken)
		if err != nil {
			store.Close()
			rdb.Close()
			return nil, fmt.Errorf("invalid API token: %w", err)
		}
	}

	httpClient := httpclient.New(httpclient.DefaultConfig())
	breaker := httpclient.NewCircuitBreakerClient(
		httpClient,
		httpclient.DefaultCircuitBreakerConfig("storefront-api"),
		logger,
	)

	checkoutClient := checkout.NewClient(breaker, cfg.APIBaseURL, logger)
	catalogClient := catalog.NewClient(breaker, cfg.APIBaseURL, session, logger)

	return &App{
		cfg:         cfg,
		logger:      logger,
		rdb:         rdb,
		Cart:        store,
		Reconciler:  checkout.NewReconciler(checkoutClient, store, logger),
		Coupons:     checkout.NewCouponManager(checkoutClient, logger),
		Catalog:     catalog.NewCoordinator(catalogClient, catalog.NewCache(), logger),
		OrderNumber: &checkout.OrderNumber{},
	}, nil
}

// Run reconciles the cart once, logs the checkout totals, and then follows
// the cart live (local mutations and other sessions' writes) until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	a.logTotals(ctx, a.Cart.Items())

	result, err := a.Reconciler.Reconcile(ctx)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		a.logger.Info("cart is empty, nothing to reconcile")
	case err != nil:
		a.logger.Error("reconciliation failed", slog.String("error", err.Error()))
	case !result.Valid:
		for _, inv := range result.Invalid {
			a.logger.Warn("cart item adjusted",
				slog.String("product_id", inv.ProductID),
				slog.String("reason", inv.Reason),
			)
		}
		a.logTotals(ctx, a.Cart.Items())
	}

	unsubscribe := a.Cart.Subscribe(func(items []domain.CartItem) {
		a.logTotals(ctx, items)
	})
	defer unsubscribe()

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.Shutdown()
}

func (a *App) logTotals(ctx context.Context, items []domain.CartItem) {
	totals := checkout.CalculateTotals(items, a.Coupons.Applied())
	a.logger.InfoContext(ctx, "checkout totals",
		slog.String("order_number", a.OrderNumber.For(len(items))),
		slog.Int("items", len(items)),
		slog.Int64("subtotal", totals.Subtotal),
		slog.Int64("tax", totals.Tax),
		slog.Int64("discount", totals.Discount),
		slog.Int64("total", totals.Total),
	)
}

// Shutdown stops the cart watch and closes the Redis connection.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	a.Cart.Close()

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
