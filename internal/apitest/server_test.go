package apitest_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/agrovenca/storefront/pkg/errors"
	"github.com/agrovenca/storefront/pkg/httpclient"

	"github.com/agrovenca/storefront/internal/apitest"
	"github.com/agrovenca/storefront/internal/auth"
	"github.com/agrovenca/storefront/internal/cart"
	"github.com/agrovenca/storefront/internal/cart/memstore"
	"github.com/agrovenca/storefront/internal/catalog"
	"github.com/agrovenca/storefront/internal/checkout"
	"github.com/agrovenca/storefront/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setup(t *testing.T) (*apitest.Server, string) {
	t.Helper()
	fake := apitest.NewServer()
	server := httptest.NewServer(fake.Handler())
	t.Cleanup(server.Close)
	return fake, server.URL
}

func newHTTPClient() *httpclient.Client {
	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	return httpclient.New(cfg)
}

// The full checkout flow against the fake API: fill the cart, reconcile
// against live stock, apply a coupon, compute totals.
func TestCheckoutFlow(t *testing.T) {
	fake, baseURL := setup(t)
	fake.SeedProduct(domain.Product{ID: "prod-maiz", Name: "Maíz Amarillo", Slug: "maiz-amarillo", Price: 1000, Stock: 2})
	fake.SeedProduct(domain.Product{ID: "prod-cafe", Name: "Café en grano", Slug: "cafe-en-grano", Price: 4000, Stock: 0})
	fake.SeedCoupon(domain.Coupon{Code: "AGRO10", Type: domain.CouponTypePercentage, Discount: 10, Active: true})

	logger := testLogger()
	hub := memstore.NewHub()
	store, err := cart.NewStore(context.Background(), hub.Attach(), logger)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.AddItem(context.Background(), "prod-maiz", 5,
		domain.Product{ID: "prod-maiz", Price: 1000, Stock: 5}))
	require.NoError(t, store.AddItem(context.Background(), "prod-cafe", 1,
		domain.Product{ID: "prod-cafe", Price: 4000, Stock: 1}))

	client := checkout.NewClient(newHTTPClient(), baseURL, logger)
	reconciler := checkout.NewReconciler(client, store, logger)

	result, err := reconciler.Reconcile(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, map[string]int{"prod-maiz": 2}, result.Clamped)
	assert.Equal(t, []string{"prod-cafe"}, result.Removed)
	require.Len(t, result.Invalid, 2)

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)

	// 10% coupon on the reconciled subtotal.
	mgr := checkout.NewCouponManager(client, logger)
	applied, err := mgr.Apply(context.Background(), "AGRO10", items)
	require.NoError(t, err)
	assert.Equal(t, int64(200), applied.DiscountAmount)

	totals := checkout.CalculateTotals(items, applied)
	assert.Equal(t, int64(2000), totals.Subtotal)
	assert.Equal(t, int64(240), totals.Tax)
	assert.Equal(t, int64(200), totals.Discount)
	assert.Equal(t, int64(2040), totals.Total)
}

// An unknown code is the most common coupon rejection: the shopper sees the
// server's reason word for word and no discount lingers.
func TestCheckoutFlow_UnknownCouponCode(t *testing.T) {
	_, baseURL := setup(t)

	logger := testLogger()
	client := checkout.NewClient(newHTTPClient(), baseURL, logger)
	mgr := checkout.NewCouponManager(client, logger)

	items := []domain.CartItem{
		{ProductID: "prod-maiz", Quantity: 2, Product: domain.Product{ID: "prod-maiz", Price: 1000, Stock: 10}},
	}

	applied, err := mgr.Apply(context.Background(), "NOPE", items)
	require.Error(t, err)
	assert.Nil(t, applied)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, "coupon not found", apperrors.UserMessage(err))

	state := mgr.State()
	assert.Equal(t, "NOPE", state.Code)
	assert.Nil(t, state.Applied)
	assert.Equal(t, "coupon not found", state.Message)
}

func TestCheckoutFlow_ServerFailureLeavesCart(t *testing.T) {
	fake, baseURL := setup(t)
	fake.SeedProduct(domain.Product{ID: "prod-maiz", Name: "Maíz", Slug: "maiz", Price: 1000, Stock: 10})

	logger := testLogger()
	hub := memstore.NewHub()
	store, err := cart.NewStore(context.Background(), hub.Attach(), logger)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.AddItem(context.Background(), "prod-maiz", 3,
		domain.Product{ID: "prod-maiz", Price: 1000}))

	fake.FailNext(http.StatusServiceUnavailable, "backend is down")

	client := checkout.NewClient(newHTTPClient(), baseURL, logger)
	reconciler := checkout.NewReconciler(client, store, logger)

	_, err = reconciler.Reconcile(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

// The optimistic coordinator against the fake API: create resolves to the
// canonical entity, a slug conflict rolls back.
func TestCatalogFlow(t *testing.T) {
	fake, baseURL := setup(t)
	fake.SeedProduct(domain.Product{ID: "p1", Name: "Arroz", Slug: "arroz", Price: 800, Stock: 50})

	logger := testLogger()
	client := catalog.NewClient(newHTTPClient(), baseURL, auth.Anonymous(), logger)
	coord := catalog.NewCoordinator(client, catalog.NewCache(), logger)

	filters := catalog.ListFilters{}
	page, err := coord.Load(context.Background(), filters)
	require.NoError(t, err)
	require.Len(t, page.Objects, 1)

	created, err := coord.Create(context.Background(), catalog.CreateProductInput{
		Name:       "Maíz Amarillo",
		Price:      1500,
		Stock:      40,
		CategoryID: "cat-1",
		UnityID:    "unit-1",
	})
	require.NoError(t, err)
	assert.False(t, catalog.IsProvisional(created.ID))
	assert.Equal(t, "maiz-amarillo", created.Slug)

	page, _ = coord.Cache().Get(filters.Key())
	require.Len(t, page.Objects, 2)
	assert.Equal(t, created.ID, page.Objects[1].ID)

	// A duplicate name conflicts on the slug and rolls the cache back.
	before, _ := coord.Cache().Get(filters.Key())
	_, err = coord.Create(context.Background(), catalog.CreateProductInput{
		Name:       "Maíz Amarillo",
		Price:      1500,
		Stock:      40,
		CategoryID: "cat-1",
		UnityID:    "unit-1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	after, _ := coord.Cache().Get(filters.Key())
	assert.Equal(t, before, after)
}
