package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agrovenca/storefront/pkg/slug"

	"github.com/agrovenca/storefront/internal/domain"
)

// provisionalPrefix marks entities synthesized client-side while the create
// call is in flight. No canonical server ID ever starts with it.
const provisionalPrefix = "tmp-"

// reorderKey serializes reorder mutations, which touch every entity at once.
const reorderKey = "display-order"

// API is the slice of the product API the coordinator drives.
type API interface {
	List(ctx context.Context, filters ListFilters) (ProductPage, error)
	Create(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	Update(ctx context.Context, productID string, input UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, productID string) error
	Reorder(ctx context.Context, orders []domain.ProductOrder) error
}

// keyedMutex hands out one mutex per key so mutations against different
// entities proceed in parallel while mutations on the same entity serialize.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*entry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Coordinator runs catalog mutations optimistically against the page cache:
// the change is visible immediately, then either confirmed with the server's
// canonical entity or rolled back to the exact pre-mutation snapshot.
type Coordinator struct {
	api    API
	cache  *Cache
	logger *slog.Logger
	keys   keyedMutex
}

// NewCoordinator creates a coordinator over the given API client and cache.
func NewCoordinator(api API, cache *Cache, logger *slog.Logger) *Coordinator {
	return &Coordinator{api: api, cache: cache, logger: logger}
}

// Cache exposes the coordinator's page cache for reads.
func (c *Coordinator) Cache() *Cache {
	return c.cache
}

// Load returns the cached page for the filters, fetching it on a miss.
func (c *Coordinator) Load(ctx context.Context, filters ListFilters) (ProductPage, error) {
	key := filters.Key()
	if page, ok := c.cache.Get(key); ok {
		return page, nil
	}

	page, err := c.api.List(ctx, filters)
	if err != nil {
		return ProductPage{}, fmt.Errorf("list products: %w", err)
	}
	c.cache.Set(key, page)
	return page, nil
}

// Refresh re-fetches the page for the filters, replacing the cached copy.
func (c *Coordinator) Refresh(ctx context.Context, filters ListFilters) (ProductPage, error) {
	c.cache.Invalidate(filters.Key())
	return c.Load(ctx, filters)
}

// Create inserts a provisional product into every cached page, then calls the
// server. On success the canonical entity replaces the provisional one,
// matched by its temporary identifier; on failure the snapshot is restored.
func (c *Coordinator) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	tempID := provisionalPrefix + uuid.NewString()
	unlock := c.keys.lock(tempID)
	defer unlock()

	now := time.Now().UTC()
	provisional := domain.Product{
		ID:           tempID,
		Name:         input.Name,
		Slug:         slug.Generate(input.Name),
		Description:  input.Description,
		Price:        input.Price,
		SecondPrice:  input.SecondPrice,
		Stock:        input.Stock,
		FreeShipping: input.FreeShipping,
		CategoryID:   input.CategoryID,
		UnityID:      input.UnityID,
		DisplayOrder: c.cache.NextDisplayOrder(),
		Images:       []domain.ProductImage{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	t := begin(c.cache)
	t.applyPage(func(page ProductPage) ProductPage {
		page.Objects = append(page.Objects, provisional)
		page.Pagination.TotalCount++
		return page
	})

	canonical, err := c.api.Create(ctx, input)
	if err != nil {
		t.rollback()
		c.logger.WarnContext(ctx, "product create rolled back",
			slog.String("temp_id", tempID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	t.resolve(func(p domain.Product) bool { return p.ID == tempID }, *canonical)
	return canonical, nil
}

// IsProvisional reports whether the product ID is a client-synthesized
// temporary identifier.
func IsProvisional(productID string) bool {
	return strings.HasPrefix(productID, provisionalPrefix)
}

// Update patches the product in every cached page, then calls the server. On
// success the canonical entity replaces the patched one; on failure the
// snapshot is restored.
func (c *Coordinator) Update(ctx context.Context, productID string, input UpdateProductInput) (*domain.Product, error) {
	unlock := c.keys.lock(productID)
	defer unlock()

	t := begin(c.cache)
	t.apply(func(objects []domain.Product) []domain.Product {
		for i := range objects {
			if objects[i].ID == productID {
				patchProduct(&objects[i], input)
			}
		}
		return objects
	})

	canonical, err := c.api.Update(ctx, productID, input)
	if err != nil {
		t.rollback()
		c.logger.WarnContext(ctx, "product update rolled back",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	t.resolve(func(p domain.Product) bool { return p.ID == productID }, *canonical)
	return canonical, nil
}

// Delete removes the product from every cached page, then calls the server.
// On failure the snapshot is restored.
func (c *Coordinator) Delete(ctx context.Context, productID string) error {
	unlock := c.keys.lock(productID)
	defer unlock()

	t := begin(c.cache)
	t.applyPage(func(page ProductPage) ProductPage {
		objects := page.Objects[:0]
		removed := false
		for _, p := range page.Objects {
			if p.ID == productID {
				removed = true
				continue
			}
			objects = append(objects, p)
		}
		page.Objects = objects
		if removed {
			page.Pagination.TotalCount--
		}
		return page
	})

	if err := c.api.Delete(ctx, productID); err != nil {
		t.rollback()
		c.logger.WarnContext(ctx, "product delete rolled back",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// Reorder applies the client-computed display order (1-based, contiguous) to
// every cached page, resorts them, then calls the server. The client's order
// is trusted unless the server rejects it, which restores the snapshot.
func (c *Coordinator) Reorder(ctx context.Context, orders []domain.ProductOrder) error {
	unlock := c.keys.lock(reorderKey)
	defer unlock()

	byID := make(map[string]int, len(orders))
	for _, o := range orders {
		byID[o.ID] = o.DisplayOrder
	}

	t := begin(c.cache)
	t.apply(func(objects []domain.Product) []domain.Product {
		for i := range objects {
			if order, ok := byID[objects[i].ID]; ok {
				objects[i].DisplayOrder = order
			}
		}
		sort.SliceStable(objects, func(i, j int) bool {
			return objects[i].DisplayOrder < objects[j].DisplayOrder
		})
		return objects
	})

	if err := c.api.Reorder(ctx, orders); err != nil {
		t.rollback()
		c.logger.WarnContext(ctx, "product reorder rolled back",
			slog.Int("products", len(orders)),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// patchProduct applies the non-nil update fields to the product in place. The
// slug follows a provisional name change until the server answers.
func patchProduct(p *domain.Product, input UpdateProductInput) {
	if input.Name != nil {
		p.Name = *input.Name
		p.Slug = slug.Generate(*input.Name)
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Price != nil {
		p.Price = *input.Price
	}
	if input.SecondPrice != nil {
		p.SecondPrice = *input.SecondPrice
	}
	if input.Stock != nil {
		p.Stock = *input.Stock
	}
	if input.FreeShipping != nil {
		p.FreeShipping = *input.FreeShipping
	}
	if input.CategoryID != nil {
		p.CategoryID = *input.CategoryID
	}
	if input.UnityID != nil {
		p.UnityID = *input.UnityID
	}
	p.UpdatedAt = time.Now().UTC()
}
