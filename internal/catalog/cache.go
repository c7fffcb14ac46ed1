package catalog

import (
	"sync"

	"github.com/agrovenca/storefront/pkg/pagination"

	"github.com/agrovenca/storefront/internal/domain"
)

// ProductPage is one cached page of the product listing.
type ProductPage = pagination.Page[domain.Product]

// Cache holds the fetched product pages keyed by filter key (the serialized
// listing filters). Optimistic mutations touch every cached page so the UI
// stays consistent no matter which filter the admin is looking at.
type Cache struct {
	mu    sync.RWMutex
	pages map[string]ProductPage
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{pages: make(map[string]ProductPage)}
}

// Get returns the cached page for the filter key.
func (c *Cache) Get(key string) (ProductPage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	page, ok := c.pages[key]
	if !ok {
		return ProductPage{}, false
	}
	return clonePage(page), true
}

// Set stores a fetched page under the filter key.
func (c *Cache) Set(key string, page ProductPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[key] = clonePage(page)
}

// Invalidate drops the page for the filter key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pages, key)
}

// snapshot returns a deep copy of every cached page.
func (c *Cache) snapshot() map[string]ProductPage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := make(map[string]ProductPage, len(c.pages))
	for k, page := range c.pages {
		snap[k] = clonePage(page)
	}
	return snap
}

// restore replaces the whole cache with a previously taken snapshot.
func (c *Cache) restore(snap map[string]ProductPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = make(map[string]ProductPage, len(snap))
	for k, page := range snap {
		c.pages[k] = clonePage(page)
	}
}

// update applies fn to every cached page in place.
func (c *Cache) update(fn func(key string, page ProductPage) ProductPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, page := range c.pages {
		c.pages[k] = fn(k, clonePage(page))
	}
}

// NextDisplayOrder returns one past the highest display order seen across the
// cached pages. An empty cache starts at 1.
func (c *Cache) NextDisplayOrder() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	max := 0
	for _, page := range c.pages {
		for i := range page.Objects {
			if page.Objects[i].DisplayOrder > max {
				max = page.Objects[i].DisplayOrder
			}
		}
	}
	return max + 1
}

func clonePage(page ProductPage) ProductPage {
	objects := make([]domain.Product, len(page.Objects))
	copy(objects, page.Objects)
	return ProductPage{Objects: objects, Pagination: page.Pagination}
}
