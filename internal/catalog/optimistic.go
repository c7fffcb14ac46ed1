package catalog

import "github.com/agrovenca/storefront/internal/domain"

// txn is one optimistic cache transaction: a snapshot taken before the
// provisional change, deltas applied to every cached page while the network
// call is in flight, then either a resolve against the server's canonical
// entity or a rollback to the exact snapshot. The cache is never left in a
// partially applied state: apply and rollback both operate on all pages.
type txn struct {
	cache    *Cache
	snapshot map[string]ProductPage
}

// begin snapshots the cache.
func begin(cache *Cache) *txn {
	return &txn{cache: cache, snapshot: cache.snapshot()}
}

// apply rewrites every cached page's object list through fn.
func (t *txn) apply(fn func([]domain.Product) []domain.Product) {
	t.applyPage(func(page ProductPage) ProductPage {
		page.Objects = fn(page.Objects)
		return page
	})
}

// applyPage rewrites every cached page, objects and metadata, through fn.
func (t *txn) applyPage(fn func(ProductPage) ProductPage) {
	t.cache.update(func(_ string, page ProductPage) ProductPage {
		return fn(page)
	})
}

// resolve replaces every entity matched by the key function with the server's
// canonical version. Used after a successful create or update so no
// provisional data survives.
func (t *txn) resolve(match func(domain.Product) bool, canonical domain.Product) {
	t.apply(func(objects []domain.Product) []domain.Product {
		for i := range objects {
			if match(objects[i]) {
				objects[i] = canonical
			}
		}
		return objects
	})
}

// rollback restores the snapshot taken at begin.
func (t *txn) rollback() {
	t.cache.restore(t.snapshot)
}
