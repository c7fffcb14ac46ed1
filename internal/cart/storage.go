package cart

import (
	"context"

	"github.com/agrovenca/storefront/internal/domain"
)

// Storage persists the cart durably and delivers cart states written by other
// sessions attached to the same cart. Implementations must deliver on the
// Watch channel only states written by other writers, never the caller's own
// saves (storage-event semantics).
type Storage interface {
	// Load returns the persisted cart, or an empty slice when none exists.
	Load(ctx context.Context) ([]domain.CartItem, error)

	// Save replaces the persisted cart with the given items.
	Save(ctx context.Context, items []domain.CartItem) error

	// Watch returns a channel of externally written cart states. The channel
	// is closed when the context is canceled.
	Watch(ctx context.Context) (<-chan []domain.CartItem, error)
}

// cloneItems returns a shallow copy of the item slice so callers can never
// mutate the store's internal state through a returned slice.
func cloneItems(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out
}
