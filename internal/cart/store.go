package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/agrovenca/storefront/internal/domain"
)

// Listener receives the full cart state after every change, local or remote.
type Listener func(items []domain.CartItem)

// Store holds the authoritative client-side cart. It is an explicit injected
// object: created once at startup, torn down via Close, reset only through
// Clear. All mutations persist through the Storage before they become visible
// and every change is broadcast to subscribed listeners.
//
// States written by other sessions arrive through Storage.Watch and replace
// the in-memory cart wholesale (last-writer-wins, never a merge).
type Store struct {
	storage Storage
	logger  *slog.Logger

	mu      sync.RWMutex
	items   []domain.CartItem
	subs    map[int]Listener
	nextSub int

	cancelWatch context.CancelFunc
	watchDone   chan struct{}
}

// NewStore loads the persisted cart and starts watching for changes written
// by other sessions.
func NewStore(ctx context.Context, storage Storage, logger *slog.Logger) (*Store, error) {
	items, err := storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	changes, err := storage.Watch(watchCtx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch cart: %w", err)
	}

	s := &Store{
		storage:     storage,
		logger:      logger,
		items:       items,
		subs:        make(map[int]Listener),
		cancelWatch: cancel,
		watchDone:   make(chan struct{}),
	}
	cartItemsGauge.Set(float64(len(items)))

	go s.consumeWatch(changes)

	return s, nil
}

// consumeWatch replaces the in-memory cart with every externally written state.
func (s *Store) consumeWatch(changes <-chan []domain.CartItem) {
	defer close(s.watchDone)
	for items := range changes {
		s.mu.Lock()
		s.items = cloneItems(items)
		listeners, snapshot := s.listenersLocked()
		s.mu.Unlock()

		cartSyncReplacementsTotal.Inc()
		cartItemsGauge.Set(float64(len(snapshot)))
		s.logger.Debug("cart replaced by another session",
			slog.Int("items", len(snapshot)),
		)
		for _, fn := range listeners {
			fn(snapshot)
		}
	}
}

// Items returns a copy of the current cart items.
func (s *Store) Items() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// Refs returns the minimal {productId, quantity} pairs for validation.
func (s *Store) Refs() []domain.CartRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := make([]domain.CartRef, len(s.items))
	for i, item := range s.items {
		refs[i] = domain.CartRef{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return refs
}

// Len returns the number of distinct items in the cart.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// AddItem inserts the product with the given quantity, or increments the
// quantity when the product is already in the cart. A mutation that would
// leave a non-positive quantity is ignored silently.
func (s *Store) AddItem(ctx context.Context, productID string, quantity int, snapshot domain.Product) error {
	return s.mutate(ctx, "add", func(items []domain.CartItem) ([]domain.CartItem, bool) {
		for i := range items {
			if items[i].ProductID == productID {
				newQty := items[i].Quantity + quantity
				if newQty <= 0 {
					return items, false
				}
				items[i].Quantity = newQty
				items[i].Product = snapshot
				return items, true
			}
		}
		if quantity <= 0 {
			return items, false
		}
		return append(items, domain.CartItem{
			ProductID: productID,
			Quantity:  quantity,
			Product:   snapshot,
		}), true
	})
}

// UpdateItem replaces the stored quantity and snapshot for an existing
// product. It is a no-op when the product is not in the cart.
func (s *Store) UpdateItem(ctx context.Context, item domain.CartItem) error {
	return s.mutate(ctx, "update", func(items []domain.CartItem) ([]domain.CartItem, bool) {
		for i := range items {
			if items[i].ProductID == item.ProductID {
				items[i] = item
				return items, true
			}
		}
		return items, false
	})
}

// DeleteItem removes the product from the cart. It is a no-op when absent.
func (s *Store) DeleteItem(ctx context.Context, productID string) error {
	return s.mutate(ctx, "delete", func(items []domain.CartItem) ([]domain.CartItem, bool) {
		for i := range items {
			if items[i].ProductID == productID {
				return append(items[:i], items[i+1:]...), true
			}
		}
		return items, false
	})
}

// Clear removes every item from the cart.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, "clear", func(items []domain.CartItem) ([]domain.CartItem, bool) {
		if len(items) == 0 {
			return items, false
		}
		return []domain.CartItem{}, true
	})
}

// Apply runs several scheduled changes as one mutation: quantity updates and
// removals are applied together so the cart is persisted and broadcast once.
// Used by checkout reconciliation (single-pass apply after classification).
func (s *Store) Apply(ctx context.Context, updates map[string]int, removals []string) error {
	removed := make(map[string]bool, len(removals))
	for _, id := range removals {
		removed[id] = true
	}

	return s.mutate(ctx, "reconcile", func(items []domain.CartItem) ([]domain.CartItem, bool) {
		changed := false
		out := items[:0]
		for _, item := range items {
			if removed[item.ProductID] {
				changed = true
				continue
			}
			if qty, ok := updates[item.ProductID]; ok && qty != item.Quantity {
				item.Quantity = qty
				changed = true
			}
			out = append(out, item)
		}
		return out, changed
	})
}

// mutate applies fn to a copy of the current items, persists the result, and
// on success swaps it in and notifies subscribers. When fn reports no change
// the whole mutation is skipped.
func (s *Store) mutate(ctx context.Context, op string, fn func([]domain.CartItem) ([]domain.CartItem, bool)) error {
	s.mu.Lock()
	next, changed := fn(cloneItems(s.items))
	if !changed {
		s.mu.Unlock()
		return nil
	}

	if err := s.storage.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save cart: %w", err)
	}

	s.items = next
	listeners, snapshot := s.listenersLocked()
	s.mu.Unlock()

	cartMutationsTotal.WithLabelValues(op).Inc()
	cartItemsGauge.Set(float64(len(snapshot)))
	s.logger.DebugContext(ctx, "cart mutated",
		slog.String("op", op),
		slog.Int("items", len(snapshot)),
	)
	for _, fn := range listeners {
		fn(snapshot)
	}
	return nil
}

// listenersLocked snapshots the subscriber list and items. Callers must hold mu.
func (s *Store) listenersLocked() ([]Listener, []domain.CartItem) {
	listeners := make([]Listener, 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	return listeners, cloneItems(s.items)
}

// Subscribe registers a listener for cart changes. The returned function
// cancels the subscription.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close stops the cross-session watch. The store remains readable.
func (s *Store) Close() {
	s.cancelWatch()
	<-s.watchDone
}
