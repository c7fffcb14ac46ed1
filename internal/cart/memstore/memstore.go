// Package memstore provides an in-memory cart storage backed by a shared Hub.
// Several Storage instances attached to the same Hub see each other's writes,
// which makes it useful for tests and for running without Redis.
package memstore

import (
	"context"
	"sync"

	"github.com/agrovenca/storefront/internal/cart"
	"github.com/agrovenca/storefront/internal/domain"
)

// Hub holds one cart state shared by all attached storages. Saving through
// one storage broadcasts the new state to every other storage's watchers.
type Hub struct {
	mu       sync.Mutex
	items    []domain.CartItem
	watchers map[int]*watcher
	nextID   int
}

type watcher struct {
	owner int
	ch    chan []domain.CartItem
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{watchers: make(map[int]*watcher)}
}

// Attach creates a storage bound to this hub. Each call models a separate
// session: a storage never receives notifications for its own saves.
func (h *Hub) Attach() cart.Storage {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	return &storage{hub: h, id: id}
}

func (h *Hub) save(owner int, items []domain.CartItem) {
	h.mu.Lock()
	h.items = append([]domain.CartItem(nil), items...)
	targets := make([]*watcher, 0, len(h.watchers))
	for _, w := range h.watchers {
		if w.owner != owner {
			targets = append(targets, w)
		}
	}
	state := append([]domain.CartItem(nil), h.items...)
	h.mu.Unlock()

	for _, w := range targets {
		// Never block a save on a slow watcher: drop its oldest pending
		// state so the buffer always ends with the latest one.
		select {
		case w.ch <- state:
		default:
			select {
			case <-w.ch:
			default:
			}
			select {
			case w.ch <- state:
			default:
			}
		}
	}
}

type storage struct {
	hub *Hub
	id  int
}

func (s *storage) Load(ctx context.Context) ([]domain.CartItem, error) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return append([]domain.CartItem(nil), s.hub.items...), nil
}

func (s *storage) Save(ctx context.Context, items []domain.CartItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.hub.save(s.id, items)
	return nil
}

func (s *storage) Watch(ctx context.Context) (<-chan []domain.CartItem, error) {
	w := &watcher{owner: s.id, ch: make(chan []domain.CartItem, 16)}

	s.hub.mu.Lock()
	key := s.hub.nextID
	s.hub.nextID++
	s.hub.watchers[key] = w
	s.hub.mu.Unlock()

	out := make(chan []domain.CartItem)
	go func() {
		defer close(out)
		defer func() {
			s.hub.mu.Lock()
			delete(s.hub.watchers, key)
			s.hub.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case items := <-w.ch:
				select {
				case out <- items:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
