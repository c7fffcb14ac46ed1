// Package redisstore persists the cart in Redis and propagates changes to
// other sessions of the same owner over a pub/sub channel.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/agrovenca/storefront/internal/domain"
)

const (
	keyPrefix     = "cart:"
	channelPrefix = "cart.events:"
)

// envelope is the pub/sub payload. InstanceID identifies the writing session
// so subscribers can skip notifications for their own saves.
type envelope struct {
	InstanceID string            `json:"instanceId"`
	Items      []domain.CartItem `json:"items"`
}

// Storage implements cart.Storage on Redis. Each Storage carries a unique
// instance ID; Watch drops events published by the same instance.
type Storage struct {
	client     *redis.Client
	logger     *slog.Logger
	ownerID    string
	instanceID string
	ttl        time.Duration
}

// New creates a Redis-backed cart storage for the given owner.
func New(client *redis.Client, logger *slog.Logger, ownerID string, ttl time.Duration) *Storage {
	return &Storage{
		client:     client,
		logger:     logger,
		ownerID:    ownerID,
		instanceID: uuid.NewString(),
		ttl:        ttl,
	}
}

// Load retrieves the persisted cart. A missing key is an empty cart.
func (s *Storage) Load(ctx context.Context) ([]domain.CartItem, error) {
	data, err := s.client.Get(ctx, keyPrefix+s.ownerID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return []domain.CartItem{}, nil
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var items []domain.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return items, nil
}

// Save replaces the persisted cart with the configured TTL and publishes the
// new state for other sessions.
func (s *Storage) Save(ctx context.Context, items []domain.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+s.ownerID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	payload, err := json.Marshal(envelope{InstanceID: s.instanceID, Items: items})
	if err != nil {
		return fmt.Errorf("marshal cart event: %w", err)
	}
	if err := s.client.Publish(ctx, channelPrefix+s.ownerID, payload).Err(); err != nil {
		// The write itself succeeded; other sessions will catch up on their
		// next Load.
		s.logger.WarnContext(ctx, "failed to publish cart event",
			slog.String("owner_id", s.ownerID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Watch subscribes to the owner's cart channel and delivers states written by
// other instances. The channel is closed when ctx is canceled.
func (s *Storage) Watch(ctx context.Context) (<-chan []domain.CartItem, error) {
	sub := s.client.Subscribe(ctx, channelPrefix+s.ownerID)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis subscribe cart: %w", err)
	}

	out := make(chan []domain.CartItem)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					s.logger.Warn("dropping malformed cart event",
						slog.String("owner_id", s.ownerID),
						slog.String("error", err.Error()),
					)
					continue
				}
				if env.InstanceID == s.instanceID {
					continue
				}
				select {
				case out <- env.Items:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
