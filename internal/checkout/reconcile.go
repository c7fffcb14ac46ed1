package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agrovenca/storefront/internal/domain"
)

// ErrEmptyCart is returned when reconciliation is requested on an empty cart.
// Callers should redirect to the product listing instead of proceeding.
var ErrEmptyCart = errors.New("cart is empty")

// CartStore is the slice of the cart store the reconciler needs: read the
// current references and apply the scheduled corrections in one pass.
type CartStore interface {
	Refs() []domain.CartRef
	Items() []domain.CartItem
	Apply(ctx context.Context, updates map[string]int, removals []string) error
}

// Validator validates cart references against live stock.
type Validator interface {
	ValidateCart(ctx context.Context, refs []domain.CartRef) ([]domain.ValidatedCartItem, error)
}

// Result reports the outcome of one reconciliation.
type Result struct {
	// Valid is true when every item passed validation unchanged.
	Valid bool

	// Invalid lists the items that needed correction, one reason each.
	Invalid []domain.InvalidCartItem

	// Clamped maps productId to the quantity the cart was reduced to.
	Clamped map[string]int

	// Removed lists productIds dropped because they are out of stock.
	Removed []string
}

// Reconciler brings the local cart in line with server-side stock before
// checkout.
type Reconciler struct {
	client Validator
	store  CartStore
	logger *slog.Logger
}

// NewReconciler creates a reconciler over the given store and validation client.
func NewReconciler(client Validator, store CartStore, logger *slog.Logger) *Reconciler {
	return &Reconciler{client: client, store: store, logger: logger}
}

// Reconcile validates the current cart against the server and applies the
// corrections: quantities above available stock are clamped down, items with
// no stock are removed. Classification happens first over the full response;
// all corrections are then applied to the store in a single pass.
//
// On an empty cart it returns ErrEmptyCart without any network call. On a
// transport or server failure the cart is left untouched. A context canceled
// before the apply step also leaves the cart untouched.
func (r *Reconciler) Reconcile(ctx context.Context) (*Result, error) {
	refs := r.store.Refs()
	if len(refs) == 0 {
		return nil, ErrEmptyCart
	}

	validated, err := r.client.ValidateCart(ctx, refs)
	if err != nil {
		r.logger.ErrorContext(ctx, "cart validation failed",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("validate cart: %w", err)
	}

	// Classification pass: decide every correction before touching the store.
	result := &Result{Valid: true, Clamped: make(map[string]int)}
	updates := make(map[string]int)
	var removals []string

	for _, item := range validated {
		if item.Valid {
			continue
		}
		result.Valid = false

		if item.AvailableStock > 0 {
			updates[item.ProductID] = item.AvailableStock
			result.Clamped[item.ProductID] = item.AvailableStock
			result.Invalid = append(result.Invalid, domain.InvalidCartItem{
				ProductID: item.ProductID,
				Reason:    clampReason(item),
			})
			continue
		}

		removals = append(removals, item.ProductID)
		result.Removed = append(result.Removed, item.ProductID)
		result.Invalid = append(result.Invalid, domain.InvalidCartItem{
			ProductID: item.ProductID,
			Reason:    removalReason(item),
		})
	}

	if result.Valid {
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Apply pass: one store mutation for every scheduled correction.
	if err := r.store.Apply(ctx, updates, removals); err != nil {
		return nil, fmt.Errorf("apply cart corrections: %w", err)
	}

	r.logger.InfoContext(ctx, "cart reconciled",
		slog.Int("clamped", len(updates)),
		slog.Int("removed", len(removals)),
	)

	return result, nil
}

func clampReason(item domain.ValidatedCartItem) string {
	if item.Reason != "" {
		return item.Reason
	}
	return fmt.Sprintf("only %d units available, quantity was adjusted", item.AvailableStock)
}

func removalReason(item domain.ValidatedCartItem) string {
	if item.Reason != "" {
		return item.Reason
	}
	return "product is out of stock and was removed from the cart"
}
