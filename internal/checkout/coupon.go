package checkout

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	apperrors "github.com/agrovenca/storefront/pkg/errors"

	"github.com/agrovenca/storefront/internal/domain"
)

// CouponApplier submits a coupon code for the given cart.
type CouponApplier interface {
	ApplyCoupon(ctx context.Context, code string, items []domain.CartItem) (*domain.AppliedCoupon, error)
}

// CouponState is a snapshot of the coupon manager's state: the entered code,
// the applied discount when the server accepted it, and the last rejection
// message otherwise.
type CouponState struct {
	Code    string
	Applied *domain.AppliedCoupon
	Message string
}

// CouponManager holds the single coupon of a checkout. At most one coupon is
// applied at a time: applying a new code replaces the previous one, and Remove
// clears code, error, and applied discount together.
type CouponManager struct {
	client CouponApplier
	logger *slog.Logger

	mu      sync.Mutex
	code    string
	applied *domain.AppliedCoupon
	message string
}

// NewCouponManager creates a coupon manager backed by the given API client.
func NewCouponManager(client CouponApplier, logger *slog.Logger) *CouponManager {
	return &CouponManager{client: client, logger: logger}
}

// Apply submits the code against the current cart. A blank code is rejected
// locally without a network call. On success the discount replaces any
// previously applied coupon; on rejection the previous coupon is also
// discarded and the server's reason is kept for display.
func (m *CouponManager) Apply(ctx context.Context, code string, items []domain.CartItem) (*domain.AppliedCoupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperrors.InvalidInput("coupon code is required")
	}

	applied, err := m.client.ApplyCoupon(ctx, code, items)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.code = code
	if err != nil {
		m.applied = nil
		m.message = apperrors.UserMessage(err)
		m.logger.WarnContext(ctx, "coupon rejected",
			slog.String("code", code),
			slog.String("reason", m.message),
		)
		return nil, err
	}

	m.applied = applied
	m.message = ""
	return applied, nil
}

// Remove clears the code, the applied discount, and any rejection message in
// one step.
func (m *CouponManager) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.code = ""
	m.applied = nil
	m.message = ""
}

// State returns a copy of the current coupon state.
func (m *CouponManager) State() CouponState {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := CouponState{Code: m.code, Message: m.message}
	if m.applied != nil {
		applied := *m.applied
		state.Applied = &applied
	}
	return state
}

// Applied returns the currently applied discount, or nil.
func (m *CouponManager) Applied() *domain.AppliedCoupon {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applied == nil {
		return nil
	}
	applied := *m.applied
	return &applied
}
