package checkout

import (
	"math"

	"github.com/agrovenca/storefront/internal/domain"
)

// TaxRate is the fixed tax rate applied to the cart subtotal.
const TaxRate = 0.12

// Totals is the money breakdown shown at checkout. All amounts are in cents.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Tax      int64 `json:"tax"`
	Discount int64 `json:"discount"`
	Total    int64 `json:"total"`
}

// CalculateTotals computes the checkout totals from the cart items and the
// applied coupon, if any. It is a pure function: same inputs, same totals,
// recomputed on every call.
//
// Each line uses the product's effective unit price (the promotional second
// price when set). Tax is the subtotal times TaxRate, rounded to the nearest
// cent.
func CalculateTotals(items []domain.CartItem, applied *domain.AppliedCoupon) Totals {
	var subtotal int64
	for i := range items {
		subtotal += items[i].LineTotal()
	}

	tax := int64(math.Round(float64(subtotal) * TaxRate))

	var discount int64
	if applied != nil {
		discount = applied.DiscountAmount
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    subtotal + tax - discount,
	}
}
