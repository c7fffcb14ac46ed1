package domain

import "time"

// Coupon type constants.
const (
	CouponTypePercentage = "PERCENTAGE"
	CouponTypeFixed      = "FIXED"
)

// Coupon represents a discount coupon as managed by an admin. Eligibility
// (minPurchase, validCategories, expiry, usage limit, active flag) is enforced
// server-side; the client only carries the fields for display and editing.
type Coupon struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	Description     string     `json:"description,omitempty"`
	Type            string     `json:"type"`
	Discount        int64      `json:"discount"`
	Active          bool       `json:"active"`
	UsageLimit      int        `json:"usageLimit"`
	TimesUsed       int        `json:"timesUsed"`
	MinPurchase     int64      `json:"minPurchase"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	ValidCategories []string   `json:"validCategories"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// IsValidType checks whether the given string is a valid coupon type.
func IsValidType(t string) bool {
	return t == CouponTypePercentage || t == CouponTypeFixed
}

// AppliedCoupon is the discount metadata the server returns when a coupon is
// accepted against the current cart. DiscountAmount is in cents, already
// computed server-side from the coupon type and the cart subtotal.
type AppliedCoupon struct {
	Code           string `json:"code"`
	Description    string `json:"description,omitempty"`
	DiscountAmount int64  `json:"discountAmount"`
}
