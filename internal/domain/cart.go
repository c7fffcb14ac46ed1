package domain

// CartItem is a single entry of the local cart: a product reference, the
// desired quantity, and a display snapshot of the product taken when the item
// was added. Items are unique by ProductID.
type CartItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Product   Product `json:"product"`
}

// LineTotal returns the effective price times quantity for this item, in cents.
func (i *CartItem) LineTotal() int64 {
	return i.Product.EffectivePrice() * int64(i.Quantity)
}

// CartRef is the minimal {productId, quantity} pair sent to the validation
// endpoint.
type CartRef struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// ValidatedCartItem is the server's verdict on one cart item. Produced by the
// validation endpoint, consumed by a single reconciliation pass, never stored.
type ValidatedCartItem struct {
	ProductID      string `json:"productId"`
	Quantity       int    `json:"quantity"`
	Valid          bool   `json:"valid"`
	Reason         string `json:"reason,omitempty"`
	AvailableStock int    `json:"availableStock,omitempty"`
}

// InvalidCartItem is the display-only projection of an invalid validated item.
type InvalidCartItem struct {
	ProductID string `json:"productId"`
	Reason    string `json:"reason"`
}
