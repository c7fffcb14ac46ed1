package checkout

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// OrderNumber produces the display order number shown during checkout: a
// random hexadecimal prefix plus the cart item count. The prefix is kept
// stable while the item count stays the same and regenerated when it changes.
type OrderNumber struct {
	mu     sync.Mutex
	prefix string
	count  int
}

// For returns the order number for a cart with the given item count.
func (o *OrderNumber) For(itemCount int) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.prefix == "" || o.count != itemCount {
		o.prefix = randomHex(4)
		o.count = itemCount
	}
	return fmt.Sprintf("%s-%d", o.prefix, itemCount)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		return strings.Repeat("0", n*2)
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
