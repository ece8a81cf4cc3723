// Package domain contains core domain types for the BuyNest live-assist service.
package domain

// CartSnapshot is the full point-in-time state of a shopper's cart:
// product ID -> size label -> quantity.
//
// A quantity of zero is equivalent to the key being absent. Normalize
// collapses the two representations so snapshots can be compared directly.
type CartSnapshot map[string]map[string]int

// NewCartSnapshot returns an empty snapshot.
func NewCartSnapshot() CartSnapshot {
	return make(CartSnapshot)
}

// Clone returns a deep copy of the snapshot.
func (c CartSnapshot) Clone() CartSnapshot {
	out := make(CartSnapshot, len(c))
	for productID, sizes := range c {
		copied := make(map[string]int, len(sizes))
		for size, qty := range sizes {
			copied[size] = qty
		}
		out[productID] = copied
	}
	return out
}

// Add increments the quantity for (productID, size) by one, creating
// nested entries as needed.
func (c CartSnapshot) Add(productID, size string) {
	sizes, ok := c[productID]
	if !ok {
		sizes = make(map[string]int)
		c[productID] = sizes
	}
	sizes[size]++
}

// Set overwrites the quantity for (productID, size). Zero removes the entry.
func (c CartSnapshot) Set(productID, size string, quantity int) {
	if quantity <= 0 {
		if sizes, ok := c[productID]; ok {
			delete(sizes, size)
			if len(sizes) == 0 {
				delete(c, productID)
			}
		}
		return
	}
	sizes, ok := c[productID]
	if !ok {
		sizes = make(map[string]int)
		c[productID] = sizes
	}
	sizes[size] = quantity
}

// Count sums all quantities across all products and sizes.
func (c CartSnapshot) Count() int {
	total := 0
	for _, sizes := range c {
		for _, qty := range sizes {
			total += qty
		}
	}
	return total
}

// Total sums price * quantity across all entries. Products missing from
// the price lookup are skipped: a product that no longer exists simply
// contributes nothing to the total.
func (c CartSnapshot) Total(price func(productID string) (int64, bool)) int64 {
	var total int64
	for productID, sizes := range c {
		unit, ok := price(productID)
		if !ok {
			continue
		}
		for _, qty := range sizes {
			total += unit * int64(qty)
		}
	}
	return total
}

// Normalize removes zero-quantity and empty entries in place and returns
// the snapshot. Incoming wire payloads are normalized before comparison
// so that an explicit zero and a missing key are treated identically.
func (c CartSnapshot) Normalize() CartSnapshot {
	for productID, sizes := range c {
		for size, qty := range sizes {
			if qty <= 0 {
				delete(sizes, size)
			}
		}
		if len(sizes) == 0 {
			delete(c, productID)
		}
	}
	return c
}

// Equal reports whether two snapshots hold the same quantities,
// ignoring zero-quantity entries on either side.
func (c CartSnapshot) Equal(other CartSnapshot) bool {
	return c.contains(other) && other.contains(c)
}

func (c CartSnapshot) contains(other CartSnapshot) bool {
	for productID, sizes := range other {
		for size, qty := range sizes {
			if qty <= 0 {
				continue
			}
			if c[productID][size] != qty {
				return false
			}
		}
	}
	return true
}
