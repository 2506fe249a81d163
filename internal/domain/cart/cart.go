// Package cart implements the shopping cart: a list of lines keyed by
// (product, color, variant), mutated only through reducer-style operations.
// Totals are derived from the line list on every read, never cached.
package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Line is one row in a cart. Two lines for the same product with different
// color or variant are distinct rows, but they draw from the same stock pool
// at checkout.
type Line struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Color     string          `json:"color,omitempty"`
	Variant   string          `json:"variant,omitempty"`
	Image     string          `json:"image,omitempty"`
}

// Key returns the line's identity key: productId|color|variant.
func (l Line) Key() string {
	return LineKey(l.ProductID, l.Color, l.Variant)
}

// Subtotal returns unitPrice * quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineKey builds the identity key used to merge and address cart lines.
func LineKey(productID, color, variant string) string {
	return strings.Join([]string{productID, color, variant}, "|")
}

// Cart holds the authoritative in-memory cart state. It is not safe for
// concurrent use; the owner (a request handler holding one session's cart)
// serializes access.
type Cart struct {
	lines []Line
}

// New returns a cart pre-populated with the given lines. The lines are
// re-normalized so state loaded from older serialized snapshots is adopted
// safely.
func New(lines []Line) *Cart {
	return &Cart{lines: NormalizeLines(lines)}
}

// Add normalizes raw into a line and merges it into the cart: an existing
// line with the same identity key gets its quantity increased by qty, a new
// key appends a line. Missing fields default to zero values; qty below 1 is
// treated as 1. Add never fails.
func (c *Cart) Add(raw ItemInput, qty int) {
	if qty < 1 {
		qty = 1
	}
	line := Normalize(raw)
	line.Quantity = qty

	key := line.Key()
	for i := range c.lines {
		if c.lines[i].Key() == key {
			c.lines[i].Quantity += qty
			return
		}
	}
	c.lines = append(c.lines, line)
}

// Remove deletes the line with the given identity key. Unknown keys are a
// no-op.
func (c *Cart) Remove(key string) {
	out := c.lines[:0]
	for _, l := range c.lines {
		if l.Key() != key {
			out = append(out, l)
		}
	}
	c.lines = out
}

// Increment raises the keyed line's quantity by one.
func (c *Cart) Increment(key string) {
	for i := range c.lines {
		if c.lines[i].Key() == key {
			c.lines[i].Quantity++
			return
		}
	}
}

// Decrement lowers the keyed line's quantity by one. A line at quantity 1 is
// removed from the cart.
func (c *Cart) Decrement(key string) {
	for i := range c.lines {
		if c.lines[i].Key() != key {
			continue
		}
		if c.lines[i].Quantity <= 1 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		} else {
			c.lines[i].Quantity--
		}
		return
	}
}

// SetQuantity sets the keyed line's quantity directly, clamped to >= 1.
func (c *Cart) SetQuantity(key string, n int) {
	if n < 1 {
		n = 1
	}
	for i := range c.lines {
		if c.lines[i].Key() == key {
			c.lines[i].Quantity = n
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a defensive copy of the cart's lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// TotalItems returns the sum of all line quantities.
func (c *Cart) TotalItems() int {
	total := 0
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

// TotalAmount returns the sum of unitPrice*quantity over all lines.
func (c *Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
