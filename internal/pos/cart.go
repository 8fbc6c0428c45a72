// Package pos holds the checkout-session working state: the cart container
// and sale-number generation. The cart is owned by one terminal session and
// is not safe for concurrent use; the registry that hands carts out guards
// access with its own lock.
package pos

import (
	"sync"
	"time"

	"warungpos/backend/internal/domain"
)

// Cart keeps one line per product, in insertion order, with totals derived
// from the unit price captured when the line was added.
type Cart struct {
	order []string
	lines map[string]*domain.CartLine
}

func NewCart() *Cart {
	return &Cart{lines: make(map[string]*domain.CartLine)}
}

// AddItem inserts a new line with quantity 1, or bumps an existing line by 1.
// The cap is the stock on the product passed in, not the stock seen when the
// line was first created, so a sale on another terminal lowers the ceiling and
// a restock raises it. A line already at that cap is left untouched: silently
// ignoring the add is how overselling is prevented, not an error. A product
// with no stock at all never gets a line.
func (c *Cart) AddItem(product domain.Product) {
	if line, ok := c.lines[product.ID]; ok {
		line.StockAtFetch = product.StockQty
		if line.Qty >= product.StockQty {
			return
		}
		line.Qty++
		line.LineTotalCents = int64(line.Qty) * line.UnitPriceCents
		return
	}
	if product.StockQty < 1 {
		return
	}
	c.lines[product.ID] = &domain.CartLine{
		ProductID:      product.ID,
		SKU:            product.SKU,
		Name:           product.Name,
		UnitPriceCents: product.PriceCents,
		Qty:            1,
		LineTotalCents: product.PriceCents,
		StockAtFetch:   product.StockQty,
	}
	c.order = append(c.order, product.ID)
}

// SetQuantity replaces a line's quantity and recomputes its total. Zero
// removes the line. No upper clamp: the UI is expected to disable increments
// past stock, the container does not second-guess a direct value.
func (c *Cart) SetQuantity(productID string, qty int) {
	line, ok := c.lines[productID]
	if !ok {
		return
	}
	if qty <= 0 {
		c.RemoveItem(productID)
		return
	}
	line.Qty = qty
	line.LineTotalCents = int64(qty) * line.UnitPriceCents
}

func (c *Cart) RemoveItem(productID string) {
	if _, ok := c.lines[productID]; !ok {
		return
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// TotalCents sums the line totals. Pure, no side effects.
func (c *Cart) TotalCents() int64 {
	var total int64
	for _, line := range c.lines {
		total += line.LineTotalCents
	}
	return total
}

// Lines returns a snapshot copy in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, 0, len(c.order))
	for _, id := range c.order {
		if line, ok := c.lines[id]; ok {
			out = append(out, *line)
		}
	}
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) Clear() {
	c.order = nil
	c.lines = make(map[string]*domain.CartLine)
}

// idleTTL bounds how long an untouched cart survives. Terminal ids come from
// clients, so without eviction the registry would grow with every id ever
// sent.
const idleTTL = 4 * time.Hour

// Registry hands out the cart for a terminal session, creating it on first
// use and dropping sessions idle past idleTTL. All access to a cart must go
// through With so mutation stays under the registry lock.
type Registry struct {
	mu    sync.Mutex
	carts map[string]*session
	now   func() time.Time
}

type session struct {
	cart     *Cart
	lastUsed time.Time
}

func NewRegistry() *Registry {
	return &Registry{carts: make(map[string]*session), now: time.Now}
}

func (r *Registry) With(terminalID string, fn func(c *Cart)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, sess := range r.carts {
		if now.Sub(sess.lastUsed) > idleTTL {
			delete(r.carts, id)
		}
	}
	sess, ok := r.carts[terminalID]
	if !ok {
		sess = &session{cart: NewCart()}
		r.carts[terminalID] = sess
	}
	sess.lastUsed = now
	fn(sess.cart)
}
