// Package cart holds the per-user shopping cart: a pure line aggregator plus
// a Redis-backed store and the service that snapshots catalog data onto lines
// as they are added. Checkout re-resolves canonical prices.
package cart

import (
	"github.com/google/uuid"

	"github.com/nmoralesdev/storefront-backend/pkg/money"
)

// Line is a single product entry in a cart. UnitPriceCents is a snapshot of
// the catalog price when the line was added; checkout re-resolves it.
type Line struct {
	ProductID      uuid.UUID   `json:"product_id"`
	Name           string      `json:"name"`
	ImageURL       *string     `json:"image_url,omitempty"`
	UnitPriceCents money.Cents `json:"unit_price_cents"`
	Qty            int         `json:"qty"`
	// Stock is advisory, for UI affordances only. Checkout enforces the
	// real stock level with a guarded decrement.
	Stock int `json:"stock"`
}

// Aggregator maintains an ordered set of cart lines keyed by product ID.
// Adding an existing product increments its quantity in place; line order is
// insertion order and survives quantity updates.
type Aggregator struct {
	lines []Line
}

// NewAggregator builds an aggregator from existing lines. Lines with a zero
// or negative quantity, or a duplicate product ID, are dropped so a corrupt
// snapshot can never produce an invalid cart.
func NewAggregator(lines []Line) *Aggregator {
	agg := &Aggregator{lines: make([]Line, 0, len(lines))}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.Qty <= 0 || line.ProductID == uuid.Nil {
			continue
		}
		if _, dup := seen[line.ProductID]; dup {
			continue
		}
		seen[line.ProductID] = struct{}{}
		agg.lines = append(agg.lines, line)
	}
	return agg
}

// AddLine merges the given line into the cart. If the product is already
// present its quantity is incremented and the snapshot fields refreshed;
// otherwise the line is appended.
func (a *Aggregator) AddLine(line Line) {
	if line.Qty <= 0 || line.ProductID == uuid.Nil {
		return
	}
	for i := range a.lines {
		if a.lines[i].ProductID == line.ProductID {
			qty := a.lines[i].Qty + line.Qty
			a.lines[i] = line
			a.lines[i].Qty = qty
			return
		}
	}
	a.lines = append(a.lines, line)
}

// SetQuantity replaces the quantity for a product. A quantity of zero or less
// removes the line. Returns false when the product is not in the cart.
func (a *Aggregator) SetQuantity(productID uuid.UUID, qty int) bool {
	for i := range a.lines {
		if a.lines[i].ProductID == productID {
			if qty <= 0 {
				a.lines = append(a.lines[:i], a.lines[i+1:]...)
			} else {
				a.lines[i].Qty = qty
			}
			return true
		}
	}
	return false
}

// RemoveLine deletes the product's line. Removing an absent product is a no-op.
func (a *Aggregator) RemoveLine(productID uuid.UUID) bool {
	return a.SetQuantity(productID, 0)
}

// Clear empties the cart.
func (a *Aggregator) Clear() {
	a.lines = nil
}

// Lines returns a copy of the cart lines in insertion order.
func (a *Aggregator) Lines() []Line {
	out := make([]Line, len(a.lines))
	copy(out, a.lines)
	return out
}

// Len reports the number of distinct lines.
func (a *Aggregator) Len() int {
	return len(a.lines)
}

// ItemCount sums the quantities across all lines.
func (a *Aggregator) ItemCount() int {
	total := 0
	for _, line := range a.lines {
		total += line.Qty
	}
	return total
}

// SubtotalCents sums unit price times quantity across all lines.
func (a *Aggregator) SubtotalCents() money.Cents {
	var total money.Cents
	for _, line := range a.lines {
		total += line.UnitPriceCents.Mul(line.Qty)
	}
	return total
}
