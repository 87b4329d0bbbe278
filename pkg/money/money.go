// Package money provides cents-based currency arithmetic for order pricing.
// All persisted and wire amounts are integer cents; decimal.Decimal is used
// only for intermediate math such as applying a tax rate, so no float ever
// touches a price.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is an amount of USD expressed in integer cents.
type Cents int64

// FromCents is a readability helper for literals at call sites.
func FromCents(v int64) Cents {
	return Cents(v)
}

// Decimal returns the amount in dollars as an exact decimal.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String renders the amount as dollars, e.g. 5360 -> "53.60".
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// Mul multiplies the amount by a quantity.
func (c Cents) Mul(qty int) Cents {
	return c * Cents(qty)
}

// ApplyRate multiplies the amount by a decimal rate and rounds half-up to the
// nearest cent. Used for tax: ApplyRate(0.08) on 4500 yields 360.
func (c Cents) ApplyRate(rate decimal.Decimal) Cents {
	dollars := c.Decimal().Mul(rate)
	return Cents(dollars.Shift(2).Round(0).IntPart())
}

// ParseRate parses a decimal rate such as "0.08". Rates must be non-negative.
func ParseRate(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing rate %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("rate %q must not be negative", s)
	}
	return d, nil
}
