// Package pricing computes the authoritative order totals. Checkout never
// trusts client-submitted amounts; it recomputes them here from catalog prices
// and compares.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nmoralesdev/storefront-backend/pkg/config"
	"github.com/nmoralesdev/storefront-backend/pkg/money"
)

// Calculator applies the configured tax rate and shipping rule to a subtotal.
type Calculator struct {
	taxRate               decimal.Decimal
	freeShippingThreshold money.Cents
	flatShipping          money.Cents
}

// Quote is the server-computed price breakdown for an order.
type Quote struct {
	ItemsCents    money.Cents
	TaxCents      money.Cents
	ShippingCents money.Cents
	TotalCents    money.Cents
}

// NewCalculator validates the pricing configuration and returns a calculator.
func NewCalculator(cfg config.PricingConfig) (*Calculator, error) {
	rate, err := money.ParseRate(cfg.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("invalid tax rate: %w", err)
	}
	if cfg.FreeShippingThresholdCents < 0 {
		return nil, fmt.Errorf("free shipping threshold must not be negative")
	}
	if cfg.FlatShippingCents < 0 {
		return nil, fmt.Errorf("flat shipping fee must not be negative")
	}
	return &Calculator{
		taxRate:               rate,
		freeShippingThreshold: money.Cents(cfg.FreeShippingThresholdCents),
		flatShipping:          money.Cents(cfg.FlatShippingCents),
	}, nil
}

// Quote computes tax, shipping, and total for the given item subtotal.
// Orders at or above the free-shipping threshold ship free; everything else
// pays the flat fee. Tax is rounded half-up to the nearest cent.
func (c *Calculator) Quote(itemsCents money.Cents) Quote {
	tax := itemsCents.ApplyRate(c.taxRate)
	shipping := c.flatShipping
	if itemsCents >= c.freeShippingThreshold {
		shipping = 0
	}
	return Quote{
		ItemsCents:    itemsCents,
		TaxCents:      tax,
		ShippingCents: shipping,
		TotalCents:    itemsCents + tax + shipping,
	}
}
