// Package checkout computes order totals and drives the payment handoff for a session cart.
package checkout

import "github.com/abgdnv/bathifarms/internal/cart"

const (
	DefaultShipping   int64 = 100
	DefaultTaxPercent int64 = 18
)

// Rules are the pricing rules applied on top of the cart subtotal.
type Rules struct {
	Shipping   int64
	TaxPercent int64
}

// Totals are derived from the cart on every request and never stored. All values in whole rupees.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// Calculate applies rules to items. Tax is rounded half up.
func Calculate(items []cart.LineItem, rules Rules) Totals {
	subtotal := cart.Subtotal(items)
	tax := (subtotal*rules.TaxPercent + 50) / 100
	return Totals{
		Subtotal: subtotal,
		Shipping: rules.Shipping,
		Tax:      tax,
		Total:    subtotal + rules.Shipping + tax,
	}
}

// AmountMinor is the total in paise as the gateway expects it, never below 1.
func (t Totals) AmountMinor() int64 {
	return max(1, t.Total*100)
}
