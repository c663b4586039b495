// Package discount implements the bounded discount calculation shared by
// promotional offers and coupons.
package discount

import (
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// Percentage applies a percentage-based discount to the base amount.
	Percentage Type = "percentage"
	// Fixed applies a fixed monetary discount capped at the base amount.
	Fixed Type = "fixed"
)

var hundred = decimal.NewFromInt(100)

// Spec describes how much to discount and an optional cap.
type Spec struct {
	Type  Type
	Value decimal.Decimal
	// MaxAmount caps a percentage discount. Zero means uncapped.
	MaxAmount decimal.Decimal
}

// Calculate returns the discount for the given base amount. The result is
// rounded half-up to 2 decimal places and clamped to [0, base]: a discount
// can never exceed the amount it discounts.
func Calculate(base decimal.Decimal, spec Spec) decimal.Decimal {
	var amount decimal.Decimal

	switch spec.Type {
	case Percentage:
		amount = base.Mul(spec.Value).Div(hundred).Round(2)
		if spec.MaxAmount.IsPositive() && amount.GreaterThan(spec.MaxAmount) {
			amount = spec.MaxAmount
		}
	case Fixed:
		amount = spec.Value
	default:
		return decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(base) {
		return base
	}
	return amount
}
