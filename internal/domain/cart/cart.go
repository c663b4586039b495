// Package cart defines the ephemeral cart snapshot the pricing pipeline
// operates on. Lines are derived per request by the caller and are never
// persisted here.
package cart

import (
	"github.com/shopspring/decimal"
)

// Line is a single cart position at the moment of pricing.
type Line struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Category  string
}

// Total returns unit price times quantity for this line.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Subtotal returns the sum of line totals before any discount.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total())
	}
	return sum
}
