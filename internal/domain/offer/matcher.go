package offer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/promokart/internal/domain/cart"
	"github.com/xenking/promokart/internal/domain/discount"
)

// Match is the outcome of evaluating a single offer against a cart snapshot.
type Match struct {
	Applicable   bool
	Amount       decimal.Decimal
	Description  string
	FreeShipping bool
}

var notApplicable = Match{Amount: decimal.Zero}

// Evaluate determines whether the offer applies to the cart and computes its
// discount contribution. Offers are assumed well-formed (enforced at write
// time); a malformed offer simply fails its branch condition.
func Evaluate(o *Offer, lines []cart.Line, subtotal decimal.Decimal, now time.Time) Match {
	// Minimum purchase gates every offer type.
	if o.MinPurchase.IsPositive() && subtotal.LessThan(o.MinPurchase) {
		return notApplicable
	}

	switch spec := o.Spec.(type) {
	case FlashSaleSpec:
		return matchFlashSale(o, spec, lines, now)
	case BOGOSpec:
		return matchBOGO(o, spec, lines)
	case CategorySpec:
		return matchCategory(o, spec, lines)
	case ProductSpec:
		return matchProduct(o, spec, lines)
	case BundleSpec:
		return matchBundle(o, spec, lines)
	case FreeShippingSpec:
		return matchFreeShipping(spec, subtotal)
	default:
		return notApplicable
	}
}

func matchFlashSale(o *Offer, spec FlashSaleSpec, lines []cart.Line, now time.Time) Match {
	if spec.Start != nil && spec.End != nil {
		if now.Before(*spec.Start) || now.After(*spec.End) {
			return notApplicable
		}
	}

	matched := sumMatching(lines, func(l cart.Line) bool {
		return containsString(spec.ProductIDs, l.ProductID)
	})
	if !matched.IsPositive() {
		return notApplicable
	}

	amount := discount.Calculate(matched, o.Discount)
	return Match{
		Applicable:  true,
		Amount:      amount,
		Description: fmt.Sprintf("Flash sale: %s off selected products", describeDiscount(o.Discount)),
	}
}

func matchBOGO(o *Offer, spec BOGOSpec, lines []cart.Line) Match {
	line, ok := findLine(lines, spec.ProductID)
	if !ok || line.Quantity < spec.BuyQuantity {
		return notApplicable
	}

	// The discount is literally free units at unit price; no percentage or
	// fixed calculation is involved.
	freeUnits := (line.Quantity / spec.BuyQuantity) * spec.GetQuantity
	if freeUnits > line.Quantity {
		freeUnits = line.Quantity
	}

	amount := line.UnitPrice.Mul(decimal.NewFromInt(int64(freeUnits)))
	return Match{
		Applicable: true,
		Amount:     amount,
		Description: fmt.Sprintf("Buy %d get %d free: %d free unit(s)",
			spec.BuyQuantity, spec.GetQuantity, freeUnits),
	}
}

func matchCategory(o *Offer, spec CategorySpec, lines []cart.Line) Match {
	matched := sumMatching(lines, func(l cart.Line) bool {
		return containsString(spec.Categories, l.Category)
	})
	if !matched.IsPositive() {
		return notApplicable
	}

	amount := discount.Calculate(matched, o.Discount)
	return Match{
		Applicable:  true,
		Amount:      amount,
		Description: fmt.Sprintf("%s off selected categories", describeDiscount(o.Discount)),
	}
}

func matchProduct(o *Offer, spec ProductSpec, lines []cart.Line) Match {
	matched := sumMatching(lines, func(l cart.Line) bool {
		return containsString(spec.ProductIDs, l.ProductID)
	})
	if !matched.IsPositive() {
		return notApplicable
	}

	amount := discount.Calculate(matched, o.Discount)
	return Match{
		Applicable:  true,
		Amount:      amount,
		Description: fmt.Sprintf("%s off selected products", describeDiscount(o.Discount)),
	}
}

func matchBundle(o *Offer, spec BundleSpec, lines []cart.Line) Match {
	// Every bundle item must be present with at least the required quantity.
	bundleTotal := decimal.Zero
	for _, item := range spec.Items {
		line, ok := findLine(lines, item.ProductID)
		if !ok || line.Quantity < item.Quantity {
			return notApplicable
		}
		bundleTotal = bundleTotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	// The saving may come out non-positive (bundle price above the sum of
	// parts); the aggregator's >0 rule drops such matches from the result.
	amount := bundleTotal.Sub(spec.Price)
	return Match{
		Applicable:  true,
		Amount:      amount,
		Description: fmt.Sprintf("Bundle deal: %d products for %s", len(spec.Items), spec.Price.StringFixed(2)),
	}
}

func matchFreeShipping(spec FreeShippingSpec, subtotal decimal.Decimal) Match {
	if subtotal.LessThan(spec.MinAmount) {
		return notApplicable
	}

	// No money discount; the match only raises the free-shipping flag.
	return Match{
		Applicable:   true,
		Amount:       decimal.Zero,
		Description:  fmt.Sprintf("Free shipping on orders over %s", spec.MinAmount.StringFixed(2)),
		FreeShipping: true,
	}
}

// sumMatching returns the combined line total of lines accepted by pred.
func sumMatching(lines []cart.Line, pred func(cart.Line) bool) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		if pred(l) {
			sum = sum.Add(l.Total())
		}
	}
	return sum
}

func findLine(lines []cart.Line, productID string) (cart.Line, bool) {
	for _, l := range lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return cart.Line{}, false
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func describeDiscount(spec discount.Spec) string {
	if spec.Type == discount.Percentage {
		return spec.Value.String() + "%"
	}
	return spec.Value.StringFixed(2)
}
