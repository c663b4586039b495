package offer

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/promokart/internal/domain/cart"
)

// Applied is an offer that contributed to the cart's pricing result.
type Applied struct {
	OfferID     string
	Title       string
	Description string
	Amount      decimal.Decimal
}

// Result aggregates all eligible offers over a cart snapshot.
type Result struct {
	Offers       []Applied
	Discount     decimal.Decimal
	FreeShipping bool
}

// Engine runs every active offer against a cart and stacks their discounts.
// It is read-only: usage counters are incremented elsewhere, at order
// confirmation, never during pricing.
type Engine struct {
	offers Repository
	now    func() time.Time
}

// NewEngine creates an Engine backed by the given offer repository.
func NewEngine(offers Repository) *Engine {
	return &Engine{offers: offers, now: time.Now}
}

// Apply evaluates all active offers against the cart. Offers are additive:
// every eligible offer stacks, and priority only orders the listing. The
// combined discount is clamped to the subtotal.
func (e *Engine) Apply(ctx context.Context, lines []cart.Line, subtotal decimal.Decimal) (*Result, error) {
	now := e.now()

	active, err := e.offers.GetActive(ctx, now)
	if err != nil {
		return nil, errors.Wrap(err, "get active offers")
	}

	// Higher priority lists first; stable so equal priorities keep
	// repository order.
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority > active[j].Priority
	})

	result := &Result{Discount: decimal.Zero}
	for i := range active {
		o := &active[i]

		m := Evaluate(o, lines, subtotal, now)
		if !m.Applicable {
			continue
		}
		// Free shipping is listed even at zero amount so the flag
		// propagates; everything else must produce a positive saving.
		if !m.FreeShipping && !m.Amount.IsPositive() {
			continue
		}

		if m.FreeShipping {
			result.FreeShipping = true
		}
		result.Offers = append(result.Offers, Applied{
			OfferID:     o.ID,
			Title:       o.Title,
			Description: m.Description,
			Amount:      m.Amount,
		})
		result.Discount = result.Discount.Add(m.Amount)
	}

	// Stacked offers can legitimately exceed the subtotal; the cart is
	// never charged negative.
	if result.Discount.GreaterThan(subtotal) {
		result.Discount = subtotal
	}

	return result, nil
}
