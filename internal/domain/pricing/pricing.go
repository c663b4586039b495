// Package pricing composes the full cart pricing pipeline: subtotal,
// automatically-applied offers, and an optional coupon, clamped so the cart
// is never charged negative.
package pricing

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/promokart/internal/domain/cart"
	"github.com/xenking/promokart/internal/domain/coupon"
	"github.com/xenking/promokart/internal/domain/offer"
)

// Result is the complete pricing breakdown of a cart.
type Result struct {
	Subtotal       decimal.Decimal
	OfferDiscount  decimal.Decimal
	CouponDiscount decimal.Decimal
	TotalDiscount  decimal.Decimal
	Total          decimal.Decimal
	FreeShipping   bool
	Offers         []offer.Applied
	// CouponCode is the code that contributed CouponDiscount; empty when
	// no coupon was applied or a previously-attached coupon was dropped.
	CouponCode string
	// Coupon is the validated coupon backing CouponDiscount, nil otherwise.
	Coupon *coupon.Coupon
	// CouponDropped is set when the supplied code failed re-validation and
	// was silently detached instead of failing the pricing request;
	// CouponDropReason carries the business-rule failure.
	CouponDropped    bool
	CouponDropReason error
}

// OfferEngine aggregates active offers over a cart snapshot.
type OfferEngine interface {
	Apply(ctx context.Context, lines []cart.Line, subtotal decimal.Decimal) (*offer.Result, error)
}

// CouponValidator previews a coupon discount over a cart.
type CouponValidator interface {
	Validate(ctx context.Context, code, userID string, lines []cart.Line, total decimal.Decimal) (coupon.Result, error)
}

// Pricer computes a cart's final payable total. It is side-effect free and
// recomputes everything from scratch on every call; there is no cached
// pricing state.
type Pricer struct {
	offers  OfferEngine
	coupons CouponValidator
}

// NewPricer creates a Pricer from the offer engine and coupon validator.
func NewPricer(offers OfferEngine, coupons CouponValidator) *Pricer {
	return &Pricer{offers: offers, coupons: coupons}
}

// Price runs the full pipeline over the cart lines. An attached coupon that
// fails re-validation (expired, limit reached, scope changed) is silently
// dropped so the cart always prices successfully; collaborator failures
// abort the whole request.
func (p *Pricer) Price(ctx context.Context, lines []cart.Line, couponCode, userID string) (*Result, error) {
	subtotal := cart.Subtotal(lines)

	offers, err := p.offers.Apply(ctx, lines, subtotal)
	if err != nil {
		return nil, errors.Wrap(err, "apply offers")
	}

	result := &Result{
		Subtotal:       subtotal,
		OfferDiscount:  offers.Discount,
		CouponDiscount: decimal.Zero,
		FreeShipping:   offers.FreeShipping,
		Offers:         offers.Offers,
	}

	if couponCode != "" {
		validation, err := p.coupons.Validate(ctx, couponCode, userID, lines, subtotal)
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		if validation.Valid {
			result.CouponDiscount = validation.Amount
			result.CouponCode = validation.Coupon.Code
			result.Coupon = validation.Coupon
		} else {
			result.CouponDropped = true
			result.CouponDropReason = validation.Reason
		}
	}

	result.TotalDiscount = result.OfferDiscount.Add(result.CouponDiscount)
	if result.TotalDiscount.GreaterThan(subtotal) {
		result.TotalDiscount = subtotal
	}
	result.Total = subtotal.Sub(result.TotalDiscount)

	return result, nil
}
