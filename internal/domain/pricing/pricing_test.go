package pricing

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/promokart/internal/domain/cart"
	"github.com/xenking/promokart/internal/domain/coupon"
	"github.com/xenking/promokart/internal/domain/discount"
	"github.com/xenking/promokart/internal/domain/offer"
)

type mockEngine struct {
	result *offer.Result
	err    error
	calls  int
}

func (m *mockEngine) Apply(_ context.Context, _ []cart.Line, _ decimal.Decimal) (*offer.Result, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockValidator struct {
	result coupon.Result
	err    error
}

func (m *mockValidator) Validate(_ context.Context, _, _ string, _ []cart.Line, _ decimal.Decimal) (coupon.Result, error) {
	return m.result, m.err
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func noOffers() *offer.Result {
	return &offer.Result{Discount: decimal.Zero}
}

var testLines = []cart.Line{
	{ProductID: "p1", Quantity: 2, UnitPrice: d("50"), Category: "books"},
	{ProductID: "p2", Quantity: 1, UnitPrice: d("100"), Category: "toys"},
}

func TestPrice_NoDiscounts(t *testing.T) {
	p := NewPricer(&mockEngine{result: noOffers()}, &mockValidator{})

	got, err := p.Price(context.Background(), testLines, "", "u1")
	require.NoError(t, err)

	assert.True(t, d("200").Equal(got.Subtotal))
	assert.True(t, got.TotalDiscount.IsZero())
	assert.True(t, d("200").Equal(got.Total))
	assert.False(t, got.FreeShipping)
	assert.Empty(t, got.CouponCode)
}

func TestPrice_OffersAndCouponAreAdditive(t *testing.T) {
	engine := &mockEngine{result: &offer.Result{
		Discount:     d("30"),
		FreeShipping: true,
		Offers: []offer.Applied{
			{OfferID: "o1", Title: "Books", Amount: d("30")},
			{OfferID: "o2", Title: "Shipping", Amount: decimal.Zero},
		},
	}}
	validator := &mockValidator{result: coupon.Result{
		Valid:  true,
		Coupon: &coupon.Coupon{Code: "SAVE20", Discount: discount.Spec{Type: discount.Percentage, Value: d("20")}},
		Amount: d("40"),
	}}

	got, err := NewPricer(engine, validator).Price(context.Background(), testLines, "SAVE20", "u1")
	require.NoError(t, err)

	assert.True(t, d("200").Equal(got.Subtotal))
	assert.True(t, d("30").Equal(got.OfferDiscount))
	assert.True(t, d("40").Equal(got.CouponDiscount))
	assert.True(t, d("70").Equal(got.TotalDiscount))
	assert.True(t, d("130").Equal(got.Total))
	assert.True(t, got.FreeShipping)
	assert.Equal(t, "SAVE20", got.CouponCode)
	assert.Len(t, got.Offers, 2)
}

func TestPrice_TotalDiscountClampedToSubtotal(t *testing.T) {
	engine := &mockEngine{result: &offer.Result{Discount: d("150")}}
	validator := &mockValidator{result: coupon.Result{
		Valid:  true,
		Coupon: &coupon.Coupon{Code: "BIG"},
		Amount: d("150"),
	}}

	got, err := NewPricer(engine, validator).Price(context.Background(), testLines, "BIG", "u1")
	require.NoError(t, err)

	assert.True(t, d("200").Equal(got.TotalDiscount))
	assert.True(t, got.Total.IsZero())
	assert.False(t, got.Total.IsNegative())
}

func TestPrice_InvalidCouponSilentlyDropped(t *testing.T) {
	engine := &mockEngine{result: noOffers()}
	validator := &mockValidator{result: coupon.Result{
		Valid:  false,
		Reason: coupon.ErrExpired,
	}}

	got, err := NewPricer(engine, validator).Price(context.Background(), testLines, "OLD", "u1")
	require.NoError(t, err, "a cart must always price even with a stale coupon")

	assert.True(t, got.CouponDiscount.IsZero())
	assert.Empty(t, got.CouponCode)
	assert.True(t, got.CouponDropped)
	assert.ErrorIs(t, got.CouponDropReason, coupon.ErrExpired)
	assert.True(t, d("200").Equal(got.Total))
}

func TestPrice_CollaboratorFailuresPropagate(t *testing.T) {
	t.Run("offer engine", func(t *testing.T) {
		p := NewPricer(&mockEngine{err: errors.New("db down")}, &mockValidator{})

		_, err := p.Price(context.Background(), testLines, "", "u1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "apply offers")
	})

	t.Run("coupon validator", func(t *testing.T) {
		p := NewPricer(&mockEngine{result: noOffers()}, &mockValidator{err: errors.New("db down")})

		_, err := p.Price(context.Background(), testLines, "SAVE", "u1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validate coupon")
	})
}

func TestPrice_Idempotent(t *testing.T) {
	engine := &mockEngine{result: &offer.Result{Discount: d("10")}}
	validator := &mockValidator{result: coupon.Result{
		Valid:  true,
		Coupon: &coupon.Coupon{Code: "SAVE"},
		Amount: d("5"),
	}}
	p := NewPricer(engine, validator)

	first, err := p.Price(context.Background(), testLines, "SAVE", "u1")
	require.NoError(t, err)
	second, err := p.Price(context.Background(), testLines, "SAVE", "u1")
	require.NoError(t, err)

	assert.True(t, first.Total.Equal(second.Total))
	assert.True(t, first.TotalDiscount.Equal(second.TotalDiscount))
	assert.Equal(t, 2, engine.calls, "every pricing call recomputes from scratch")
}
