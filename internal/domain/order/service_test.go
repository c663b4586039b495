package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/promokart/internal/domain/coupon"
	"github.com/xenking/promokart/internal/domain/discount"
	"github.com/xenking/promokart/internal/domain/offer"
	"github.com/xenking/promokart/internal/domain/pricing"
	"github.com/xenking/promokart/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]*product.Product
	getErr error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockOfferRepo struct {
	offers      []offer.Offer
	incremented []string
}

func (m *mockOfferRepo) GetActive(_ context.Context, _ time.Time) ([]offer.Offer, error) {
	return m.offers, nil
}

func (m *mockOfferRepo) IncrementUses(_ context.Context, offerID string) error {
	m.incremented = append(m.incremented, offerID)
	return nil
}

type mockCouponRepo struct {
	coupon    *coupon.Coupon
	redeemErr error
	redeemed  []string // order IDs
}

func (m *mockCouponRepo) FindByCode(_ context.Context, _ string) (*coupon.Coupon, error) {
	if m.coupon == nil {
		return nil, coupon.ErrNotFound
	}
	return m.coupon, nil
}

func (m *mockCouponRepo) CountUserRedemptions(_ context.Context, _, _ string) (int, error) {
	return 0, nil
}

func (m *mockCouponRepo) Redeem(_ context.Context, _, _, orderID string) error {
	if m.redeemErr != nil {
		return m.redeemErr
	}
	m.redeemed = append(m.redeemed, orderID)
	return nil
}

type mockOrderRepo struct {
	lastOrder *Order
	err       error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.lastOrder = o
	return m.err
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newTestProduct(id, name string, price decimal.Decimal) product.Product {
	return product.Product{
		ID:       id,
		Name:     name,
		Price:    price,
		Category: "test",
		Stock:    100,
	}
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

func newService(products *mockProductRepo, offers *mockOfferRepo, coupons *mockCouponRepo, orders *mockOrderRepo) *Service {
	pricer := pricing.NewPricer(
		offer.NewEngine(offers),
		coupon.NewValidator(coupons, products),
	)
	return NewService(products, pricer, coupons, orders, offers)
}

// --- Tests ---

func TestPlaceOrder_EmptyItems(t *testing.T) {
	svc := newService(newProductRepo(), &mockOfferRepo{}, &mockCouponRepo{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", d("10"))
	svc := newService(newProductRepo(p1), &mockOfferRepo{}, &mockCouponRepo{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []Item{{ProductID: "p1", Quantity: 0}},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	svc := newService(newProductRepo(), &mockOfferRepo{}, &mockCouponRepo{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []Item{{ProductID: "missing", Quantity: 1}},
	})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "missing", pnfErr.ProductID)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", d("10"))
	p1.Stock = 2
	svc := newService(newProductRepo(p1), &mockOfferRepo{}, &mockCouponRepo{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []Item{{ProductID: "p1", Quantity: 3}},
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)
}

func TestPlaceOrder_NoCoupon(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", d("10.00"))
	p2 := newTestProduct("p2", "Gadget", d("20.00"))
	orders := &mockOrderRepo{}
	svc := newService(newProductRepo(p1, p2), &mockOfferRepo{}, &mockCouponRepo{}, orders)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Items: []Item{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	})

	require.NoError(t, err)
	assert.True(t, d("40.00").Equal(result.Order.Total))
	assert.True(t, result.Order.CouponDiscount.IsZero())
	assert.Len(t, result.Products, 2)
	require.NotNil(t, orders.lastOrder)
}

func TestPlaceOrder_OfferAutoApplied(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", d("10.00"))
	offers := &mockOfferRepo{offers: []offer.Offer{{
		ID:       "o1",
		Title:    "Widgets 10% off",
		Type:     offer.TypeProduct,
		Discount: discount.Spec{Type: discount.Percentage, Value: d("10")},
		Spec:     offer.ProductSpec{ProductIDs: []string{"p1"}},
	}}}
	svc := newService(newProductRepo(p1), offers, &mockCouponRepo{}, &mockOrderRepo{})

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Items:  []Item{{ProductID: "p1", Quantity: 2}},
	})

	require.NoError(t, err)
	assert.True(t, d("2.00").Equal(result.Order.OfferDiscount))
	assert.True(t, d("18.00").Equal(result.Order.Total))
	require.Len(t, result.Pricing.Offers, 1)
	assert.Equal(t, "o1", result.Pricing.Offers[0].OfferID)
	assert.Equal(t, []string{"o1"}, offers.incremented)
}

func TestPlaceOrder_CouponRedeemedAtConfirmation(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", d("100.00"))
	coupons := &mockCouponRepo{coupon: &coupon.Coupon{
		ID: "c1", Code: "SAVE5", Active: true,
		Discount: discount.Spec{Type: discount.Fixed, Value: d("5")},
	}}
	svc := newService(newProductRepo(p1), &mockOfferRepo{}, coupons, &mockOrderRepo{})

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:     "u1",
		Items:      []Item{{ProductID: "p1", Quantity: 1}},
		CouponCode: "SAVE5",
	})

	require.NoError(t, err)
	assert.True(t, d("95.00").Equal(result.Order.Total))
	assert.Equal(t, "SAVE5", result.Order.CouponCode)
	require.Len(t, coupons.redeemed, 1)
	assert.Equal(t, result.Order.ID, coupons.redeemed[0])
}

func TestPlaceOrder_InvalidCouponRejected(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", d("10.00"))
	svc := newService(newProductRepo(p1), &mockOfferRepo{}, &mockCouponRepo{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:     "u1",
		Items:      []Item{{ProductID: "p1", Quantity: 1}},
		CouponCode: "BOGUS",
	})

	var rejErr *CouponRejectedError
	require.ErrorAs(t, err, &rejErr)
	assert.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestPlaceOrder_RedeemFailurePropagates(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", d("100.00"))
	coupons := &mockCouponRepo{
		coupon: &coupon.Coupon{
			ID: "c1", Code: "LAST", Active: true,
			Discount: discount.Spec{Type: discount.Fixed, Value: d("5")},
		},
		redeemErr: coupon.ErrUsageLimit,
	}
	svc := newService(newProductRepo(p1), &mockOfferRepo{}, coupons, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:     "u1",
		Items:      []Item{{ProductID: "p1", Quantity: 1}},
		CouponCode: "LAST",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, coupon.ErrUsageLimit)
}

func TestPlaceOrder_OrderCreateError(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", d("10"))
	svc := newService(
		newProductRepo(p1),
		&mockOfferRepo{},
		&mockCouponRepo{},
		&mockOrderRepo{err: errors.New("db write failed")},
	)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []Item{{ProductID: "p1", Quantity: 1}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}
