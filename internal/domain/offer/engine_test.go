package offer

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/promokart/internal/domain/cart"
	"github.com/xenking/promokart/internal/domain/discount"
)

type mockOfferRepo struct {
	offers []Offer
	err    error
}

func (m *mockOfferRepo) GetActive(_ context.Context, _ time.Time) ([]Offer, error) {
	return m.offers, m.err
}

func newEngineAt(repo Repository, now time.Time) *Engine {
	e := NewEngine(repo)
	e.now = func() time.Time { return now }
	return e
}

func TestEngineApply_StackingIsAdditive(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	lines := []cart.Line{
		line("p1", 1, "100", "books"),
		line("p2", 1, "50", "toys"),
	}

	repo := &mockOfferRepo{offers: []Offer{
		{
			ID:       "o1",
			Title:    "Books sale",
			Type:     TypeCategory,
			Priority: 1,
			Discount: discount.Spec{Type: discount.Percentage, Value: d("10")},
			Spec:     CategorySpec{Categories: []string{"books"}},
		},
		{
			ID:       "o2",
			Title:    "Free shipping",
			Type:     TypeFreeShipping,
			Priority: 5,
			Spec:     FreeShippingSpec{MinAmount: d("100")},
		},
	}}

	result, err := newEngineAt(repo, now).Apply(context.Background(), lines, cart.Subtotal(lines))
	require.NoError(t, err)

	require.Len(t, result.Offers, 2)
	// Priority orders the listing: free shipping (5) before books sale (1).
	assert.Equal(t, "o2", result.Offers[0].OfferID)
	assert.Equal(t, "o1", result.Offers[1].OfferID)
	assert.True(t, d("10").Equal(result.Discount), "got %s", result.Discount)
	assert.True(t, result.FreeShipping)
}

func TestEngineApply_ZeroAmountOffersExcludedExceptFreeShipping(t *testing.T) {
	now := time.Now()
	lines := []cart.Line{line("p1", 1, "200", "books")}

	repo := &mockOfferRepo{offers: []Offer{
		{
			ID:   "bundle",
			Type: TypeBundle,
			Spec: BundleSpec{
				Items: []BundleItem{{ProductID: "p1", Quantity: 1}},
				Price: d("250"), // no saving
			},
		},
		{
			ID:   "ship",
			Type: TypeFreeShipping,
			Spec: FreeShippingSpec{MinAmount: d("100")},
		},
	}}

	result, err := newEngineAt(repo, now).Apply(context.Background(), lines, d("200"))
	require.NoError(t, err)

	require.Len(t, result.Offers, 1)
	assert.Equal(t, "ship", result.Offers[0].OfferID)
	assert.True(t, result.Discount.IsZero())
	assert.True(t, result.FreeShipping)
}

func TestEngineApply_DiscountClampedToSubtotal(t *testing.T) {
	now := time.Now()
	lines := []cart.Line{line("p1", 1, "100", "books")}

	repo := &mockOfferRepo{offers: []Offer{
		{
			ID:       "o1",
			Type:     TypeProduct,
			Discount: discount.Spec{Type: discount.Fixed, Value: d("80")},
			Spec:     ProductSpec{ProductIDs: []string{"p1"}},
		},
		{
			ID:       "o2",
			Type:     TypeCategory,
			Discount: discount.Spec{Type: discount.Fixed, Value: d("80")},
			Spec:     CategorySpec{Categories: []string{"books"}},
		},
	}}

	result, err := newEngineAt(repo, now).Apply(context.Background(), lines, d("100"))
	require.NoError(t, err)

	require.Len(t, result.Offers, 2)
	assert.True(t, d("100").Equal(result.Discount), "got %s", result.Discount)
}

func TestEngineApply_PrioritySortIsStable(t *testing.T) {
	now := time.Now()
	lines := []cart.Line{line("p1", 1, "100", "books")}

	repo := &mockOfferRepo{offers: []Offer{
		{
			ID: "first", Type: TypeProduct, Priority: 3,
			Discount: discount.Spec{Type: discount.Fixed, Value: d("1")},
			Spec:     ProductSpec{ProductIDs: []string{"p1"}},
		},
		{
			ID: "second", Type: TypeCategory, Priority: 3,
			Discount: discount.Spec{Type: discount.Fixed, Value: d("1")},
			Spec:     CategorySpec{Categories: []string{"books"}},
		},
	}}

	result, err := newEngineAt(repo, now).Apply(context.Background(), lines, d("100"))
	require.NoError(t, err)

	require.Len(t, result.Offers, 2)
	assert.Equal(t, "first", result.Offers[0].OfferID)
	assert.Equal(t, "second", result.Offers[1].OfferID)
}

func TestEngineApply_RepositoryError(t *testing.T) {
	repo := &mockOfferRepo{err: errors.New("db down")}

	_, err := NewEngine(repo).Apply(context.Background(), nil, decimal.Zero)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get active offers")
}

func TestEngineApply_Idempotent(t *testing.T) {
	now := time.Now()
	lines := []cart.Line{line("p1", 3, "10", "books")}

	repo := &mockOfferRepo{offers: []Offer{
		{
			ID: "o1", Type: TypeBOGO,
			Spec: BOGOSpec{ProductID: "p1", BuyQuantity: 2, GetQuantity: 1},
		},
	}}

	e := newEngineAt(repo, now)
	first, err := e.Apply(context.Background(), lines, cart.Subtotal(lines))
	require.NoError(t, err)
	second, err := e.Apply(context.Background(), lines, cart.Subtotal(lines))
	require.NoError(t, err)

	assert.True(t, first.Discount.Equal(second.Discount))
	assert.Equal(t, len(first.Offers), len(second.Offers))
}
