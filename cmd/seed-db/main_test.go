package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/promokart/internal/domain/discount"
	"github.com/xenking/promokart/internal/domain/offer"
)

func TestDemoOffers(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	offers := demoOffers(now)

	require.Len(t, offers, 6)

	seen := make(map[offer.Type]bool, len(offers))
	for _, o := range offers {
		assert.NoError(t, o.Validate(), "offer %s", o.ID)
		seen[o.Type] = true

		switch o.Type {
		case offer.TypeBundle, offer.TypeFreeShipping:
			// Discount comes from the bundle price / shipping flag.
		default:
			assert.Contains(t, []discount.Type{discount.Percentage, discount.Fixed},
				o.Discount.Type, "offer %s", o.ID)
		}
	}
	assert.Len(t, seen, 6, "every offer type should be represented")
}

func TestDemoCoupons(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	coupons := demoCoupons(now)

	require.Len(t, coupons, 3)
	for _, c := range coupons {
		assert.NoError(t, c.Validate(), "coupon %s", c.Code)
		assert.Contains(t, []discount.Type{discount.Percentage, discount.Fixed},
			c.Discount.Type, "coupon %s", c.Code)
		assert.True(t, c.ValidUntil.After(now))
	}
}
