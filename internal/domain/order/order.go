package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order represents a confirmed customer order with its pricing breakdown.
type Order struct {
	ID             string
	UserID         string
	Items          []Item
	Subtotal       decimal.Decimal
	OfferDiscount  decimal.Decimal
	CouponDiscount decimal.Decimal
	Total          decimal.Decimal
	CouponCode     string
	FreeShipping   bool
	CreatedAt      time.Time
}

// Item represents a single line item in an order.
type Item struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
}
