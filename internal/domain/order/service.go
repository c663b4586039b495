package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/promokart/internal/domain/cart"
	"github.com/xenking/promokart/internal/domain/coupon"
	"github.com/xenking/promokart/internal/domain/pricing"
	"github.com/xenking/promokart/internal/domain/product"
)

// ErrEmptyItems indicates an order request with no line items.
var ErrEmptyItems = errors.New("items required")

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InsufficientStockError indicates a requested quantity exceeds catalog stock.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// CouponRejectedError indicates the supplied coupon failed validation at
// confirmation time. Unlike cart pricing, order placement does not silently
// drop a coupon: the buyer explicitly asked for it.
type CouponRejectedError struct {
	Code   string
	Reason error
}

func (e *CouponRejectedError) Error() string {
	return fmt.Sprintf("coupon %s rejected: %s", e.Code, e.Reason)
}

func (e *CouponRejectedError) Unwrap() error { return e.Reason }

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID     string
	Items      []Item
	CouponCode string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order    *Order
	Pricing  *pricing.Result
	Products []product.Product
}

// UsageCounter records confirmed offer applications. Offer usage is
// reporting data, not an eligibility gate, so increment failures are logged
// rather than failing the already-placed order.
type UsageCounter interface {
	IncrementUses(ctx context.Context, offerID string) error
}

// Service encapsulates order placement business logic.
type Service struct {
	products  product.Repository
	pricer    *pricing.Pricer
	coupons   coupon.Repository
	orders    Repository
	offerUses UsageCounter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	pricer *pricing.Pricer,
	coupons coupon.Repository,
	orders Repository,
	offerUses UsageCounter,
) *Service {
	return &Service{
		products:  products,
		pricer:    pricer,
		coupons:   coupons,
		orders:    orders,
		offerUses: offerUses,
	}
}

// PlaceOrder validates items, fetches products in a single batch, prices the
// cart (offers plus optional coupon), persists the order, and redeems the
// coupon. Redemption happens here and only here: pricing previews never
// consume usage slots.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Validate quantities and collect product IDs.
	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Verify every requested product exists and has stock, building the
	// cart snapshot as we go.
	products := make([]product.Product, 0, len(req.Items))
	lines := make([]cart.Line, len(req.Items))
	for i, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		if item.Quantity > p.Stock {
			return nil, &InsufficientStockError{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: p.Stock,
			}
		}
		products = append(products, p)
		lines[i] = cart.Line{
			ProductID: p.ID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
			Category:  p.Category,
		}
	}

	priced, err := s.pricer.Price(ctx, lines, req.CouponCode, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("price cart: %w", err)
	}
	if priced.CouponDropped {
		return nil, &CouponRejectedError{Code: req.CouponCode, Reason: priced.CouponDropReason}
	}

	o := &Order{
		ID:             uuid.New().String(),
		UserID:         req.UserID,
		Items:          req.Items,
		Subtotal:       priced.Subtotal.Round(2),
		OfferDiscount:  priced.OfferDiscount.Round(2),
		CouponDiscount: priced.CouponDiscount.Round(2),
		Total:          priced.Total.Round(2),
		CouponCode:     priced.CouponCode,
		FreeShipping:   priced.FreeShipping,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// Confirmation-time bookkeeping: one atomic conditional increment plus
	// history append. A concurrent order taking the last slot surfaces as
	// ErrUsageLimit here, not as a double redemption.
	if priced.Coupon != nil {
		if err := s.coupons.Redeem(ctx, priced.Coupon.ID, req.UserID, o.ID); err != nil {
			return nil, fmt.Errorf("redeem coupon: %w", err)
		}
	}

	for _, ap := range priced.Offers {
		if err := s.offerUses.IncrementUses(ctx, ap.OfferID); err != nil {
			zctx.From(ctx).Warn("Offer usage increment failed",
				zap.String("offer_id", ap.OfferID), zap.Error(err))
		}
	}

	return &PlaceOrderResult{
		Order:    o,
		Pricing:  priced,
		Products: products,
	}, nil
}
