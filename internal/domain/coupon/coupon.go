// Package coupon implements manually-entered discount codes: validation
// against time windows, usage limits, minimum purchase, and applicability
// scope, plus confirmation-time redemption bookkeeping.
package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/promokart/internal/domain/discount"
)

// Scope narrows which carts a coupon applies to.
type Scope string

const (
	// ScopeAll applies to every cart.
	ScopeAll Scope = "all"
	// ScopeCategory requires at least one cart line in an applicable category.
	ScopeCategory Scope = "category"
	// ScopeProduct requires at least one applicable product in the cart.
	ScopeProduct Scope = "product"
)

// Business-rule failures. These are expected, user-facing outcomes carried in
// Result.Reason, never returned as the hard error of a validation call.
var (
	ErrNotFound         = errors.New("Coupon not found")
	ErrInactive         = errors.New("Coupon is not active")
	ErrNotYetValid      = errors.New("Coupon is not yet valid")
	ErrExpired          = errors.New("Coupon has expired")
	ErrUsageLimit       = errors.New("Coupon usage limit reached")
	ErrUserUsageLimit   = errors.New("You have reached the usage limit for this coupon")
	ErrNotApplicable    = errors.New("Coupon is not applicable to items in your cart")
	ErrPercentTooLarge  = errors.New("percentage discount cannot exceed 100")
	ErrInvalidWindow    = errors.New("valid_from must precede valid_until")
	ErrEmptyCode        = errors.New("coupon code is required")
	ErrScopeNeedsValues = errors.New("scoped coupon requires categories or products")
)

// MinPurchaseError reports a cart total below the coupon's minimum purchase.
type MinPurchaseError struct {
	Min decimal.Decimal
}

func (e *MinPurchaseError) Error() string {
	return fmt.Sprintf("Minimum purchase of %s required to use this coupon", e.Min.StringFixed(2))
}

// Coupon is a manually-applied discount code. Codes are stored upper-cased
// and matched case-insensitively.
type Coupon struct {
	ID                string
	Code              string
	Discount          discount.Spec
	MinPurchase       decimal.Decimal
	ValidFrom         time.Time
	ValidUntil        time.Time
	UsageLimit        int // 0 = unlimited
	UsageLimitPerUser int // 0 = unlimited
	AppliesTo         Scope
	Categories        []string
	ProductIDs        []string
	Active            bool
	Uses              int
}

// Redemption is one confirmed use of a coupon, appended at order confirmation
// together with the usage counter increment.
type Redemption struct {
	CouponID string
	UserID   string
	OrderID  string
	UsedAt   time.Time
}

// Validate enforces write-time invariants on a coupon definition.
func (c *Coupon) Validate() error {
	if c.Code == "" {
		return ErrEmptyCode
	}
	if c.Discount.Type == discount.Percentage && c.Discount.Value.GreaterThan(decimal.NewFromInt(100)) {
		return ErrPercentTooLarge
	}
	if !c.ValidFrom.IsZero() && !c.ValidUntil.IsZero() && !c.ValidFrom.Before(c.ValidUntil) {
		return ErrInvalidWindow
	}
	switch c.AppliesTo {
	case ScopeAll, "":
	case ScopeCategory:
		if len(c.Categories) == 0 {
			return ErrScopeNeedsValues
		}
	case ScopeProduct:
		if len(c.ProductIDs) == 0 {
			return ErrScopeNeedsValues
		}
	default:
		return errors.Errorf("unknown coupon scope: %q", c.AppliesTo)
	}
	return nil
}

// Repository provides coupon lookup and redemption bookkeeping.
type Repository interface {
	// FindByCode looks up a coupon case-insensitively.
	// Returns ErrNotFound when no coupon with the code exists.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// CountUserRedemptions returns how many times the user has redeemed
	// the coupon.
	CountUserRedemptions(ctx context.Context, couponID, userID string) (int, error)
	// Redeem atomically increments the usage counter and appends a
	// redemption record; it must fail with ErrUsageLimit when the global
	// limit would be exceeded, so two concurrent orders cannot both take
	// the last remaining slot.
	Redeem(ctx context.Context, couponID, userID, orderID string) error
}
