package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/promokart/internal/domain/cart"
	"github.com/xenking/promokart/internal/domain/discount"
	"github.com/xenking/promokart/internal/domain/product"
)

// Result is the outcome of validating a coupon against a cart. Business-rule
// failures set Valid=false with the failure in Reason; the coupon and amount
// are populated only on success.
type Result struct {
	Valid  bool
	Coupon *Coupon
	Amount decimal.Decimal
	Reason error
}

// Validator checks coupon codes against a cart snapshot. Validation is a
// pure preview: it never consumes usage slots, so repeatedly pricing a cart
// is safe. Redemption happens separately via Repository.Redeem.
type Validator struct {
	coupons Repository
	catalog product.Repository
	now     func() time.Time
}

// NewValidator creates a Validator. The catalog repository resolves product
// categories for category-scoped coupons when cart lines omit them.
func NewValidator(coupons Repository, catalog product.Repository) *Validator {
	return &Validator{coupons: coupons, catalog: catalog, now: time.Now}
}

func invalid(reason error) Result {
	return Result{Reason: reason, Amount: decimal.Zero}
}

// Validate runs the ordered business checks and computes the coupon's
// discount over the full cart total. It returns a non-nil error only for
// collaborator failures; every business-rule failure is reported through
// the Result.
func (v *Validator) Validate(ctx context.Context, code, userID string, lines []cart.Line, total decimal.Decimal) (Result, error) {
	c, err := v.coupons.FindByCode(ctx, strings.ToUpper(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid(ErrNotFound), nil
		}
		return Result{}, errors.Wrap(err, "lookup coupon")
	}

	if !c.Active {
		return invalid(ErrInactive), nil
	}

	now := v.now()
	if !c.ValidFrom.IsZero() && now.Before(c.ValidFrom) {
		return invalid(ErrNotYetValid), nil
	}
	if !c.ValidUntil.IsZero() && now.After(c.ValidUntil) {
		return invalid(ErrExpired), nil
	}

	if c.UsageLimit > 0 && c.Uses >= c.UsageLimit {
		return invalid(ErrUsageLimit), nil
	}

	if c.UsageLimitPerUser > 0 && userID != "" {
		used, err := v.coupons.CountUserRedemptions(ctx, c.ID, userID)
		if err != nil {
			return Result{}, errors.Wrap(err, "count user redemptions")
		}
		if used >= c.UsageLimitPerUser {
			return invalid(ErrUserUsageLimit), nil
		}
	}

	if c.MinPurchase.IsPositive() && total.LessThan(c.MinPurchase) {
		return invalid(&MinPurchaseError{Min: c.MinPurchase}), nil
	}

	ok, err := v.inScope(ctx, c, lines)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return invalid(ErrNotApplicable), nil
	}

	// Unlike product/category offers, a coupon discounts the whole order.
	amount := discount.Calculate(total, c.Discount)

	return Result{Valid: true, Coupon: c, Amount: amount}, nil
}

// inScope reports whether at least one cart line satisfies the coupon's
// applicability scope.
func (v *Validator) inScope(ctx context.Context, c *Coupon, lines []cart.Line) (bool, error) {
	switch c.AppliesTo {
	case ScopeProduct:
		for _, l := range lines {
			for _, id := range c.ProductIDs {
				if l.ProductID == id {
					return true, nil
				}
			}
		}
		return false, nil

	case ScopeCategory:
		categories, err := v.lineCategories(ctx, lines)
		if err != nil {
			return false, err
		}
		for _, got := range categories {
			for _, want := range c.Categories {
				if got == want {
					return true, nil
				}
			}
		}
		return false, nil

	default: // ScopeAll
		return true, nil
	}
}

// lineCategories returns the category of every cart line, consulting the
// catalog for lines that were built without one.
func (v *Validator) lineCategories(ctx context.Context, lines []cart.Line) ([]string, error) {
	categories := make([]string, 0, len(lines))
	var missing []string
	for _, l := range lines {
		if l.Category != "" {
			categories = append(categories, l.Category)
			continue
		}
		missing = append(missing, l.ProductID)
	}

	if len(missing) > 0 {
		products, err := v.catalog.GetByIDs(ctx, missing)
		if err != nil {
			return nil, errors.Wrap(err, "resolve line categories")
		}
		for _, p := range products {
			categories = append(categories, p.Category)
		}
	}

	return categories, nil
}
