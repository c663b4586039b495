package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/promokart/internal/domain/coupon"
	"github.com/xenking/promokart/internal/domain/discount"
)

const (
	getCouponByCodeSQL = `SELECT id, code, discount_type, discount_value, max_discount,
		min_purchase, valid_from, valid_until, usage_limit, usage_limit_per_user,
		applies_to, categories, product_ids, active, uses
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	countUserRedemptionsSQL = `SELECT COUNT(*) FROM coupon_redemptions
		WHERE coupon_id = $1 AND user_id = $2`

	// The usage counter and the redemption history move together, and the
	// increment is conditional on the limit so two concurrent orders cannot
	// both take the last remaining slot.
	redeemCouponSQL = `UPDATE coupons SET uses = uses + 1
		WHERE id = $1 AND (usage_limit = 0 OR uses < usage_limit)`

	insertRedemptionSQL = `INSERT INTO coupon_redemptions (coupon_id, user_id, order_id, used_at)
		VALUES ($1, $2, $3, $4)`

	upsertCouponSQL = `INSERT INTO coupons (id, code, discount_type, discount_value, max_discount,
		min_purchase, valid_from, valid_until, usage_limit, usage_limit_per_user,
		applies_to, categories, product_ids, active)
		VALUES ($1, UPPER($2), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (code) DO UPDATE
		SET discount_type = EXCLUDED.discount_type, discount_value = EXCLUDED.discount_value,
			max_discount = EXCLUDED.max_discount, min_purchase = EXCLUDED.min_purchase,
			valid_from = EXCLUDED.valid_from, valid_until = EXCLUDED.valid_until,
			usage_limit = EXCLUDED.usage_limit, usage_limit_per_user = EXCLUDED.usage_limit_per_user,
			applies_to = EXCLUDED.applies_to, categories = EXCLUDED.categories,
			product_ids = EXCLUDED.product_ids, active = EXCLUDED.active`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive).
// Returns coupon.ErrNotFound when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// CountUserRedemptions returns how many times the user has redeemed the coupon.
func (r *CouponRepository) CountUserRedemptions(ctx context.Context, couponID, userID string) (int, error) {
	var count int64
	err := r.pool.QueryRow(ctx, countUserRedemptionsSQL, couponID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting redemptions for coupon %q: %w", couponID, err)
	}
	return int(count), nil
}

// Redeem takes a usage slot and appends a redemption record in one
// transaction. Returns coupon.ErrUsageLimit when the conditional increment
// matches no row, i.e. the global limit is already exhausted.
func (r *CouponRepository) Redeem(ctx context.Context, couponID, userID, orderID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning redeem transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, redeemCouponSQL, couponID)
	if err != nil {
		return fmt.Errorf("incrementing uses for coupon %q: %w", couponID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrUsageLimit
	}

	if _, err := tx.Exec(ctx, insertRedemptionSQL, couponID, userID, orderID, time.Now().UTC()); err != nil {
		return fmt.Errorf("recording redemption for coupon %q: %w", couponID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing redeem for coupon %q: %w", couponID, err)
	}
	return nil
}

// Upsert validates and persists a coupon definition. Codes are stored
// upper-cased.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validating coupon %q: %w", c.Code, err)
	}

	appliesTo := c.AppliesTo
	if appliesTo == "" {
		appliesTo = coupon.ScopeAll
	}

	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		c.ID, c.Code, string(c.Discount.Type), c.Discount.Value, c.Discount.MaxAmount,
		c.MinPurchase, c.ValidFrom, c.ValidUntil, int32(c.UsageLimit), int32(c.UsageLimitPerUser),
		string(appliesTo), c.Categories, c.ProductIDs, c.Active,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c                 coupon.Coupon
		discountType      string
		discountValue     decimal.Decimal
		maxDiscount       decimal.Decimal
		minPurchase       decimal.Decimal
		usageLimit        int32
		usageLimitPerUser int32
		appliesTo         string
		uses              int32
	)
	err := row.Scan(
		&c.ID, &c.Code, &discountType, &discountValue, &maxDiscount,
		&minPurchase, &c.ValidFrom, &c.ValidUntil, &usageLimit, &usageLimitPerUser,
		&appliesTo, &c.Categories, &c.ProductIDs, &c.Active, &uses,
	)
	c.Discount = discount.Spec{
		Type:      discount.Type(discountType),
		Value:     discountValue,
		MaxAmount: maxDiscount,
	}
	c.MinPurchase = minPurchase
	c.UsageLimit = int(usageLimit)
	c.UsageLimitPerUser = int(usageLimitPerUser)
	c.AppliesTo = coupon.Scope(appliesTo)
	c.Uses = int(uses)
	return c, err
}
