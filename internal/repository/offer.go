package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/promokart/internal/domain/discount"
	"github.com/xenking/promokart/internal/domain/offer"
)

const (
	getActiveOffersSQL = `SELECT id, title, offer_type, discount_type, discount_value,
		max_discount, min_purchase, valid_from, valid_until, active, priority, uses, spec
		FROM offers
		WHERE active = TRUE AND valid_from <= $1 AND valid_until >= $1
		ORDER BY created_at`

	upsertOfferSQL = `INSERT INTO offers (id, title, offer_type, discount_type, discount_value,
		max_discount, min_purchase, valid_from, valid_until, active, priority, spec)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, offer_type = EXCLUDED.offer_type,
			discount_type = EXCLUDED.discount_type, discount_value = EXCLUDED.discount_value,
			max_discount = EXCLUDED.max_discount, min_purchase = EXCLUDED.min_purchase,
			valid_from = EXCLUDED.valid_from, valid_until = EXCLUDED.valid_until,
			active = EXCLUDED.active, priority = EXCLUDED.priority, spec = EXCLUDED.spec`

	incrementOfferUsesSQL = `UPDATE offers SET uses = uses + 1 WHERE id = $1`
)

var _ offer.Repository = (*OfferRepository)(nil)

// OfferRepository implements offer.Repository backed by PostgreSQL. The
// type-specific payload lives in a JSONB column and is decoded into the
// matching Spec variant on scan.
type OfferRepository struct {
	pool *pgxpool.Pool
}

// NewOfferRepository returns an OfferRepository that uses the given pool.
func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

// GetActive returns offers with active = TRUE whose validity window contains
// now, in creation order (the engine re-sorts by priority).
func (r *OfferRepository) GetActive(ctx context.Context, now time.Time) ([]offer.Offer, error) {
	rows, err := r.pool.Query(ctx, getActiveOffersSQL, now)
	if err != nil {
		return nil, fmt.Errorf("getting active offers: %w", err)
	}
	return pgx.CollectRows(rows, scanOffer)
}

// Upsert validates and persists an offer definition. Used by the seed tool
// and admin operations; write-time validation is the only place malformed
// offers can be rejected.
func (r *OfferRepository) Upsert(ctx context.Context, o *offer.Offer) error {
	if err := o.Validate(); err != nil {
		return fmt.Errorf("validating offer %q: %w", o.ID, err)
	}

	specJSON, err := json.Marshal(o.Spec)
	if err != nil {
		return fmt.Errorf("marshaling spec for offer %q: %w", o.ID, err)
	}

	_, err = r.pool.Exec(ctx, upsertOfferSQL,
		o.ID, o.Title, string(o.Type), string(o.Discount.Type), o.Discount.Value,
		o.Discount.MaxAmount, o.MinPurchase, o.ValidFrom, o.ValidUntil,
		o.Active, o.Priority, specJSON,
	)
	if err != nil {
		return fmt.Errorf("upserting offer %q: %w", o.ID, err)
	}
	return nil
}

// IncrementUses bumps the usage counter for a confirmed offer application.
func (r *OfferRepository) IncrementUses(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, incrementOfferUsesSQL, id)
	if err != nil {
		return fmt.Errorf("incrementing uses for offer %q: %w", id, err)
	}
	return nil
}

func scanOffer(row pgx.CollectableRow) (offer.Offer, error) {
	var (
		o             offer.Offer
		offerType     string
		discountType  string
		discountValue decimal.Decimal
		maxDiscount   decimal.Decimal
		minPurchase   decimal.Decimal
		uses          int32
		priority      int32
		specJSON      []byte
	)
	err := row.Scan(
		&o.ID, &o.Title, &offerType, &discountType, &discountValue,
		&maxDiscount, &minPurchase, &o.ValidFrom, &o.ValidUntil,
		&o.Active, &priority, &uses, &specJSON,
	)
	if err != nil {
		return offer.Offer{}, err
	}

	o.Type = offer.Type(offerType)
	o.Discount.Type = discount.Type(discountType)
	o.Discount.Value = discountValue
	o.Discount.MaxAmount = maxDiscount
	o.MinPurchase = minPurchase
	o.Priority = int(priority)
	o.Uses = int(uses)

	o.Spec, err = decodeOfferSpec(o.Type, specJSON)
	if err != nil {
		return offer.Offer{}, fmt.Errorf("decoding spec for offer %q: %w", o.ID, err)
	}
	return o, nil
}

func decodeOfferSpec(typ offer.Type, data []byte) (offer.Spec, error) {
	switch typ {
	case offer.TypeFlashSale:
		var spec offer.FlashSaleSpec
		return spec, json.Unmarshal(data, &spec)
	case offer.TypeBOGO:
		var spec offer.BOGOSpec
		return spec, json.Unmarshal(data, &spec)
	case offer.TypeCategory:
		var spec offer.CategorySpec
		return spec, json.Unmarshal(data, &spec)
	case offer.TypeProduct:
		var spec offer.ProductSpec
		return spec, json.Unmarshal(data, &spec)
	case offer.TypeBundle:
		var spec offer.BundleSpec
		return spec, json.Unmarshal(data, &spec)
	case offer.TypeFreeShipping:
		var spec offer.FreeShippingSpec
		return spec, json.Unmarshal(data, &spec)
	default:
		return nil, fmt.Errorf("unknown offer type %q", typ)
	}
}
