// Package offer implements automatically-applied promotional offers: the six
// offer types, per-type cart matching, and the aggregation of all eligible
// offers into a single discount.
package offer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/promokart/internal/domain/discount"
)

// Type enumerates the supported offer kinds. Each offer carries exactly one
// type and its companion Spec variant.
type Type string

const (
	TypeFlashSale    Type = "flash_sale"
	TypeBOGO         Type = "bogo"
	TypeCategory     Type = "category_discount"
	TypeProduct      Type = "product_discount"
	TypeBundle       Type = "bundle"
	TypeFreeShipping Type = "free_shipping"
)

// Validation errors reported at offer creation time. The matching path
// assumes persisted offers are well-formed.
var (
	ErrUnknownType     = errors.New("unknown offer type")
	ErrSpecMismatch    = errors.New("offer spec does not match offer type")
	ErrInvalidWindow   = errors.New("valid_from must precede valid_until")
	ErrMissingProducts = errors.New("offer requires at least one applicable product")
)

// Offer is a promotional rule applied automatically to eligible carts.
// Read-only to the pricing engine; only Uses is mutated elsewhere, at order
// confirmation.
type Offer struct {
	ID          string
	Title       string
	Type        Type
	Discount    discount.Spec
	MinPurchase decimal.Decimal
	ValidFrom   time.Time
	ValidUntil  time.Time
	Active      bool
	Priority    int
	Uses        int
	Spec        Spec
}

// Spec is the type-specific payload of an offer. Exactly one variant exists
// per offer Type; Match dispatches on the concrete type.
type Spec interface {
	offerSpec()
}

// FlashSaleSpec discounts a set of products inside a sale window.
type FlashSaleSpec struct {
	Start      *time.Time `json:"start,omitempty"`
	End        *time.Time `json:"end,omitempty"`
	ProductIDs []string   `json:"product_ids"`
}

// BOGOSpec grants free units of a product: buy BuyQuantity, get GetQuantity.
type BOGOSpec struct {
	ProductID   string `json:"product_id"`
	BuyQuantity int    `json:"buy_quantity"`
	GetQuantity int    `json:"get_quantity"`
}

// CategorySpec discounts all cart lines in the given categories.
type CategorySpec struct {
	Categories []string `json:"categories"`
}

// ProductSpec discounts specific products.
type ProductSpec struct {
	ProductIDs []string `json:"product_ids"`
}

// BundleItem is a product and the quantity required for the bundle.
type BundleItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// BundleSpec sells a fixed set of products at a combined price.
type BundleSpec struct {
	Items []BundleItem    `json:"items"`
	Price decimal.Decimal `json:"price"`
}

// FreeShippingSpec waives shipping above a minimum cart amount.
type FreeShippingSpec struct {
	MinAmount decimal.Decimal `json:"min_amount"`
}

func (FlashSaleSpec) offerSpec()    {}
func (BOGOSpec) offerSpec()         {}
func (CategorySpec) offerSpec()     {}
func (ProductSpec) offerSpec()      {}
func (BundleSpec) offerSpec()       {}
func (FreeShippingSpec) offerSpec() {}

// Validate enforces the type-conditioned required fields at write time.
func (o *Offer) Validate() error {
	if !o.ValidFrom.IsZero() && !o.ValidUntil.IsZero() && !o.ValidFrom.Before(o.ValidUntil) {
		return ErrInvalidWindow
	}

	switch spec := o.Spec.(type) {
	case FlashSaleSpec:
		if o.Type != TypeFlashSale {
			return ErrSpecMismatch
		}
		if len(spec.ProductIDs) == 0 {
			return ErrMissingProducts
		}
		if (spec.Start == nil) != (spec.End == nil) {
			return errors.New("flash sale window requires both start and end")
		}
		if spec.Start != nil && !spec.Start.Before(*spec.End) {
			return errors.New("flash sale start must precede end")
		}
	case BOGOSpec:
		if o.Type != TypeBOGO {
			return ErrSpecMismatch
		}
		if spec.ProductID == "" {
			return ErrMissingProducts
		}
		if spec.BuyQuantity <= 0 || spec.GetQuantity <= 0 {
			return errors.New("bogo quantities must be positive")
		}
	case CategorySpec:
		if o.Type != TypeCategory {
			return ErrSpecMismatch
		}
		if len(spec.Categories) == 0 {
			return errors.New("category offer requires at least one category")
		}
	case ProductSpec:
		if o.Type != TypeProduct {
			return ErrSpecMismatch
		}
		if len(spec.ProductIDs) == 0 {
			return ErrMissingProducts
		}
	case BundleSpec:
		if o.Type != TypeBundle {
			return ErrSpecMismatch
		}
		if len(spec.Items) == 0 {
			return errors.New("bundle requires at least one item")
		}
		for _, item := range spec.Items {
			if item.ProductID == "" || item.Quantity <= 0 {
				return errors.New("bundle items require a product and positive quantity")
			}
		}
		if !spec.Price.IsPositive() {
			return errors.New("bundle price must be positive")
		}
	case FreeShippingSpec:
		if o.Type != TypeFreeShipping {
			return ErrSpecMismatch
		}
		if spec.MinAmount.IsNegative() {
			return errors.New("free shipping minimum must not be negative")
		}
	default:
		return ErrUnknownType
	}

	return nil
}

// Repository provides read access to promotional offers.
type Repository interface {
	// GetActive returns offers with active = TRUE whose validity window
	// contains now. Filtering happens repository-side.
	GetActive(ctx context.Context, now time.Time) ([]Offer, error)
}
