package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/promokart/internal/domain/cart"
	"github.com/xenking/promokart/internal/domain/pricing"
)

// PriceCart computes the full pricing preview for a cart: subtotal, stacked
// offer discounts, optional coupon discount, and final total. It is
// side-effect free; coupon usage slots are only consumed at order placement.
func (h *Handler) PriceCart(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var (
		items      []itemRequest
		couponCode string
		userID     string
	)
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "items":
			items, err = decodeItems(d)
		case "couponCode":
			couponCode, err = d.Str()
		case "userId":
			userID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "items required")
		return
	}

	lines, errMsg, err := h.buildLines(r, items)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cannot resolve products")
		return
	}
	if errMsg != "" {
		writeError(w, http.StatusUnprocessableEntity, errMsg)
		return
	}

	result, err := h.pricer.Price(r.Context(), lines, couponCode, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cannot price cart")
		return
	}

	var e jx.Encoder
	encodePricing(&e, result)
	writeJSON(w, http.StatusOK, &e)
}

// buildLines resolves the requested products in one batch and assembles the
// cart snapshot. The second return value carries a user-facing rejection.
func (h *Handler) buildLines(r *http.Request, items []itemRequest) ([]cart.Line, string, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, "quantity must be greater than 0 for product " + item.ProductID, nil
		}
		ids[i] = item.ProductID
	}

	products, err := h.products.GetByIDs(r.Context(), ids)
	if err != nil {
		return nil, "", err
	}
	byID := make(map[string]int, len(products))
	for i := range products {
		byID[products[i].ID] = i
	}

	lines := make([]cart.Line, len(items))
	for i, item := range items {
		idx, ok := byID[item.ProductID]
		if !ok {
			return nil, "product " + item.ProductID + " not found", nil
		}
		p := products[idx]
		lines[i] = cart.Line{
			ProductID: p.ID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
			Category:  p.Category,
		}
	}
	return lines, "", nil
}

func encodePricing(e *jx.Encoder, result *pricing.Result) {
	e.ObjStart()
	e.FieldStart("subtotal")
	encodeMoney(e, result.Subtotal)
	e.FieldStart("offerDiscount")
	encodeMoney(e, result.OfferDiscount)
	e.FieldStart("couponDiscount")
	encodeMoney(e, result.CouponDiscount)
	e.FieldStart("totalDiscount")
	encodeMoney(e, result.TotalDiscount)
	e.FieldStart("total")
	encodeMoney(e, result.Total)
	e.FieldStart("freeShipping")
	e.Bool(result.FreeShipping)
	if result.CouponCode != "" {
		e.FieldStart("couponCode")
		e.Str(result.CouponCode)
	}
	e.FieldStart("applicableOffers")
	e.ArrStart()
	for _, o := range result.Offers {
		e.ObjStart()
		e.FieldStart("offerId")
		e.Str(o.OfferID)
		e.FieldStart("title")
		e.Str(o.Title)
		e.FieldStart("description")
		e.Str(o.Description)
		e.FieldStart("discountAmount")
		encodeMoney(e, o.Amount)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
