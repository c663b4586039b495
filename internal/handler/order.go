package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/promokart/internal/domain/order"
)

// PlaceOrder confirms a cart as an order: prices it, persists it, and redeems
// the coupon. Unlike pricing previews, a stale coupon is rejected here rather
// than silently dropped.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var req order.PlaceOrderRequest
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "items":
			var items []itemRequest
			items, err = decodeItems(d)
			req.Items = make([]order.Item, len(items))
			for i, item := range items {
				req.Items[i] = order.Item{ProductID: item.ProductID, Quantity: item.Quantity}
			}
		case "couponCode":
			req.CouponCode, err = d.Str()
		case "userId":
			req.UserID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		writeOrderError(w, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("id")
	e.Str(result.Order.ID)
	e.FieldStart("subtotal")
	encodeMoney(&e, result.Order.Subtotal)
	e.FieldStart("offerDiscount")
	encodeMoney(&e, result.Order.OfferDiscount)
	e.FieldStart("couponDiscount")
	encodeMoney(&e, result.Order.CouponDiscount)
	e.FieldStart("total")
	encodeMoney(&e, result.Order.Total)
	e.FieldStart("freeShipping")
	e.Bool(result.Order.FreeShipping)
	if result.Order.CouponCode != "" {
		e.FieldStart("couponCode")
		e.Str(result.Order.CouponCode)
	}
	e.FieldStart("items")
	e.ArrStart()
	for _, item := range result.Order.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(item.ProductID)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("products")
	e.ArrStart()
	for i := range result.Products {
		encodeProduct(&e, &result.Products[i])
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusCreated, &e)
}

// writeOrderError maps domain errors to HTTP responses.
func writeOrderError(w http.ResponseWriter, err error) {
	if errors.Is(err, order.ErrEmptyItems) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		writeError(w, http.StatusUnprocessableEntity, iqErr.Error())
		return
	}

	var pnfErr *order.ProductNotFoundError
	if errors.As(err, &pnfErr) {
		writeError(w, http.StatusUnprocessableEntity, pnfErr.Error())
		return
	}

	var stockErr *order.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeError(w, http.StatusUnprocessableEntity, stockErr.Error())
		return
	}

	var couponErr *order.CouponRejectedError
	if errors.As(err, &couponErr) {
		writeError(w, http.StatusUnprocessableEntity, couponErr.Reason.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, "cannot place order")
}
