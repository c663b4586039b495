// Package handler exposes the pricing engine over HTTP. Request and response
// bodies are encoded with go-faster/jx.
package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/promokart/internal/domain/coupon"
	"github.com/xenking/promokart/internal/domain/order"
	"github.com/xenking/promokart/internal/domain/pricing"
	"github.com/xenking/promokart/internal/domain/product"
)

// maxBodyBytes bounds request bodies to keep decode cost predictable.
const maxBodyBytes = 1 << 20

// Handler serves the public API: product catalog, cart pricing preview,
// standalone coupon validation, and order placement.
type Handler struct {
	products product.Repository
	pricer   *pricing.Pricer
	coupons  *coupon.Validator
	orders   *order.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	pricer *pricing.Pricer,
	coupons *coupon.Validator,
	orders *order.Service,
) *Handler {
	return &Handler{
		products: products,
		pricer:   pricer,
		coupons:  coupons,
		orders:   orders,
	}
}

// Register mounts all API routes on the mux. The orders route goes through
// the API key middleware; everything else is public.
func (h *Handler) Register(mux *http.ServeMux, secure func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("POST /api/cart/price", h.PriceCart)
	mux.HandleFunc("POST /api/coupons/validate", h.ValidateCoupon)
	mux.Handle("POST /api/orders", secure(http.HandlerFunc(h.PlaceOrder)))
}

// itemRequest is the wire form of a single cart position.
type itemRequest struct {
	ProductID string
	Quantity  int
}

// decodeItems reads an items array of {productId, quantity} objects.
func decodeItems(d *jx.Decoder) ([]itemRequest, error) {
	var items []itemRequest
	err := d.Arr(func(d *jx.Decoder) error {
		var item itemRequest
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "productId":
				item.ProductID, err = d.Str()
			case "quantity":
				item.Quantity, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	return items, err
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, &e)
}

func encodeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.Float64(v.Round(2).InexactFloat64())
}
