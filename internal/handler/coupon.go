package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/promokart/internal/domain/cart"
)

// ValidateCoupon previews a coupon against a cart without consuming a usage
// slot, e.g. for a "check discount" UI action. Business-rule failures come
// back as 200 with valid=false and a reason; only collaborator failures are
// server errors.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var (
		code   string
		userID string
		items  []itemRequest
	)
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			code, err = d.Str()
		case "userId":
			userID, err = d.Str()
		case "items":
			items, err = decodeItems(d)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if code == "" {
		writeError(w, http.StatusBadRequest, "code required")
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

	result, err := h.coupons.Validate(r.Context(), code, userID, lines, cart.Subtotal(lines))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cannot validate coupon")
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("valid")
	e.Bool(result.Valid)
	if result.Valid {
		e.FieldStart("code")
		e.Str(result.Coupon.Code)
		e.FieldStart("discountAmount")
		encodeMoney(&e, result.Amount)
	} else {
		e.FieldStart("error")
		e.Str(result.Reason.Error())
	}
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}
