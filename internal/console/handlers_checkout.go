package console

import (
	"encoding/json"
	"net/http"

	"github.com/atelierpos/atelier/internal/checkout"
	"github.com/atelierpos/atelier/internal/commerce"
)

// ValidateDiscount handles POST /checkout/validate-discount. The code
// is checked against the cart's current subtotal; the verdict is
// advisory and re-derived at submission time.
func (h *Handler) ValidateDiscount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Code == "" {
		writeMessage(w, http.StatusUnprocessableEntity, "code is required")
		return
	}

	res, err := h.validator.Validate(r.Context(), req.Code, h.cart.Subtotal())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SubmitCheckout handles POST /checkout. A submission already in
// flight answers 409; the cart survives any failed attempt.
func (h *Handler) SubmitCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Profile       commerce.CustomerProfile `json:"profile"`
		CreateAccount bool                     `json:"create_account"`
		Password      string                   `json:"password"`
		DiscountCode  string                   `json:"discount_code"`
		Delivery      commerce.DeliveryInfo    `json:"delivery_info"`
		PaymentMethod string                   `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.orchestrator.Submit(r.Context(), checkout.Request{
		Profile:       req.Profile,
		CreateAccount: req.CreateAccount,
		Password:      req.Password,
		DiscountCode:  req.DiscountCode,
		Delivery:      req.Delivery,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"attempt_id":     result.AttemptID,
		"order":          result.Order,
		"expected_total": result.ExpectedTotal,
		"discount":       result.Discount,
	})
}
