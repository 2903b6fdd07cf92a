package console

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atelierpos/atelier/internal/cart"
	"github.com/atelierpos/atelier/internal/catalog"
)

// GetCart handles GET /cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"lines":      h.cart.Lines(),
		"item_count": h.cart.ItemCount(),
		"subtotal":   h.cart.Subtotal(),
	})
}

// AddCartItem handles POST /cart/items. The product is re-fetched from
// the catalog so the resolver works over current stock, and the add is
// blocked when the selection is incomplete or the configuration is
// sold out.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string   `json:"product_id"`
		Quantity  int      `json:"quantity"`
		Size      string   `json:"size"`
		Color     string   `json:"color"`
		ExtraIDs  []string `json:"extra_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	products, err := h.client.FetchCatalog(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	var product *catalog.Product
	for i := range products {
		if products[i].ID == req.ProductID {
			product = &products[i]
			break
		}
	}
	if product == nil {
		writeMessage(w, http.StatusNotFound, "product not found")
		return
	}

	sel := catalog.Selection{SizeID: req.Size, ColorID: req.Color}
	line, err := h.cart.Add(*product, req.Quantity, sel, req.ExtraIDs)
	if err != nil {
		var needs *catalog.NeedsSelectionError
		switch {
		case errors.As(err, &needs):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error": map[string]any{
					"message": needs.Error(),
					"type":    "needs_selection",
					"missing": needs.Missing,
					"code":    http.StatusUnprocessableEntity,
				},
			})
		case errors.Is(err, catalog.ErrNotAvailable),
			errors.Is(err, cart.ErrOutOfStock):
			writeMessage(w, http.StatusConflict, err.Error())
		default:
			writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"line":       line,
		"item_count": h.cart.ItemCount(),
		"subtotal":   h.cart.Subtotal(),
	})
}

// UpdateCartItem handles PATCH /cart/items/{key}.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.cart.SetQuantity(key, req.Quantity); err != nil {
		if errors.Is(err, cart.ErrZeroQuantity) {
			writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		} else {
			writeMessage(w, http.StatusNotFound, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"lines":    h.cart.Lines(),
		"subtotal": h.cart.Subtotal(),
	})
}

// RemoveCartItem handles DELETE /cart/items/{key}.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !h.cart.Remove(key) {
		writeMessage(w, http.StatusNotFound, "no such cart line")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lines":    h.cart.Lines(),
		"subtotal": h.cart.Subtotal(),
	})
}

// ClearCart handles DELETE /cart (explicit user action).
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"item_count": 0})
}
