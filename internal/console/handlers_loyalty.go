package console

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atelierpos/atelier/internal/commerce"
	"github.com/atelierpos/atelier/internal/loyalty"
)

// ListRewards handles GET /loyalty/rewards.
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.client.ListRewards(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rewards": rewards})
}

// GetBalance handles GET /loyalty/{identification}/balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	identification := chi.URLParam(r, "identification")
	balance, err := h.ledger.Balance(r.Context(), identification)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// Redeem handles POST /loyalty/{identification}/redeem.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	identification := chi.URLParam(r, "identification")

	var req struct {
		RewardRuleID int `json:"reward_rule_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rewards, err := h.client.ListRewards(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	var reward *commerce.Reward
	for i := range rewards {
		if rewards[i].ID == req.RewardRuleID {
			reward = &rewards[i]
			break
		}
	}
	if reward == nil {
		writeMessage(w, http.StatusNotFound, "reward not found")
		return
	}

	res, err := h.ledger.Redeem(r.Context(), identification, *reward)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Earn handles POST /loyalty/earn: credit points for one settled
// order under the active earning rules.
func (h *Handler) Earn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderNumber    string          `json:"order_number"`
		Identification string          `json:"identification_number"`
		Total          decimal.Decimal `json:"total"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.OrderNumber == "" || req.Identification == "" {
		writeMessage(w, http.StatusUnprocessableEntity, "order_number and identification_number are required")
		return
	}

	points, err := h.ledger.Earn(r.Context(), loyalty.SettledOrder{
		OrderNumber:    req.OrderNumber,
		Identification: req.Identification,
		Total:          req.Total,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order_number": req.OrderNumber, "points": points})
}

// Reprocess handles POST /loyalty/reprocess. Destructive bulk
// operation: prior awards are revoked before current rules reapply,
// so it demands an explicit confirm flag from the operator.
func (h *Handler) Reprocess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Confirm bool `json:"confirm"`
		Orders  []struct {
			OrderNumber    string          `json:"order_number"`
			Identification string          `json:"identification_number"`
			Total          decimal.Decimal `json:"total"`
		} `json:"orders"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Confirm {
		writeMessage(w, http.StatusUnprocessableEntity, "reprocess requires explicit confirmation")
		return
	}

	orders := make([]loyalty.SettledOrder, 0, len(req.Orders))
	for _, o := range req.Orders {
		orders = append(orders, loyalty.SettledOrder{
			OrderNumber:    o.OrderNumber,
			Identification: o.Identification,
			Total:          o.Total,
		})
	}

	summary, err := h.ledger.Reprocess(r.Context(), orders)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
