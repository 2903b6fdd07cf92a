package commercetest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atelierpos/atelier/internal/commerce"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    http.StatusText(status),
			"code":    status,
		},
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Paginated {
		writeJSON(w, http.StatusOK, map[string]any{
			"count":   len(s.Products),
			"results": s.Products,
		})
		return
	}
	writeJSON(w, http.StatusOK, s.Products)
}

func (s *Server) handleValidateDiscount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string          `json:"code"`
		OrderAmount decimal.Decimal `json:"order_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.validateLocked(req.Code, req.OrderAmount)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) validateLocked(code string, amount decimal.Decimal) commerce.DiscountResult {
	d, ok := s.Discounts[code]
	if !ok {
		return commerce.DiscountResult{Valid: false, Reason: "unknown discount code"}
	}
	if amount.LessThan(d.MinOrder) {
		return commerce.DiscountResult{
			Valid:  false,
			Reason: fmt.Sprintf("order must be at least %s", d.MinOrder.StringFixed(2)),
		}
	}
	discount := d.Value
	if d.Type == "percentage" {
		discount = amount.Mul(d.Value).Div(decimal.NewFromInt(100)).Round(2)
	}
	return commerce.DiscountResult{Valid: true, Amount: discount, Description: d.Description}
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	if s.FailAccounts {
		writeError(w, http.StatusInternalServerError, "account service unavailable")
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"email": req.Email})
}

func (s *Server) handleUpsertCustomer(w http.ResponseWriter, r *http.Request) {
	var profile commerce.CustomerProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if profile.Identification == "" {
		writeError(w, http.StatusUnprocessableEntity, "identification_number is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.customers[profile.Identification]; ok {
		existing.CustomerProfile = profile
		s.customers[profile.Identification] = existing
		writeJSON(w, http.StatusOK, existing)
		return
	}

	s.nextCustID++
	cust := commerce.Customer{ID: s.nextCustID, CustomerProfile: profile}
	s.customers[profile.Identification] = cust
	writeJSON(w, http.StatusCreated, cust)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if hook := s.OrderHook; hook != nil {
		hook()
	}
	if s.FailOrders {
		writeError(w, http.StatusInternalServerError, "order service unavailable")
		return
	}
	var req commerce.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CustomerID == 0 || len(req.Items) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "customer_id and items are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subtotal := decimal.Zero
	for _, item := range req.Items {
		line := item.UnitPrice
		for _, extraID := range item.ExtraIDs {
			line = line.Add(s.extraPriceLocked(item.ProductID, extraID))
		}
		subtotal = subtotal.Add(line.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	discount := decimal.Zero
	if req.DiscountCode != "" {
		res := s.validateLocked(req.DiscountCode, subtotal)
		if !res.Valid {
			writeError(w, http.StatusUnprocessableEntity, "discount code is not valid for this order")
			return
		}
		discount = res.Amount
	}

	s.orderSeq++
	number := fmt.Sprintf("ORD-%04d", 1000+s.orderSeq)
	rec := &OrderRecord{
		Number:         number,
		Request:        req,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      decimal.Zero,
		Total:          subtotal.Sub(discount),
		FiscalStatus:   "NOT_REQUESTED",
	}
	s.Orders[number] = rec

	writeJSON(w, http.StatusCreated, commerce.Order{
		OrderNumber:    rec.Number,
		Subtotal:       rec.Subtotal,
		DiscountAmount: rec.DiscountAmount,
		TaxAmount:      rec.TaxAmount,
		Total:          rec.Total,
		Status:         "pending",
		Items:          req.Items,
		Fiscal:         commerce.FiscalStatus{Status: rec.FiscalStatus},
	})
}

func (s *Server) extraPriceLocked(productID, extraID string) decimal.Decimal {
	for _, p := range s.Products {
		if p.ID != productID {
			continue
		}
		for _, e := range p.Extras {
			if e.ID == extraID {
				return e.Price
			}
		}
	}
	return decimal.Zero
}

func (s *Server) fiscalPayload(rec *OrderRecord) commerce.FiscalStatus {
	return commerce.FiscalStatus{
		Status:      rec.FiscalStatus,
		SRINumber:   rec.SRINumber,
		AccessKey:   rec.AccessKey,
		ErrorReason: rec.FiscalReason,
	}
}

func (s *Server) handleFiscalStatus(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.Orders[number]
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, s.fiscalPayload(rec))
}

func (s *Server) handleFiscalRetry(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.Orders[number]
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	s.RetryCalls[number]++

	// Already authorized: idempotent, same artifacts, no new document.
	if rec.FiscalStatus == "AUTHORIZED" {
		writeJSON(w, http.StatusOK, s.fiscalPayload(rec))
		return
	}

	next := "AUTHORIZED"
	if script := s.FiscalScript[number]; len(script) > 0 {
		next = script[0]
		s.FiscalScript[number] = script[1:]
	}

	rec.FiscalStatus = next
	rec.FiscalReason = ""
	switch next {
	case "AUTHORIZED":
		if rec.SRINumber == "" {
			s.sriSeq++
			rec.SRINumber = fmt.Sprintf("001-002-%09d", s.sriSeq)
			rec.AccessKey = uuid.NewString()
		}
	case "ERROR":
		rec.FiscalReason = "authority rejected the document"
	}
	writeJSON(w, http.StatusOK, s.fiscalPayload(rec))
}

func (s *Server) handleFiscalArtifact(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	format := chi.URLParam(r, "format")

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.Orders[number]
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if rec.FiscalStatus != "AUTHORIZED" {
		writeError(w, http.StatusConflict, "document is not authorized")
		return
	}

	switch format {
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprintf(w, "%%PDF-1.4 invoice %s %s", number, rec.SRINumber)
	case "xml":
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, "<invoice order=%q sri=%q/>", number, rec.SRINumber)
	default:
		writeError(w, http.StatusNotFound, "unknown artifact format")
	}
}

func (s *Server) handleListRewards(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"rewards": s.Rewards})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identification string `json:"identification_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.Balances[req.Identification]
	if !ok {
		writeError(w, http.StatusNotFound, "loyalty account not found")
		return
	}
	writeJSON(w, http.StatusOK, commerce.PointsBalance{
		Identification: req.Identification,
		Balance:        balance,
	})
}

func (s *Server) handleAddPoints(w http.ResponseWriter, r *http.Request) {
	if hook := s.PointsHook; hook != nil {
		hook()
	}
	if s.FailPoints {
		writeError(w, http.StatusInternalServerError, "loyalty service unavailable")
		return
	}
	var req struct {
		Identification string `json:"identification_number"`
		Points         int    `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Points <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "points must be positive")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Balances[req.Identification] += req.Points
	writeJSON(w, http.StatusOK, commerce.PointsBalance{
		Identification: req.Identification,
		Balance:        s.Balances[req.Identification],
	})
}

func (s *Server) handleRemovePoints(w http.ResponseWriter, r *http.Request) {
	if s.FailPoints {
		writeError(w, http.StatusInternalServerError, "loyalty service unavailable")
		return
	}
	var req struct {
		Identification string `json:"identification_number"`
		Points         int    `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Points <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "points must be positive")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Balances[req.Identification] < req.Points {
		writeError(w, http.StatusUnprocessableEntity, "insufficient_points")
		return
	}
	s.Balances[req.Identification] -= req.Points
	writeJSON(w, http.StatusOK, commerce.PointsBalance{
		Identification: req.Identification,
		Balance:        s.Balances[req.Identification],
	})
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identification string `json:"identification_number"`
		RewardRuleID   int    `json:"reward_rule_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.Balances[req.Identification]
	if !ok {
		writeError(w, http.StatusNotFound, "loyalty account not found")
		return
	}

	var reward *commerce.Reward
	for i := range s.Rewards {
		if s.Rewards[i].ID == req.RewardRuleID {
			reward = &s.Rewards[i]
			break
		}
	}
	if reward == nil {
		writeError(w, http.StatusNotFound, "reward not found")
		return
	}

	cost := reward.PointsCost
	if reward.Birthday {
		// Birthday rewards are free: the cost check is skipped.
		cost = 0
	}
	if balance < cost {
		writeError(w, http.StatusUnprocessableEntity, "insufficient_points")
		return
	}

	s.Balances[req.Identification] = balance - cost
	coupon := commerce.Coupon{
		Code:     fmt.Sprintf("LOYAL-%s", uuid.NewString()[:8]),
		RewardID: reward.ID,
	}
	s.Coupons = append(s.Coupons, coupon)

	writeJSON(w, http.StatusOK, commerce.RedeemResult{
		Success:    true,
		NewBalance: s.Balances[req.Identification],
		Coupon:     coupon,
	})
}
