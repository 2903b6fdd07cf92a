package console_test

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atelierpos/atelier/internal/apitest"
	"github.com/atelierpos/atelier/internal/cart"
	"github.com/atelierpos/atelier/internal/checkout"
	"github.com/atelierpos/atelier/internal/commercetest"
	"github.com/atelierpos/atelier/internal/console"
	"github.com/atelierpos/atelier/internal/fiscal"
	"github.com/atelierpos/atelier/internal/loyalty"
)

func setup(t *testing.T) (*commercetest.Server, *apitest.Client) {
	t.Helper()
	backend, client := commercetest.Client(t)

	cartStore := cart.NewStore(filepath.Join(t.TempDir(), "cart.json"), nil)
	validator := checkout.NewValidator(client, nil)
	orchestrator := checkout.NewOrchestrator(cartStore, client, validator, nil)
	tracker := fiscal.NewTracker(client, nil)
	rules := []loyalty.EarningRule{
		{Name: "per-five", Type: loyalty.RulePerAmount, Points: 1, Step: decimal.RequireFromString("5"), Active: true},
	}
	ledger, err := loyalty.NewLedger(client, rules, nil)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}

	h := console.NewHandler(cartStore, client, validator, orchestrator, tracker, ledger, nil)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return backend, apitest.NewClient(t, srv)
}

func addTee(t *testing.T, c *apitest.Client, qty int) {
	t.Helper()
	c.Post("/cart/items", map[string]any{
		"product_id": "p-tee",
		"quantity":   qty,
	}).AssertStatus(201)
}

func checkoutBody() map[string]any {
	return map[string]any{
		"profile": map[string]any{
			"identification_number": "0912345678",
			"name":                  "Rosa Mena",
			"email":                 "rosa@example.com",
		},
		"payment_method": "cash",
	}
}

func TestCartLifecycle(t *testing.T) {
	_, c := setup(t)

	body := c.Get("/cart").AssertStatus(200).JSONMap()
	if body["item_count"].(float64) != 0 {
		t.Errorf("expected empty cart, got %v", body["item_count"])
	}

	addTee(t, c, 2)
	body = c.Get("/cart").AssertStatus(200).JSONMap()
	if body["subtotal"].(string) != "40" {
		t.Errorf("expected subtotal 40, got %v", body["subtotal"])
	}

	lines := body["lines"].([]any)
	key := lines[0].(map[string]any)["key"].(string)

	c.Patch("/cart/items/"+key, map[string]any{"quantity": 5}).AssertStatus(200)
	c.Patch("/cart/items/"+key, map[string]any{"quantity": 0}).AssertStatus(422)

	c.Delete("/cart/items/" + key).AssertStatus(200)
	c.Delete("/cart/items/" + key).AssertStatus(404)

	addTee(t, c, 1)
	c.Delete("/cart").AssertStatus(200)
	body = c.Get("/cart").JSONMap()
	if body["item_count"].(float64) != 0 {
		t.Errorf("expected cleared cart, got %v", body["item_count"])
	}
}

func TestAddCartItemNeedsSelection(t *testing.T) {
	_, c := setup(t)

	res := c.Post("/cart/items", map[string]any{"product_id": "p-dress"})
	res.AssertStatus(422).AssertBodyContains("needs_selection")

	var body struct {
		Error struct {
			Missing []string `json:"missing"`
		} `json:"error"`
	}
	res.JSON(&body)
	if len(body.Error.Missing) != 1 || body.Error.Missing[0] != "size" {
		t.Errorf("expected missing [size], got %v", body.Error.Missing)
	}
}

func TestAddCartItemOutOfStock(t *testing.T) {
	_, c := setup(t)
	c.Post("/cart/items", map[string]any{
		"product_id": "p-dress",
		"size":       "M",
	}).AssertStatus(409)
}

func TestAddCartItemUnknownProduct(t *testing.T) {
	_, c := setup(t)
	c.Post("/cart/items", map[string]any{"product_id": "p-nope"}).AssertStatus(404)
}

func TestValidateDiscountEndpoint(t *testing.T) {
	_, c := setup(t)
	addTee(t, c, 2) // $40

	body := c.Post("/checkout/validate-discount", map[string]any{"code": "SAVE5"}).
		AssertStatus(200).JSONMap()
	if body["valid"] != true {
		t.Errorf("expected SAVE5 valid at $40: %v", body)
	}

	body = c.Post("/checkout/validate-discount", map[string]any{"code": "TENPCT"}).
		AssertStatus(200).JSONMap()
	if body["valid"] != false {
		t.Errorf("expected TENPCT invalid below its minimum: %v", body)
	}

	c.Post("/checkout/validate-discount", map[string]any{"code": ""}).AssertStatus(422)
}

func TestCheckoutEndpoint(t *testing.T) {
	_, c := setup(t)
	addTee(t, c, 2)

	body := c.Post("/checkout", checkoutBody()).AssertStatus(201).JSONMap()
	if body["attempt_id"].(string) == "" {
		t.Error("expected an attempt_id")
	}
	order := body["order"].(map[string]any)
	if order["order_number"].(string) == "" {
		t.Error("expected an order number")
	}
	if order["total"].(string) != "40" {
		t.Errorf("expected total 40, got %v", order["total"])
	}

	cartBody := c.Get("/cart").JSONMap()
	if cartBody["item_count"].(float64) != 0 {
		t.Error("cart must be cleared after checkout")
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	_, c := setup(t)
	c.Post("/checkout", checkoutBody()).AssertStatus(422)
}

func TestCheckoutFailureKeepsCart(t *testing.T) {
	backend, c := setup(t)
	addTee(t, c, 1)
	backend.FailOrders = true

	c.Post("/checkout", checkoutBody()).AssertStatus(502)

	body := c.Get("/cart").JSONMap()
	if body["item_count"].(float64) != 1 {
		t.Error("cart must survive a failed checkout")
	}
}

func TestFiscalEndpoints(t *testing.T) {
	_, c := setup(t)
	addTee(t, c, 1)

	body := c.Post("/checkout", checkoutBody()).AssertStatus(201).JSONMap()
	number := body["order"].(map[string]any)["order_number"].(string)

	doc := c.Get("/orders/" + number + "/fiscal").AssertStatus(200).JSONMap()
	if doc["status"].(string) != "NOT_REQUESTED" {
		t.Errorf("expected NOT_REQUESTED, got %v", doc["status"])
	}

	doc = c.Post("/orders/"+number+"/fiscal/retry", nil).AssertStatus(200).JSONMap()
	if doc["status"].(string) != "AUTHORIZED" {
		t.Fatalf("expected AUTHORIZED, got %v", doc["status"])
	}
	if doc["sri_number"].(string) == "" {
		t.Error("authorized documents carry an sri_number")
	}

	pdf := c.Get("/orders/" + number + "/fiscal/pdf").AssertStatus(200)
	if got := pdf.Headers.Get("Content-Type"); got != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", got)
	}
	xml := c.Get("/orders/" + number + "/fiscal/xml").AssertStatus(200)
	if got := xml.Headers.Get("Content-Type"); got != "application/xml" {
		t.Errorf("expected application/xml, got %s", got)
	}

	c.Get("/orders/" + number + "/fiscal/docx").AssertStatus(422)
	c.Get("/orders/ORD-9999/fiscal").AssertStatus(404)
}

func TestLoyaltyEndpoints(t *testing.T) {
	_, c := setup(t)

	body := c.Get("/loyalty/rewards").AssertStatus(200).JSONMap()
	if got := len(body["rewards"].([]any)); got != 3 {
		t.Errorf("expected 3 seeded rewards, got %d", got)
	}

	balance := c.Get("/loyalty/0912345678/balance").AssertStatus(200).JSONMap()
	if balance["balance"].(float64) != 80 {
		t.Errorf("expected balance 80, got %v", balance["balance"])
	}
	c.Get("/loyalty/0000000000/balance").AssertStatus(404)

	// 80 points cannot cover the 100-point reward.
	c.Post("/loyalty/0912345678/redeem", map[string]any{"reward_rule_id": 1}).AssertStatus(422)
	c.Post("/loyalty/0912345678/redeem", map[string]any{"reward_rule_id": 99}).AssertStatus(404)

	res := c.Post("/loyalty/0999999999/redeem", map[string]any{"reward_rule_id": 1}).
		AssertStatus(200).JSONMap()
	if res["new_balance"].(float64) != 900 {
		t.Errorf("expected new balance 900, got %v", res["new_balance"])
	}
	if res["coupon"].(map[string]any)["code"].(string) == "" {
		t.Error("expected a minted coupon code")
	}
}

func TestEarnAndReprocessEndpoints(t *testing.T) {
	_, c := setup(t)

	earn := map[string]any{
		"order_number":          "ORD-1001",
		"identification_number": "0999999999",
		"total":                 "50",
	}
	body := c.Post("/loyalty/earn", earn).AssertStatus(200).JSONMap()
	if body["points"].(float64) != 10 {
		t.Errorf("expected 10 points for a $50 order, got %v", body["points"])
	}

	c.Post("/loyalty/earn", earn).AssertStatus(409)
	c.Post("/loyalty/earn", map[string]any{"total": "50"}).AssertStatus(422)

	reprocess := map[string]any{
		"orders": []map[string]any{earn},
	}
	c.Post("/loyalty/reprocess", reprocess).AssertStatus(422)

	reprocess["confirm"] = true
	summary := c.Post("/loyalty/reprocess", reprocess).AssertStatus(200).JSONMap()
	if summary["points_removed"].(float64) != 10 || summary["points_awarded"].(float64) != 10 {
		t.Errorf("expected 10 removed / 10 reawarded, got %v", summary)
	}
}
