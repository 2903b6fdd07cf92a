// Package commerce is the typed JSON client for the remote commerce
// API, plus the error taxonomy shared by everything that calls it. All
// money figures returned by the remote are authoritative; locally
// computed totals are display-only.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelierpos/atelier/internal/catalog"
)

// Client talks to the remote commerce API over JSON/HTTPS.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
	logger    *slog.Logger
}

// NewClient creates a Client. A zero timeout defaults to 15 seconds.
func NewClient(baseURL, apiKey, apiSecret string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// FetchCatalog retrieves and normalizes the product catalog. The
// remote may answer with a bare array or a paginated envelope; both
// shapes normalize to the same []Product.
func (c *Client) FetchCatalog(ctx context.Context) ([]catalog.Product, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/products", nil)
	if err != nil {
		return nil, err
	}
	products, err := catalog.NormalizeCatalog(body)
	if err != nil {
		return nil, WrapError(KindTransient, err, "normalizing catalog")
	}
	return products, nil
}

// ValidateDiscount checks a coupon code against the current order
// amount. Stateless per call: the verdict is a function of
// (code, amount) at the time of the request.
func (c *Client) ValidateDiscount(ctx context.Context, code string, amount decimal.Decimal) (DiscountResult, error) {
	req := map[string]any{"code": code, "order_amount": amount}
	body, err := c.do(ctx, http.MethodPost, "/api/discounts/validate", req)
	if err != nil {
		return DiscountResult{}, err
	}
	var res DiscountResult
	if err := json.Unmarshal(body, &res); err != nil {
		return DiscountResult{}, WrapError(KindTransient, err, "decoding discount result")
	}
	return res, nil
}

// CreateAccount registers a shopper account. Used only when an
// unauthenticated shopper opts in during checkout.
func (c *Client) CreateAccount(ctx context.Context, email, password string) error {
	req := map[string]string{"email": email, "password": password}
	_, err := c.do(ctx, http.MethodPost, "/api/accounts", req)
	return err
}

// UpsertCustomer creates or refreshes a customer profile keyed by
// identification number. Safe to repeat: a second call with the same
// number updates the same record.
func (c *Client) UpsertCustomer(ctx context.Context, profile CustomerProfile) (Customer, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/customers", profile)
	if err != nil {
		return Customer{}, err
	}
	var cust Customer
	if err := json.Unmarshal(body, &cust); err != nil {
		return Customer{}, WrapError(KindTransient, err, "decoding customer")
	}
	return cust, nil
}

// CreateOrder submits an order and returns the remote record, whose
// order number and totals are authoritative.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/orders", req)
	if err != nil {
		return Order{}, err
	}
	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return Order{}, WrapError(KindTransient, err, "decoding order")
	}
	return order, nil
}

// FiscalStatus fetches the current fiscal-document state for an order.
func (c *Client) FiscalStatus(ctx context.Context, orderNumber string) (FiscalStatus, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/orders/"+orderNumber+"/fiscal", nil)
	if err != nil {
		return FiscalStatus{}, err
	}
	var fs FiscalStatus
	if err := json.Unmarshal(body, &fs); err != nil {
		return FiscalStatus{}, WrapError(KindTransient, err, "decoding fiscal status")
	}
	return fs, nil
}

// FiscalRetry asks the remote to (re)submit the fiscal document for an
// order to the tax authority.
func (c *Client) FiscalRetry(ctx context.Context, orderNumber string) (FiscalStatus, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/orders/"+orderNumber+"/fiscal/retry", nil)
	if err != nil {
		return FiscalStatus{}, err
	}
	var fs FiscalStatus
	if err := json.Unmarshal(body, &fs); err != nil {
		return FiscalStatus{}, WrapError(KindTransient, err, "decoding fiscal status")
	}
	return fs, nil
}

// FiscalArtifact downloads the authorized document in the given format
// (pdf or xml). Artifacts are always fetched fresh from the remote
// document store.
func (c *Client) FiscalArtifact(ctx context.Context, orderNumber, format string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/orders/"+orderNumber+"/fiscal/"+format, nil)
}

// ListRewards returns the configured reward rules.
func (c *Client) ListRewards(ctx context.Context) ([]Reward, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/loyalty/rewards", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Rewards []Reward `json:"rewards"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, WrapError(KindTransient, err, "decoding rewards")
	}
	return out.Rewards, nil
}

// LoyaltyBalance checks a customer's points balance.
func (c *Client) LoyaltyBalance(ctx context.Context, identification string) (PointsBalance, error) {
	req := map[string]string{"identification_number": identification}
	body, err := c.do(ctx, http.MethodPost, "/api/loyalty/balance", req)
	if err != nil {
		return PointsBalance{}, err
	}
	var pb PointsBalance
	if err := json.Unmarshal(body, &pb); err != nil {
		return PointsBalance{}, WrapError(KindTransient, err, "decoding balance")
	}
	return pb, nil
}

// AddPoints credits earned points to a customer's account.
func (c *Client) AddPoints(ctx context.Context, identification string, points int, reason string) (PointsBalance, error) {
	req := map[string]any{"identification_number": identification, "points": points, "reason": reason}
	body, err := c.do(ctx, http.MethodPost, "/api/loyalty/points", req)
	if err != nil {
		return PointsBalance{}, err
	}
	var pb PointsBalance
	if err := json.Unmarshal(body, &pb); err != nil {
		return PointsBalance{}, WrapError(KindTransient, err, "decoding balance")
	}
	return pb, nil
}

// RemovePoints debits previously awarded points (reprocess only).
func (c *Client) RemovePoints(ctx context.Context, identification string, points int, reason string) (PointsBalance, error) {
	req := map[string]any{"identification_number": identification, "points": points, "reason": reason}
	body, err := c.do(ctx, http.MethodPost, "/api/loyalty/points/remove", req)
	if err != nil {
		return PointsBalance{}, err
	}
	var pb PointsBalance
	if err := json.Unmarshal(body, &pb); err != nil {
		return PointsBalance{}, WrapError(KindTransient, err, "decoding balance")
	}
	return pb, nil
}

// RedeemReward exchanges points for a reward coupon. The balance check
// and the deduction are a single remote operation.
func (c *Client) RedeemReward(ctx context.Context, identification string, rewardID int) (RedeemResult, error) {
	req := map[string]any{"identification_number": identification, "reward_rule_id": rewardID}
	body, err := c.do(ctx, http.MethodPost, "/api/loyalty/redeem", req)
	if err != nil {
		return RedeemResult{}, err
	}
	var res RedeemResult
	if err := json.Unmarshal(body, &res); err != nil {
		return RedeemResult{}, WrapError(KindTransient, err, "decoding redemption")
	}
	return res, nil
}

// do executes one request and returns the raw response body, mapping
// non-2xx statuses onto the error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, WrapError(KindTransient, err, "encoding request")
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, WrapError(KindTransient, err, "building request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.SetBasicAuth(c.apiKey, c.apiSecret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, WrapError(KindTransient, err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(KindTransient, err, "reading response")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	msg := remoteMessage(body)
	c.logger.Debug("commerce api error",
		"method", method, "path", path, "status", resp.StatusCode, "message", msg)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewError(KindNotFound, "%s", msg)
	case resp.StatusCode == http.StatusConflict:
		return nil, NewError(KindConflict, "%s", msg)
	case resp.StatusCode == http.StatusUnprocessableEntity,
		resp.StatusCode == http.StatusBadRequest:
		return nil, NewError(KindValidation, "%s", msg)
	case resp.StatusCode >= 500:
		return nil, NewError(KindTransient, "%s %s: %s", method, path, msg)
	default:
		return nil, NewError(KindTerminal, "%s", msg)
	}
}

// remoteMessage extracts a human-readable message from an error body.
// The remote wraps errors as {"error": {"message": ...}} but older
// endpoints return a flat {"detail": ...}.
func remoteMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Detail != "" {
			return envelope.Detail
		}
	}
	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Error != "" {
		return flat.Error
	}
	return fmt.Sprintf("remote error: %s", strings.TrimSpace(string(body)))
}
