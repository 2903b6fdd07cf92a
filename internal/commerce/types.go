package commerce

import (
	"github.com/shopspring/decimal"
)

// DiscountResult is the remote verdict on a coupon code for a given
// order amount. The check is stateless: a changed amount can yield a
// different Amount or flip Valid.
type DiscountResult struct {
	Valid       bool            `json:"valid"`
	Amount      decimal.Decimal `json:"discount_amount"`
	Description string          `json:"message"`
	Reason      string          `json:"reason,omitempty"`
}

// CustomerProfile carries the fields upserted during checkout. The
// identification number is the business key: repeated checkouts with
// the same number update one profile.
type CustomerProfile struct {
	Identification string `json:"identification_number"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Address        string `json:"address,omitempty"`
}

// Customer is the remote customer record returned by the upsert.
type Customer struct {
	ID int `json:"id"`
	CustomerProfile
}

// DeliveryInfo is the fulfillment destination and contact for an order.
type DeliveryInfo struct {
	Recipient string `json:"recipient"`
	Address   string `json:"address"`
	City      string `json:"city,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// OrderItem is one line of an order submission, captured from the cart
// snapshot at submit time.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ExtraIDs  []string        `json:"extra_ids,omitempty"`
}

// OrderRequest is the order creation payload.
type OrderRequest struct {
	CustomerID    int          `json:"customer_id"`
	Items         []OrderItem  `json:"items"`
	DiscountCode  string       `json:"discount_code,omitempty"`
	Delivery      DeliveryInfo `json:"delivery_info"`
	PaymentMethod string       `json:"payment_method"`
}

// Order is the remote system's record of a submitted order. The order
// number and all money figures are assigned remotely; the client's own
// computed total is advisory only.
type Order struct {
	OrderNumber    string          `json:"order_number"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
	Status         string          `json:"status"` // pending | completed
	Items          []OrderItem     `json:"items"`
	Fiscal         FiscalStatus    `json:"fiscal"`
}

// FiscalStatus is the remote fiscal-document state for an order.
type FiscalStatus struct {
	Status        string `json:"status"` // NOT_REQUESTED | PENDING | AUTHORIZED | ERROR
	StatusDisplay string `json:"status_display,omitempty"`
	SRINumber     string `json:"sri_number,omitempty"`
	AccessKey     string `json:"access_key,omitempty"`
	ErrorReason   string `json:"error,omitempty"`
}

// Reward is a redeemable loyalty reward configured in the back office.
type Reward struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	PointsCost    int             `json:"points_cost"`
	DiscountType  string          `json:"discount_type"` // fixed | percentage
	DiscountValue decimal.Decimal `json:"discount_value"`
	Birthday      bool            `json:"is_birthday_reward"`
	Active        bool            `json:"active"`
}

// Coupon is the artifact minted by a successful redemption.
type Coupon struct {
	Code     string `json:"code"`
	RewardID int    `json:"reward_id"`
	Consumed bool   `json:"consumed"`
}

// RedeemResult is the outcome of a redemption request. The balance
// check and the deduction happen remotely as one operation; the client
// never pre-decrements a cached balance.
type RedeemResult struct {
	Success    bool   `json:"success"`
	NewBalance int    `json:"new_balance"`
	Coupon     Coupon `json:"coupon"`
}

// PointsBalance is the remote loyalty balance for a customer.
type PointsBalance struct {
	Identification string `json:"identification_number"`
	Balance        int    `json:"balance"`
	Tier           string `json:"tier,omitempty"`
}
