// Package checkout drives the multi-step checkout transaction:
// optional account creation, customer profile upsert, discount
// re-validation, order submission, and the cart clear that only
// happens once the order is accepted remotely.
package checkout

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atelierpos/atelier/internal/cart"
	"github.com/atelierpos/atelier/internal/commerce"
)

// State is the orchestrator's position in a checkout attempt.
type State string

const (
	StateCollecting State = "COLLECTING_INFO"
	StateSubmitting State = "SUBMITTING"
	StateSucceeded  State = "SUCCEEDED"
	StateFailed     State = "FAILED"
)

// Request carries everything a single checkout attempt needs.
type Request struct {
	Profile commerce.CustomerProfile
	// CreateAccount registers a shopper account before anything else.
	// Only meaningful for unauthenticated shoppers who opted in; a
	// failure here aborts the whole attempt.
	CreateAccount bool
	Password      string

	DiscountCode  string
	Delivery      commerce.DeliveryInfo
	PaymentMethod string
}

// Result is a successful checkout outcome. ExpectedTotal is the
// client-side advisory figure; Order.Total is what was actually
// charged.
type Result struct {
	AttemptID     string
	Order         commerce.Order
	ExpectedTotal decimal.Decimal
	// Discount holds the re-validated verdict applied to this order.
	Discount commerce.DiscountResult
}

// Orchestrator runs checkout attempts over a shared cart. Steps are
// strictly sequential; each step's result gates the next, and a
// failure halts the sequence leaving earlier side effects (an
// upserted profile) in place for the next attempt to reuse.
type Orchestrator struct {
	cart      *cart.Store
	client    *commerce.Client
	validator *Validator
	logger    *slog.Logger

	mu    sync.Mutex
	state State
}

// NewOrchestrator creates an Orchestrator in COLLECTING_INFO.
func NewOrchestrator(c *cart.Store, client *commerce.Client, v *Validator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cart:      c,
		client:    client,
		validator: v,
		logger:    logger,
		state:     StateCollecting,
	}
}

// State returns the current checkout state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Submit runs one checkout attempt. Only one submission may be in
// flight at a time; a second call while SUBMITTING is rejected as a
// conflict. Retrying after a failure is a fresh user action.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*Result, error) {
	o.mu.Lock()
	if o.state == StateSubmitting {
		o.mu.Unlock()
		return nil, commerce.NewError(commerce.KindConflict, "a checkout submission is already in flight")
	}
	o.state = StateSubmitting
	o.mu.Unlock()

	result, err := o.submit(ctx, req)

	o.mu.Lock()
	if err != nil {
		o.state = StateFailed
	} else {
		o.state = StateSucceeded
	}
	o.mu.Unlock()
	return result, err
}

// Reset returns a failed or completed orchestrator to COLLECTING_INFO
// for the next attempt.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateSubmitting {
		o.state = StateCollecting
	}
}

func (o *Orchestrator) submit(ctx context.Context, req Request) (*Result, error) {
	lines := o.cart.Lines()
	if len(lines) == 0 {
		return nil, commerce.NewError(commerce.KindValidation, "cart is empty")
	}
	if req.Profile.Identification == "" {
		return nil, commerce.NewError(commerce.KindValidation, "identification number is required")
	}

	attemptID := uuid.NewString()
	log := o.logger.With("attempt_id", attemptID)

	// Everything below works off the lines snapshot, so a concurrent
	// cart mutation cannot make the submitted items and the validated
	// discount amount disagree.
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}

	// Step 1: optional account creation. Failing here aborts before
	// any customer or order side effect exists.
	if req.CreateAccount {
		if err := o.client.CreateAccount(ctx, req.Profile.Email, req.Password); err != nil {
			log.Warn("account creation failed", "err", err)
			return nil, commerce.WrapError(commerce.KindOf(err), err, "creating account")
		}
		log.Info("account created", "email", req.Profile.Email)
	}

	// Step 2: customer upsert by identification number. Idempotent:
	// a retried checkout updates the same profile.
	customer, err := o.client.UpsertCustomer(ctx, req.Profile)
	if err != nil {
		log.Warn("customer upsert failed", "err", err)
		return nil, commerce.WrapError(commerce.KindOf(err), err, "syncing customer profile")
	}
	log.Info("customer synced", "customer_id", customer.ID)

	// Step 3a: re-validate the discount against the current subtotal.
	// A previously accepted code is stale the moment the cart changes;
	// if the remote now rejects it, the order is submitted without it.
	var discount commerce.DiscountResult
	code := req.DiscountCode
	if code != "" {
		discount, err = o.validator.Validate(ctx, code, subtotal)
		if err != nil {
			log.Warn("discount re-validation failed", "err", err)
			return nil, commerce.WrapError(commerce.KindOf(err), err, "re-validating discount")
		}
		if !discount.Valid {
			log.Info("discount no longer valid, submitting without it",
				"code", code, "reason", discount.Reason)
			code = ""
		}
	}

	expected := subtotal
	if discount.Valid {
		expected = expected.Sub(discount.Amount)
		if expected.IsNegative() {
			expected = decimal.Zero
		}
	}

	// Step 3b: order submission with a snapshot of the cart, decoupled
	// from the live store.
	order, err := o.client.CreateOrder(ctx, commerce.OrderRequest{
		CustomerID:    customer.ID,
		Items:         orderItems(lines),
		DiscountCode:  code,
		Delivery:      req.Delivery,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		// The cart stays untouched so the shopper can retry without
		// re-entering items. The upserted profile is left in place on
		// purpose: the upsert is idempotent and reusable.
		log.Warn("order submission failed", "err", err)
		return nil, commerce.WrapError(commerce.KindOf(err), err, "submitting order")
	}

	if !order.Total.Equal(expected) {
		log.Debug("remote total differs from client estimate",
			"expected", expected.String(), "charged", order.Total.String())
	}

	// Step 4: clear the cart, only now that the order is accepted.
	o.cart.Clear()
	log.Info("checkout succeeded", "order_number", order.OrderNumber, "total", order.Total.String())

	return &Result{
		AttemptID:     attemptID,
		Order:         order,
		ExpectedTotal: expected,
		Discount:      discount,
	}, nil
}

func orderItems(lines []cart.Line) []commerce.OrderItem {
	items := make([]commerce.OrderItem, 0, len(lines))
	for _, l := range lines {
		var extraIDs []string
		for _, e := range l.Extras {
			extraIDs = append(extraIDs, e.ID)
		}
		items = append(items, commerce.OrderItem{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			ExtraIDs:  extraIDs,
		})
	}
	return items
}
