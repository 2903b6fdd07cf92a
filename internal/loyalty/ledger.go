// Package loyalty implements the points ledger: earning-rule
// evaluation against settled orders, the operator-confirmed reprocess
// that re-derives awards without double counting, and reward
// redemption against the authoritative remote balance.
package loyalty

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelierpos/atelier/internal/commerce"
)

// Award records the points granted to one order, kept so a reprocess
// can zero it out before reapplying current rules.
type Award struct {
	OrderNumber    string    `json:"order_number"`
	Identification string    `json:"identification_number"`
	Points         int       `json:"points"`
	AwardedAt      time.Time `json:"awarded_at"`
}

// SettledOrder is the input to earning: a completed order's business
// key, owner, and authoritative total.
type SettledOrder struct {
	OrderNumber    string
	Identification string
	Total          decimal.Decimal
}

// ReprocessSummary reports the outcome of a bulk reprocess.
type ReprocessSummary struct {
	Orders        int `json:"orders"`
	PointsRemoved int `json:"points_removed"`
	PointsAwarded int `json:"points_awarded"`
}

// Ledger evaluates earning rules and processes redemptions. Earn and
// Redeem are independent operations with no shared transaction.
type Ledger struct {
	client *commerce.Client
	logger *slog.Logger

	mu       sync.Mutex
	rules    []EarningRule
	awards   map[string]Award // by order number
	inflight map[string]bool  // orders with a credit in flight
}

// NewLedger creates a Ledger with the given earning rules.
func NewLedger(client *commerce.Client, rules []EarningRule, logger *slog.Logger) (*Ledger, error) {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("invalid earning rule: %w", err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		client:   client,
		logger:   logger,
		rules:    rules,
		awards:   make(map[string]Award),
		inflight: make(map[string]bool),
	}, nil
}

// Rules returns a copy of the configured earning rules.
func (l *Ledger) Rules() []EarningRule {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EarningRule, len(l.rules))
	copy(out, l.rules)
	return out
}

// Earn evaluates the active rules against a settled order and credits
// the resulting points. The delta is additive and monotonic; an order
// already awarded is skipped (use Reprocess to re-derive), and
// concurrent earns for one order collapse into a conflict so the
// remote is never credited twice.
func (l *Ledger) Earn(ctx context.Context, order SettledOrder) (int, error) {
	l.mu.Lock()
	if _, done := l.awards[order.OrderNumber]; done {
		l.mu.Unlock()
		return 0, commerce.NewError(commerce.KindConflict,
			"order %s already has a loyalty award", order.OrderNumber)
	}
	if l.inflight[order.OrderNumber] {
		l.mu.Unlock()
		return 0, commerce.NewError(commerce.KindConflict,
			"a loyalty award for order %s is already in progress", order.OrderNumber)
	}
	l.inflight[order.OrderNumber] = true
	points := EvaluateRules(l.rules, order.Total)
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.inflight, order.OrderNumber)
		l.mu.Unlock()
	}()

	if points > 0 {
		reason := fmt.Sprintf("Points for order %s", order.OrderNumber)
		if _, err := l.client.AddPoints(ctx, order.Identification, points, reason); err != nil {
			return 0, err
		}
	}

	l.mu.Lock()
	l.awards[order.OrderNumber] = Award{
		OrderNumber:    order.OrderNumber,
		Identification: order.Identification,
		Points:         points,
		AwardedAt:      time.Now(),
	}
	l.mu.Unlock()

	l.logger.Info("loyalty points earned",
		"order_number", order.OrderNumber, "identification", order.Identification, "points", points)
	return points, nil
}

// Reprocess re-derives awards for the given orders under the current
// rules. Previously awarded points are removed first so nothing is
// counted twice. This is a destructive bulk operation; callers must
// obtain explicit operator confirmation before invoking it.
func (l *Ledger) Reprocess(ctx context.Context, orders []SettledOrder) (ReprocessSummary, error) {
	var sum ReprocessSummary
	for _, order := range orders {
		l.mu.Lock()
		prior, had := l.awards[order.OrderNumber]
		l.mu.Unlock()

		if had && prior.Points > 0 {
			reason := fmt.Sprintf("Reprocess: revoking award for order %s", order.OrderNumber)
			if _, err := l.client.RemovePoints(ctx, prior.Identification, prior.Points, reason); err != nil {
				return sum, fmt.Errorf("removing prior award for order %s: %w", order.OrderNumber, err)
			}
			sum.PointsRemoved += prior.Points
		}
		l.mu.Lock()
		delete(l.awards, order.OrderNumber)
		l.mu.Unlock()

		points, err := l.Earn(ctx, order)
		if err != nil {
			return sum, fmt.Errorf("reapplying rules for order %s: %w", order.OrderNumber, err)
		}
		sum.PointsAwarded += points
		sum.Orders++
	}
	l.logger.Info("loyalty reprocess complete",
		"orders", sum.Orders, "removed", sum.PointsRemoved, "awarded", sum.PointsAwarded)
	return sum, nil
}

// AwardFor returns the recorded award for an order, if any.
func (l *Ledger) AwardFor(orderNumber string) (Award, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.awards[orderNumber]
	return a, ok
}

// Balance checks the remote points balance for a customer.
func (l *Ledger) Balance(ctx context.Context, identification string) (commerce.PointsBalance, error) {
	return l.client.LoyaltyBalance(ctx, identification)
}

// Redeem exchanges points for the given reward. The balance check and
// deduction are one atomic remote operation; the local view is only
// updated from the confirmed response. Birthday rewards cost zero and
// skip the balance check remotely.
func (l *Ledger) Redeem(ctx context.Context, identification string, reward commerce.Reward) (commerce.RedeemResult, error) {
	if !reward.Active {
		return commerce.RedeemResult{}, commerce.NewError(commerce.KindTerminal,
			"reward %q is not active", reward.Name)
	}

	res, err := l.client.RedeemReward(ctx, identification, reward.ID)
	if err != nil {
		if commerce.KindOf(err) == commerce.KindValidation {
			// The remote's balance check failed; that is a business
			// rule the operator cannot retry around.
			return commerce.RedeemResult{}, commerce.WrapError(commerce.KindTerminal, err, "redemption rejected")
		}
		return commerce.RedeemResult{}, err
	}
	if !res.Success {
		return res, commerce.NewError(commerce.KindTerminal, "redemption rejected by remote")
	}

	l.logger.Info("reward redeemed",
		"identification", identification, "reward", reward.Name,
		"coupon", res.Coupon.Code, "new_balance", res.NewBalance)
	return res, nil
}
