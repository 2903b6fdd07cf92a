package loyalty

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RuleType selects how an earning rule converts order totals into
// points.
type RuleType string

const (
	// RulePerAmount awards Points for every Step of order total
	// ("10 points per $5 spent"), flooring the quotient.
	RulePerAmount RuleType = "per_amount"
	// RuleMinOrder awards Points once when the order total reaches
	// Minimum.
	RuleMinOrder RuleType = "min_order"
)

// EarningRule is one configured earning condition. Inactive rules are
// skipped during evaluation.
type EarningRule struct {
	Name    string          `yaml:"name" json:"name"`
	Type    RuleType        `yaml:"type" json:"type"`
	Points  int             `yaml:"points" json:"points"`
	Step    decimal.Decimal `yaml:"step,omitempty" json:"step,omitempty"`
	Minimum decimal.Decimal `yaml:"minimum,omitempty" json:"minimum,omitempty"`
	Active  bool            `yaml:"active" json:"active"`
}

// Validate checks the rule's configuration.
func (r EarningRule) Validate() error {
	if r.Points < 0 {
		return fmt.Errorf("rule %q: points must not be negative", r.Name)
	}
	switch r.Type {
	case RulePerAmount:
		if !r.Step.IsPositive() {
			return fmt.Errorf("rule %q: per_amount step must be positive", r.Name)
		}
	case RuleMinOrder:
		if r.Minimum.IsNegative() {
			return fmt.Errorf("rule %q: min_order minimum must not be negative", r.Name)
		}
	default:
		return fmt.Errorf("rule %q: unknown type %q", r.Name, r.Type)
	}
	return nil
}

// Evaluate returns the points this rule awards for an order total.
// Inactive rules always award zero.
func (r EarningRule) Evaluate(total decimal.Decimal) int {
	if !r.Active {
		return 0
	}
	switch r.Type {
	case RulePerAmount:
		if !r.Step.IsPositive() {
			return 0
		}
		steps := total.Div(r.Step).Floor()
		return r.Points * int(steps.IntPart())
	case RuleMinOrder:
		if total.GreaterThanOrEqual(r.Minimum) {
			return r.Points
		}
	}
	return 0
}

// EvaluateRules sums the awards of all rules for an order total.
func EvaluateRules(rules []EarningRule, total decimal.Decimal) int {
	points := 0
	for _, r := range rules {
		points += r.Evaluate(total)
	}
	return points
}
