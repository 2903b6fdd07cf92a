package checkout

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/atelierpos/atelier/internal/commerce"
)

// Validator performs the stateless coupon check against the remote
// commerce API. Nothing is cached: the cart can change after a code
// was accepted, so every validation is a fresh check of
// (code, current amount).
type Validator struct {
	client *commerce.Client
	logger *slog.Logger
}

// NewValidator creates a Validator.
func NewValidator(client *commerce.Client, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{client: client, logger: logger}
}

// Validate checks code against amount. An invalid code is a normal
// result (Valid=false with a Reason), not an error; the returned error
// only reports transport failures.
func (v *Validator) Validate(ctx context.Context, code string, amount decimal.Decimal) (commerce.DiscountResult, error) {
	res, err := v.client.ValidateDiscount(ctx, code, amount)
	if err != nil {
		if commerce.KindOf(err) == commerce.KindValidation || commerce.KindOf(err) == commerce.KindNotFound {
			// The remote rejects unknown or ineligible codes with a
			// validation status; surface that as an invalid verdict so
			// it never aborts the checkout screen.
			return commerce.DiscountResult{Valid: false, Reason: err.Error()}, nil
		}
		return commerce.DiscountResult{}, err
	}
	v.logger.Debug("discount validated",
		"code", code, "amount", amount.String(), "valid", res.Valid, "discount", res.Amount.String())
	return res, nil
}
