package api

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/glidepay/paycore/internal/domain"
)

// minorUnitExponent is the scale of the supported currencies (2 decimal
// places). Multi-currency exponent tables belong to the conversion
// collaborator, not this core.
const minorUnitExponent = 2

// parseAmount converts a decimal string like "12.50" into integer minor
// units. Floats never enter the core: amounts arrive as strings and must
// be positive with at most two decimal places.
func parseAmount(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: amount is required", domain.ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
	}
	if !d.IsPositive() {
		return 0, domain.ErrInvalidAmount
	}

	minor := d.Shift(minorUnitExponent)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: at most %d decimal places", domain.ErrInvalidAmount, minorUnitExponent)
	}
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: amount out of range", domain.ErrInvalidAmount)
	}
	return minor.IntPart(), nil
}

// formatAmount renders integer minor units back to a decimal string for
// responses.
func formatAmount(minor int64) string {
	return decimal.New(minor, -minorUnitExponent).StringFixed(minorUnitExponent)
}
