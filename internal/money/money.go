// Package money holds the fixed-point arithmetic used to turn a local-currency fine into the
// processor's integer minor units.
package money

import (
	"github.com/shopspring/decimal"

	perr "github.com/example/fine-payment-bridge/pkg/errors"
)

// MinorUnitPlaces is the number of decimal places of the settlement currency (USD cents).
const MinorUnitPlaces = 2

// MaxMinorUnits is the largest unit amount the processor accepts for one line item.
const MaxMinorUnits = 99_999_999

var maxMinor = decimal.NewFromInt(MaxMinorUnits)

// ValidateAmount rejects negative fine amounts. Zero is a legal amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return perr.New(perr.CodeInvalidAmount, "fine amount is negative: "+amount.String())
	}
	return nil
}

// ValidateRate rejects zero and negative conversion rates.
func ValidateRate(rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return perr.New(perr.CodeConversion, "conversion rate is not positive: "+rate.String())
	}
	return nil
}

// Convert returns amount*rate rounded half away from zero to the settlement currency's minor
// unit, expressed as an integer count of minor units.
func Convert(amount, rate decimal.Decimal) (decimal.Decimal, int64, error) {
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, 0, err
	}
	if err := ValidateRate(rate); err != nil {
		return decimal.Zero, 0, err
	}

	settled := amount.Mul(rate).Round(MinorUnitPlaces)
	minor := settled.Shift(MinorUnitPlaces)
	if !minor.IsInteger() || minor.GreaterThan(maxMinor) {
		return decimal.Zero, 0, perr.New(perr.CodeInvalidAmount, "converted amount out of range: "+settled.String())
	}
	return settled, minor.IntPart(), nil
}
