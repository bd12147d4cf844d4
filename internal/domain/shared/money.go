package shared

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tolerance is the largest residue, in currency units, that counts as zero
// when deciding whether a balance is settled.
var Tolerance = decimal.New(1, -2)

// Hundred is used for percentage math
var Hundred = decimal.NewFromInt(100)

// RateScale is the number of decimal places stored for interest rates
const RateScale = 4

// Round2 rounds an amount to cents, half away from zero
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IsEffectivelyZero reports whether |d| <= Tolerance
func IsEffectivelyZero(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(Tolerance)
}

// WithinTolerance reports whether a and b differ by less than one cent.
// Sub-cent noise is absorbed; a whole cent of difference is a mismatch.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Tolerance)
}

// ApplyRate returns round2(base * (1 + rate/100))
func ApplyRate(base, rate decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(decimal.NewFromInt(1).Add(rate.Div(Hundred))))
}

// Percentage returns round2(part / whole * 100), or zero when whole is zero
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return Round2(part.Div(whole).Mul(Hundred))
}

// HasMoreDecimals reports whether d carries non-zero digits beyond places.
// Trailing zeros do not count: 10.500 has two decimals.
func HasMoreDecimals(d decimal.Decimal, places int32) bool {
	return !d.Equal(d.Truncate(places))
}

// ParseAmount parses a user supplied amount. Fractions of a cent are
// rejected rather than rounded away.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewDomainError("INVALID_AMOUNT", fmt.Sprintf("invalid amount %q", s))
	}
	if HasMoreDecimals(d, 2) {
		return decimal.Zero, NewDomainError("INVALID_AMOUNT", fmt.Sprintf("amount %q has fractions of a cent", s))
	}
	return d, nil
}

// ParseRate parses a user supplied interest percentage with up to RateScale decimals
func ParseRate(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewDomainError("INVALID_INTEREST", fmt.Sprintf("invalid interest rate %q", s))
	}
	if HasMoreDecimals(d, RateScale) {
		return decimal.Zero, NewDomainError("INVALID_INTEREST",
			fmt.Sprintf("interest rate %q has more than %d decimals", s, RateScale))
	}
	return d, nil
}
