package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPresentationPlaces is the number of decimal places figures are rounded to
// when they leave the calculator for display.
const DefaultPresentationPlaces = 1

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
// Entry forms omit fields freely, so absent, blank, non-numeric and NaN all read as zero.
func SafeParse(value string) decimal.Decimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SafeSum adds two decimals.
func SafeSum(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b)
}

// NonNegative returns d, or zero when d is negative.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, d)
}

// PercentOf returns percent% of amount.
func PercentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(decimal.NewFromInt(100))
}

// Present rounds d half away from zero to the given number of places.
// Only presenters call this; the rollup chain keeps full precision.
func Present(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// PresentNull rounds a nullable figure, leaving unavailable figures untouched.
func PresentNull(d decimal.NullDecimal, places int32) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return decimal.NewNullDecimal(d.Decimal.Round(places))
}

// FormatFixed renders d rounded to places with trailing zeros kept, e.g. "1006.8".
// Unavailable figures render as "n/a".
func FormatFixed(d decimal.NullDecimal, places int32) string {
	if !d.Valid {
		return "n/a"
	}
	return d.Decimal.StringFixed(places)
}
