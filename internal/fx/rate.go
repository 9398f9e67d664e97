// Package fx converts amounts between the base currency (CDF) and the reporting
// currency (USD) through an explicitly supplied exchange rate.
package fx

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 currency code.
type Currency string

const (
	CDF Currency = "CDF" // base currency
	USD Currency = "USD" // reporting currency
)

// RateScale is the number of decimal places a stored rate keeps.
const RateScale = 6

var (
	// ErrNonPositiveRate is returned when a rate of zero or less is recorded.
	ErrNonPositiveRate = errors.New("exchange rate must be strictly positive")
	// ErrRatePrecision is returned when a rate has more decimal places than storage keeps.
	ErrRatePrecision = errors.New("exchange rate has too many decimal places")
)

// Rate is an immutable CDF-per-USD exchange rate. A new rate is a new record.
type Rate struct {
	ID            int64           `json:"id"`
	Value         decimal.Decimal `json:"rate"`
	EffectiveDate time.Time       `json:"effectiveDate"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// NewRate validates and builds a rate effective on the given date.
func NewRate(value decimal.Decimal, effective time.Time) (Rate, error) {
	if !value.IsPositive() {
		return Rate{}, ErrNonPositiveRate
	}
	if !value.Equal(value.Truncate(RateScale)) {
		return Rate{}, fmt.Errorf("%w: %s (max %d)", ErrRatePrecision, value, RateScale)
	}
	return Rate{
		Value:         value,
		EffectiveDate: time.Date(effective.Year(), effective.Month(), effective.Day(), 0, 0, 0, 0, time.UTC),
	}, nil
}

// Available reports whether a rate can be used for conversion.
func Available(rate decimal.Decimal) bool {
	return rate.IsPositive()
}

// ToUSD converts a CDF amount to USD. The result is unavailable (Valid=false)
// when the rate is zero, negative or missing.
func ToUSD(amountCDF, rate decimal.Decimal) decimal.NullDecimal {
	if !Available(rate) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(amountCDF.Div(rate))
}

// ToCDF converts a USD amount to CDF, unavailable under the same conditions as ToUSD.
func ToCDF(amountUSD, rate decimal.Decimal) decimal.NullDecimal {
	if !Available(rate) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(amountUSD.Mul(rate))
}

// DivNull divides an available figure by a constant divisor, propagating unavailability.
func DivNull(d decimal.NullDecimal, divisor decimal.Decimal) decimal.NullDecimal {
	if !d.Valid || divisor.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d.Decimal.Div(divisor))
}
