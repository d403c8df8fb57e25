// Package money holds the pure interest, rounding and calendar helpers used by
// the loan factory and the EMI ledger.
package money

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Interest calculates simple (non-compounding) interest:
// principal * ratePercent/100 * tenureYears.
func Interest(principal, ratePercent, tenureYears float64) float64 {
	p := decimal.NewFromFloat(principal)
	r := decimal.NewFromFloat(ratePercent)
	y := decimal.NewFromFloat(tenureYears)

	return p.Mul(r).Mul(y).Div(hundred).InexactFloat64()
}

// Round rounds to the nearest whole currency unit, halves away from zero
func Round(value float64) float64 {
	return decimal.NewFromFloat(value).Round(0).InexactFloat64()
}

// RoundToTwoDecimal rounds to paise/cents for display values
func RoundToTwoDecimal(value float64) float64 {
	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}

// Valid reports whether value is a usable number (not NaN or infinite)
func Valid(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

// AddDays adds n calendar days
func AddDays(date time.Time, n int) time.Time {
	return date.AddDate(0, 0, n)
}

// AddMonths adds n calendar months. Day-of-month overflow rolls into the
// following month the same way time.AddDate does: Jan 31 + 1 month is Mar 3
// (Mar 2 in a leap year).
func AddMonths(date time.Time, n int) time.Time {
	return date.AddDate(0, n, 0)
}

// Add sums amounts without accumulating binary floating point error
func Add(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).InexactFloat64()
}

// Sub subtracts b from a without accumulating binary floating point error
func Sub(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).InexactFloat64()
}

// Mul multiplies an amount by a whole number of units
func Mul(amount float64, n int) float64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(int64(n))).InexactFloat64()
}
