// Package money holds the fixed-point helpers used for every percentage-of-money
// computation. Amounts are integer minor units; percentages are decimals where
// "2.9" means 2.9%.
package money

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPercentage = errors.New("invalid_percentage")
	ErrInvalidAmount     = errors.New("invalid_amount")
)

var hundred = decimal.NewFromInt(100)

// ParsePercentage parses a decimal percentage string such as "0.65".
func ParsePercentage(raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Zero, ErrInvalidPercentage
	}
	pct, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, ErrInvalidPercentage
	}
	return pct, nil
}

// PercentageFromFloat converts a float percentage, rejecting NaN and infinities.
func PercentageFromFloat(value float64) (decimal.Decimal, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return decimal.Zero, ErrInvalidPercentage
	}
	return decimal.NewFromFloat(value), nil
}

// FormatPercentage renders a percentage the way it is persisted ("2.5", "0").
func FormatPercentage(pct decimal.Decimal) string {
	return pct.String()
}

// CalculatePercentageFee returns amount * percentage / 100 rounded half away from
// zero to the nearest minor unit.
func CalculatePercentageFee(amount int64, percentage decimal.Decimal) int64 {
	return RoundMinorUnits(decimal.NewFromInt(amount).Mul(percentage).Div(hundred))
}

// CalculatePercentageFeeString is CalculatePercentageFee for persisted string rates.
func CalculatePercentageFeeString(amount int64, percentage string) (int64, error) {
	pct, err := ParsePercentage(percentage)
	if err != nil {
		return 0, err
	}
	return CalculatePercentageFee(amount, pct), nil
}

// CalculatePercentageFeeFloat is CalculatePercentageFee for float rates.
func CalculatePercentageFeeFloat(amount int64, percentage float64) (int64, error) {
	pct, err := PercentageFromFloat(percentage)
	if err != nil {
		return 0, err
	}
	return CalculatePercentageFee(amount, pct), nil
}

// RoundMinorUnits rounds a decimal amount half away from zero to an integer.
func RoundMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(0).IntPart()
}

// MaxInt64 returns the larger of a and b.
func MaxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// MinInt64 returns the smaller of a and b.
func MinInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
