package service

import (
	"github.com/flowglad/flowglad-sub009/internal/discount/domain"
	"github.com/flowglad/flowglad-sub009/internal/money"
	"github.com/shopspring/decimal"
)

var maxPercent = decimal.NewFromInt(100)

// CalculateDiscountAmount returns the discount in minor units for basePrice.
// Fixed discounts are returned verbatim, even when larger than basePrice.
// Percent discounts are clamped at 100%. Unknown amount types yield 0.
func CalculateDiscountAmount(basePrice int64, discount *domain.Discount) int64 {
	if discount == nil {
		return 0
	}
	return discountAmount(basePrice, discount.AmountType, discount.Amount)
}

// CalculateDiscountAmountFromRedemption applies the terms frozen on the
// redemption, so later edits to the discount do not change history.
func CalculateDiscountAmountFromRedemption(basePrice int64, redemption *domain.DiscountRedemption) int64 {
	if redemption == nil {
		return 0
	}
	return discountAmount(basePrice, redemption.DiscountAmountType, redemption.DiscountAmount)
}

func discountAmount(basePrice int64, amountType domain.AmountType, amount int64) int64 {
	switch amountType {
	case domain.AmountTypeFixed:
		return amount
	case domain.AmountTypePercent:
		pct := decimal.Min(decimal.NewFromInt(amount), maxPercent)
		return money.CalculatePercentageFee(basePrice, pct)
	default:
		return 0
	}
}
