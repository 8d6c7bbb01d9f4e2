package service

import (
	billingperioddomain "github.com/flowglad/flowglad-sub009/internal/billingperiod/domain"
	invoicedomain "github.com/flowglad/flowglad-sub009/internal/invoice/domain"
	"github.com/flowglad/flowglad-sub009/internal/money"
	pricedomain "github.com/flowglad/flowglad-sub009/internal/price/domain"
	"github.com/shopspring/decimal"
)

// CalculatePriceBaseAmount resolves the charge for a price, preferring the
// values frozen on the purchase. A quantity of zero or less counts as one.
func CalculatePriceBaseAmount(price *pricedomain.Price, purchase *pricedomain.Purchase, quantity int64) int64 {
	amount, _ := resolvePriceBaseAmount(price, purchase)
	if quantity <= 0 {
		quantity = 1
	}
	return amount * quantity
}

// resolvePriceBaseAmount reports false when the purchase carries a price type
// it does not recognize and the unit price was used instead.
func resolvePriceBaseAmount(price *pricedomain.Price, purchase *pricedomain.Purchase) (int64, bool) {
	if purchase == nil {
		return price.UnitPrice, true
	}

	switch purchase.PriceType {
	case pricedomain.PriceTypeSinglePayment:
		if purchase.FirstInvoiceValue != nil {
			return *purchase.FirstInvoiceValue, true
		}
		return price.UnitPrice, true
	case pricedomain.PriceTypeSubscription:
		if purchase.PricePerBillingCycle != nil {
			return *purchase.PricePerBillingCycle, true
		}
		return price.UnitPrice, true
	case pricedomain.PriceTypeUsage:
		return price.UnitPrice, true
	default:
		return price.UnitPrice, false
	}
}

func CalculateInvoiceBaseAmount(lineItems []invoicedomain.InvoiceLineItem) int64 {
	var total int64
	for _, item := range lineItems {
		total += item.Price * item.Quantity
	}
	return total
}

// CalculateBillingItemBaseAmount sums static items and usage overages. Overage
// charges are accumulated as decimals and rounded once at the end. A
// non-positive UsageEventsPerUnit charges per event; callers report it.
func CalculateBillingItemBaseAmount(items []billingperioddomain.BillingPeriodItem, overages []billingperioddomain.UsageOverage) int64 {
	var static int64
	for _, item := range items {
		static += item.UnitPrice * item.Quantity
	}

	usage := decimal.Zero
	for _, overage := range overages {
		perUnit := overage.UsageEventsPerUnit
		if perUnit <= 0 {
			perUnit = 1
		}
		units := decimal.NewFromInt(overage.Balance).Div(decimal.NewFromInt(perUnit))
		usage = usage.Add(units.Mul(decimal.NewFromInt(overage.UnitPrice)))
	}

	return static + money.RoundMinorUnits(usage)
}
