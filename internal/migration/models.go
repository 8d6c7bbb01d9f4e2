package migration

import (
	billingperioddomain "github.com/flowglad/flowglad-sub009/internal/billingperiod/domain"
	discountdomain "github.com/flowglad/flowglad-sub009/internal/discount/domain"
	eventsdomain "github.com/flowglad/flowglad-sub009/internal/events/domain"
	feecalculationdomain "github.com/flowglad/flowglad-sub009/internal/feecalculation/domain"
	invoicedomain "github.com/flowglad/flowglad-sub009/internal/invoice/domain"
	orgdomain "github.com/flowglad/flowglad-sub009/internal/organization/domain"
	paymentdomain "github.com/flowglad/flowglad-sub009/internal/payment/domain"
	pricedomain "github.com/flowglad/flowglad-sub009/internal/price/domain"
	referencedomain "github.com/flowglad/flowglad-sub009/internal/reference/domain"
	subscriptiondomain "github.com/flowglad/flowglad-sub009/internal/subscription/domain"
)

// Models lists every table the engine owns, in dependency order.
func Models() []any {
	return []any{
		&referencedomain.Country{},
		&orgdomain.Organization{},
		&pricedomain.Price{},
		&pricedomain.Purchase{},
		&subscriptiondomain.Subscription{},
		&billingperioddomain.BillingPeriod{},
		&billingperioddomain.BillingPeriodItem{},
		&billingperioddomain.UsageOverage{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceLineItem{},
		&discountdomain.Discount{},
		&discountdomain.DiscountRedemption{},
		&paymentdomain.Payment{},
		&feecalculationdomain.FeeCalculation{},
		&eventsdomain.OutboxEvent{},
	}
}
