package dbtest

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingperioddomain "github.com/flowglad/flowglad-sub009/internal/billingperiod/domain"
	discountdomain "github.com/flowglad/flowglad-sub009/internal/discount/domain"
	invoicedomain "github.com/flowglad/flowglad-sub009/internal/invoice/domain"
	orgdomain "github.com/flowglad/flowglad-sub009/internal/organization/domain"
	paymentdomain "github.com/flowglad/flowglad-sub009/internal/payment/domain"
	pricedomain "github.com/flowglad/flowglad-sub009/internal/price/domain"
	referencedomain "github.com/flowglad/flowglad-sub009/internal/reference/domain"
	subscriptiondomain "github.com/flowglad/flowglad-sub009/internal/subscription/domain"
	"gorm.io/gorm"
)

// Fixtures inserts rows with generated ids. Every insert fails the test on error.
type Fixtures struct {
	t         testing.TB
	DB        *gorm.DB
	Node      *snowflake.Node
	countries map[string]referencedomain.Country
}

func NewFixtures(t testing.TB, db *gorm.DB) *Fixtures {
	t.Helper()
	node, err := snowflake.NewNode(7)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Fixtures{t: t, DB: db, Node: node, countries: map[string]referencedomain.Country{}}
}

func (f *Fixtures) create(value any) {
	f.t.Helper()
	if err := f.DB.Create(value).Error; err != nil {
		f.t.Fatalf("insert %T: %v", value, err)
	}
}

// Country returns the row for code, inserting it on first use.
func (f *Fixtures) Country(code string) referencedomain.Country {
	if country, ok := f.countries[code]; ok {
		return country
	}
	country := referencedomain.Country{ID: f.Node.Generate(), Code: code, Name: code}
	f.create(&country)
	f.countries[code] = country
	return country
}

// Organization inserts org, filling the id and a country when missing.
func (f *Fixtures) Organization(org orgdomain.Organization) orgdomain.Organization {
	if org.ID == 0 {
		org.ID = f.Node.Generate()
	}
	if org.Name == "" {
		org.Name = "Acme"
	}
	if org.Slug == "" {
		org.Slug = "acme-" + org.ID.String()
	}
	if org.FeePercentage == "" {
		org.FeePercentage = "0.65"
	}
	if org.StripeConnectContractType == "" {
		org.StripeConnectContractType = orgdomain.ContractTypePlatform
	}
	if org.CountryID == 0 {
		org.CountryID = f.Country("US").ID
	}
	f.create(&org)
	return org
}

func (f *Fixtures) Price(orgID snowflake.ID, priceType pricedomain.PriceType, unitPrice int64) pricedomain.Price {
	price := pricedomain.Price{
		ID:        f.Node.Generate(),
		OrgID:     orgID,
		ProductID: f.Node.Generate(),
		Type:      priceType,
		UnitPrice: unitPrice,
		Currency:  "usd",
	}
	f.create(&price)
	return price
}

func (f *Fixtures) Purchase(purchase pricedomain.Purchase) pricedomain.Purchase {
	purchase.ID = f.Node.Generate()
	if purchase.Quantity == 0 {
		purchase.Quantity = 1
	}
	f.create(&purchase)
	return purchase
}

// Invoice inserts an invoice with one line item per (price, quantity) pair.
func (f *Fixtures) Invoice(orgID snowflake.ID, lines ...[2]int64) invoicedomain.Invoice {
	invoice := invoicedomain.Invoice{
		ID:         f.Node.Generate(),
		OrgID:      orgID,
		CustomerID: f.Node.Generate(),
		Status:     invoicedomain.InvoiceStatusOpen,
		Currency:   "usd",
	}
	f.create(&invoice)
	for _, line := range lines {
		f.create(&invoicedomain.InvoiceLineItem{
			ID:          f.Node.Generate(),
			InvoiceID:   invoice.ID,
			Description: "line",
			Price:       line[0],
			Quantity:    line[1],
		})
	}
	return invoice
}

func (f *Fixtures) Subscription(orgID, priceID snowflake.ID) subscriptiondomain.Subscription {
	sub := subscriptiondomain.Subscription{
		ID:         f.Node.Generate(),
		OrgID:      orgID,
		CustomerID: f.Node.Generate(),
		PriceID:    priceID,
		Status:     subscriptiondomain.SubscriptionStatusActive,
	}
	f.create(&sub)
	return sub
}

func (f *Fixtures) BillingPeriod(orgID, subscriptionID snowflake.ID, items []billingperioddomain.BillingPeriodItem, overages []billingperioddomain.UsageOverage) billingperioddomain.BillingPeriod {
	now := time.Now().UTC()
	period := billingperioddomain.BillingPeriod{
		ID:             f.Node.Generate(),
		OrgID:          orgID,
		SubscriptionID: subscriptionID,
		PeriodStart:    now.AddDate(0, -1, 0),
		PeriodEnd:      now,
		Status:         billingperioddomain.StatusActive,
	}
	f.create(&period)
	for _, item := range items {
		item.ID = f.Node.Generate()
		item.BillingPeriodID = period.ID
		f.create(&item)
	}
	for _, overage := range overages {
		overage.ID = f.Node.Generate()
		overage.BillingPeriodID = period.ID
		if overage.UsageMeterID == 0 {
			overage.UsageMeterID = f.Node.Generate()
		}
		f.create(&overage)
	}
	return period
}

func (f *Fixtures) Discount(discount discountdomain.Discount) discountdomain.Discount {
	discount.ID = f.Node.Generate()
	if discount.Code == "" {
		discount.Code = "SAVE" + discount.ID.String()
	}
	f.create(&discount)
	return discount
}

func (f *Fixtures) Redemption(discount discountdomain.Discount, subscriptionID, purchaseID *snowflake.ID) discountdomain.DiscountRedemption {
	redemption := discountdomain.DiscountRedemption{
		ID:                 f.Node.Generate(),
		OrgID:              discount.OrgID,
		DiscountID:         discount.ID,
		SubscriptionID:     subscriptionID,
		PurchaseID:         purchaseID,
		DiscountCode:       discount.Code,
		DiscountAmountType: discount.AmountType,
		DiscountAmount:     discount.Amount,
		Duration:           discount.Duration,
		NumberOfPayments:   discount.NumberOfPayments,
	}
	f.create(&redemption)
	return redemption
}

// Payment inserts payment, generating the id and defaulting currency.
func (f *Fixtures) Payment(payment paymentdomain.Payment) paymentdomain.Payment {
	payment.ID = f.Node.Generate()
	if payment.Currency == "" {
		payment.Currency = "usd"
	}
	if payment.ChargeDate.IsZero() {
		payment.ChargeDate = time.Now().UTC()
	}
	payment.ChargeDate = payment.ChargeDate.UTC()
	f.create(&payment)
	return payment
}
