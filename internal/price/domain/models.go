package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type PriceType string

const (
	PriceTypeSinglePayment PriceType = "single_payment"
	PriceTypeSubscription  PriceType = "subscription"
	PriceTypeUsage         PriceType = "usage"
)

var (
	ErrNotFound         = errors.New("price_not_found")
	ErrPurchaseNotFound = errors.New("purchase_not_found")
)

type Price struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"column:org_id;not null;index" json:"org_id"`
	ProductID snowflake.ID `gorm:"column:product_id;not null;index" json:"product_id"`
	Type      PriceType    `gorm:"type:text;not null" json:"type"`
	UnitPrice int64        `gorm:"column:unit_price;not null" json:"unit_price"`
	Currency  string       `gorm:"type:text;not null" json:"currency"`
	TaxCode   *string      `gorm:"column:tax_code;type:text" json:"tax_code,omitempty"`
	Livemode  bool         `gorm:"not null;default:false" json:"livemode"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Price) TableName() string { return "prices" }

// Purchase is a customer's commitment to a price. FirstInvoiceValue and
// PricePerBillingCycle are frozen at purchase time and override the unit price.
type Purchase struct {
	ID                   snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID                snowflake.ID `gorm:"column:org_id;not null;index" json:"org_id"`
	PriceID              snowflake.ID `gorm:"column:price_id;not null;index" json:"price_id"`
	PriceType            PriceType    `gorm:"column:price_type;type:text;not null" json:"price_type"`
	FirstInvoiceValue    *int64       `gorm:"column:first_invoice_value" json:"first_invoice_value,omitempty"`
	PricePerBillingCycle *int64       `gorm:"column:price_per_billing_cycle" json:"price_per_billing_cycle,omitempty"`
	Quantity             int64        `gorm:"not null;default:1" json:"quantity"`
	Livemode             bool         `gorm:"not null;default:false" json:"livemode"`
	CreatedAt            time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Purchase) TableName() string { return "purchases" }
