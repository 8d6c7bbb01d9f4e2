package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/flowglad/flowglad-sub009/internal/tax/domain"
	"gorm.io/datatypes"
)

type CalculationType string

const (
	CalculationTypeCheckoutSessionPayment CalculationType = "checkout_session_payment"
	CalculationTypeSubscriptionPayment    CalculationType = "subscription_payment"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusFinalized Status = "finalized"
)

type PaymentMethodType string

const (
	PaymentMethodCard          PaymentMethodType = "card"
	PaymentMethodLink          PaymentMethodType = "link"
	PaymentMethodUSBankAccount PaymentMethodType = "us_bank_account"
	PaymentMethodSEPADebit     PaymentMethodType = "sepa_debit"
)

func (m PaymentMethodType) Known() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodLink, PaymentMethodUSBankAccount, PaymentMethodSEPADebit:
		return true
	}
	return false
}

var (
	ErrNotFound          = errors.New("fee_calculation_not_found")
	ErrInvalidOwner      = errors.New("invalid_fee_calculation_owner")
	ErrInvalidID         = errors.New("invalid_id")
	ErrMissingLineItems  = errors.New("missing_line_items")
	ErrOrganizationScope = errors.New("organization_mismatch")
)

// FeeCalculation is the fee breakdown of one priced transaction. Amounts are
// fixed at insert; finalization only rewrites the fee percentage and notes.
type FeeCalculation struct {
	ID                         snowflake.ID                                 `json:"id" gorm:"primaryKey"`
	OrgID                      snowflake.ID                                 `json:"org_id" gorm:"column:org_id;not null;index"`
	Type                       CalculationType                              `json:"type" gorm:"type:text;not null"`
	Status                     Status                                       `json:"status" gorm:"type:text;not null;default:'draft'"`
	CheckoutSessionID          *snowflake.ID                                `json:"checkout_session_id,omitempty" gorm:"column:checkout_session_id;index"`
	BillingPeriodID            *snowflake.ID                                `json:"billing_period_id,omitempty" gorm:"column:billing_period_id;index"`
	InvoiceID                  *snowflake.ID                                `json:"invoice_id,omitempty" gorm:"column:invoice_id"`
	PriceID                    *snowflake.ID                                `json:"price_id,omitempty" gorm:"column:price_id"`
	PurchaseID                 *snowflake.ID                                `json:"purchase_id,omitempty" gorm:"column:purchase_id"`
	DiscountID                 *snowflake.ID                                `json:"discount_id,omitempty" gorm:"column:discount_id"`
	BaseAmount                 int64                                        `json:"base_amount" gorm:"column:base_amount;not null"`
	DiscountAmountFixed        int64                                        `json:"discount_amount_fixed" gorm:"column:discount_amount_fixed;not null;default:0"`
	PretaxTotal                int64                                        `json:"pretax_total" gorm:"column:pretax_total;not null"`
	TaxAmountFixed             int64                                        `json:"tax_amount_fixed" gorm:"column:tax_amount_fixed;not null;default:0"`
	FlowgladFeePercentage      string                                       `json:"flowglad_fee_percentage" gorm:"column:flowglad_fee_percentage;type:text;not null"`
	MorSurchargePercentage     string                                       `json:"mor_surcharge_percentage" gorm:"column:mor_surcharge_percentage;type:text;not null"`
	InternationalFeePercentage string                                       `json:"international_fee_percentage" gorm:"column:international_fee_percentage;type:text;not null"`
	PaymentMethodFeeFixed      int64                                        `json:"payment_method_fee_fixed" gorm:"column:payment_method_fee_fixed;not null"`
	Currency                   string                                       `json:"currency" gorm:"type:text;not null"`
	PaymentMethodType          PaymentMethodType                            `json:"payment_method_type" gorm:"column:payment_method_type;type:text;not null"`
	BillingAddress             datatypes.JSONType[taxdomain.BillingAddress] `json:"billing_address" gorm:"column:billing_address;type:jsonb;not null"`
	StripeTaxCalculationID     *string                                      `json:"stripe_tax_calculation_id,omitempty" gorm:"column:stripe_tax_calculation_id;type:text"`
	StripeTaxTransactionID     *string                                      `json:"stripe_tax_transaction_id,omitempty" gorm:"column:stripe_tax_transaction_id;type:text"`
	InternalNotes              *string                                      `json:"internal_notes,omitempty" gorm:"column:internal_notes;type:text"`
	Livemode                   bool                                         `json:"livemode" gorm:"not null;default:false"`
	FinalizedAt                *time.Time                                   `json:"finalized_at,omitempty" gorm:"column:finalized_at"`
	CreatedAt                  time.Time                                    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt                  time.Time                                    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (FeeCalculation) TableName() string { return "fee_calculations" }

// ValidateOwner enforces that exactly one of checkout session or billing period owns the record.
func (f *FeeCalculation) ValidateOwner() error {
	if (f.CheckoutSessionID == nil) == (f.BillingPeriodID == nil) {
		return ErrInvalidOwner
	}
	return nil
}
