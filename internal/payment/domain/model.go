package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

// IsResolved reports whether the payment counts toward processed volume.
// Refunds never take a payment out of the volume totals.
func (s Status) IsResolved() bool {
	return s == StatusSucceeded || s == StatusRefunded
}

var (
	ErrNotFound            = errors.New("payment_not_found")
	ErrInvalidRefundAmount = errors.New("invalid_refund_amount")
	ErrInvalidStatus       = errors.New("invalid_payment_status")
	ErrMissingFeeContext   = errors.New("payment_missing_fee_context")
)

type Payment struct {
	ID                snowflake.ID  `json:"id" gorm:"primaryKey"`
	OrgID             snowflake.ID  `json:"org_id" gorm:"column:org_id;not null;index:ix_payments_org_charge,priority:1"`
	CheckoutSessionID *snowflake.ID `json:"checkout_session_id,omitempty" gorm:"column:checkout_session_id;index"`
	BillingPeriodID   *snowflake.ID `json:"billing_period_id,omitempty" gorm:"column:billing_period_id;index"`
	SubscriptionID    *snowflake.ID `json:"subscription_id,omitempty" gorm:"column:subscription_id;index"`
	PurchaseID        *snowflake.ID `json:"purchase_id,omitempty" gorm:"column:purchase_id;index"`
	InvoiceID         *snowflake.ID `json:"invoice_id,omitempty" gorm:"column:invoice_id"`
	Amount            int64         `json:"amount" gorm:"not null"`
	RefundedAmount    int64         `json:"refunded_amount" gorm:"column:refunded_amount;not null;default:0"`
	Currency          string        `json:"currency" gorm:"type:text;not null"`
	Status            Status        `json:"status" gorm:"type:text;not null"`
	ChargeDate        time.Time     `json:"charge_date" gorm:"column:charge_date;not null;index:ix_payments_org_charge,priority:2"`
	RefundedAt        *time.Time    `json:"refunded_at,omitempty" gorm:"column:refunded_at"`
	Livemode          bool          `json:"livemode" gorm:"not null;default:false"`
	CreatedAt         time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Payment) TableName() string { return "payments" }

// RefundableAmount is what is left to refund.
func (p Payment) RefundableAmount() int64 {
	return p.Amount - p.RefundedAmount
}
