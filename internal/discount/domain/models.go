package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type AmountType string

const (
	AmountTypeFixed   AmountType = "fixed"
	AmountTypePercent AmountType = "percent"
)

func (t AmountType) Valid() bool {
	return t == AmountTypeFixed || t == AmountTypePercent
}

type Duration string

const (
	DurationOnce             Duration = "once"
	DurationNumberOfPayments Duration = "number_of_payments"
	DurationForever          Duration = "forever"
)

func (d Duration) Valid() bool {
	switch d {
	case DurationOnce, DurationNumberOfPayments, DurationForever:
		return true
	}
	return false
}

var (
	ErrNotFound           = errors.New("discount_not_found")
	ErrRedemptionNotFound = errors.New("discount_redemption_not_found")
	ErrInvalidDiscount    = errors.New("invalid_discount")
	ErrInvalidOwner       = errors.New("invalid_redemption_owner")
)

// Discount is the live policy. Amount is minor units for fixed discounts and a
// whole percentage for percent discounts.
type Discount struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID            snowflake.ID `gorm:"column:org_id;not null;index" json:"org_id"`
	Code             string       `gorm:"type:text;not null" json:"code"`
	AmountType       AmountType   `gorm:"column:amount_type;type:text;not null" json:"amount_type"`
	Amount           int64        `gorm:"not null" json:"amount"`
	Duration         Duration     `gorm:"type:text;not null" json:"duration"`
	NumberOfPayments *int64       `gorm:"column:number_of_payments" json:"number_of_payments,omitempty"`
	Livemode         bool         `gorm:"not null;default:false" json:"livemode"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Discount) TableName() string { return "discounts" }

func (d *Discount) Validate() error {
	if d == nil || !d.AmountType.Valid() || !d.Duration.Valid() || d.Amount < 0 {
		return ErrInvalidDiscount
	}
	if d.Duration == DurationNumberOfPayments && (d.NumberOfPayments == nil || *d.NumberOfPayments <= 0) {
		return ErrInvalidDiscount
	}
	return nil
}

// DiscountRedemption freezes a discount's terms against one subscription or purchase.
type DiscountRedemption struct {
	ID                 snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID              snowflake.ID  `gorm:"column:org_id;not null;index" json:"org_id"`
	DiscountID         snowflake.ID  `gorm:"column:discount_id;not null;index" json:"discount_id"`
	SubscriptionID     *snowflake.ID `gorm:"column:subscription_id;index" json:"subscription_id,omitempty"`
	PurchaseID         *snowflake.ID `gorm:"column:purchase_id;index" json:"purchase_id,omitempty"`
	DiscountCode       string        `gorm:"column:discount_code;type:text;not null" json:"discount_code"`
	DiscountAmountType AmountType    `gorm:"column:discount_amount_type;type:text;not null" json:"discount_amount_type"`
	DiscountAmount     int64         `gorm:"column:discount_amount;not null" json:"discount_amount"`
	Duration           Duration      `gorm:"type:text;not null" json:"duration"`
	NumberOfPayments   *int64        `gorm:"column:number_of_payments" json:"number_of_payments,omitempty"`
	FullyRedeemed      bool          `gorm:"column:fully_redeemed;not null;default:false" json:"fully_redeemed"`
	CreatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DiscountRedemption) TableName() string { return "discount_redemptions" }
