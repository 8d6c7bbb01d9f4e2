package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	TopicFeeCalculationFinalized = "fee_calculation.finalized"
	TopicPaymentRefunded         = "payment.refunded"
)

var ErrInvalidEvent = errors.New("invalid_event")

// OutboxEvent is a domain event written in the same transaction as the state
// change it describes and published to the broker afterwards.
type OutboxEvent struct {
	ID          snowflake.ID   `gorm:"primaryKey"`
	OrgID       snowflake.ID   `gorm:"column:org_id;not null;index;uniqueIndex:ux_outbox_events_dedupe,priority:1"`
	Topic       string         `gorm:"type:text;not null"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null"`
	DedupeKey   *string        `gorm:"column:dedupe_key;type:text;uniqueIndex:ux_outbox_events_dedupe,priority:2"`
	Published   bool           `gorm:"not null;default:false"`
	PublishedAt *time.Time     `gorm:"column:published_at"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

type FeeCalculationFinalized struct {
	FeeCalculationID      string `json:"fee_calculation_id"`
	OrganizationID        string `json:"organization_id"`
	PaymentID             string `json:"payment_id,omitempty"`
	FlowgladFeePercentage string `json:"flowglad_fee_percentage"`
	PretaxTotal           int64  `json:"pretax_total"`
	Currency              string `json:"currency"`
	FinalizedAt           string `json:"finalized_at"`
}

type PaymentRefunded struct {
	PaymentID      string `json:"payment_id"`
	OrganizationID string `json:"organization_id"`
	Amount         int64  `json:"amount"`
	RefundedAmount int64  `json:"refunded_amount"`
	Status         string `json:"status"`
	TaxReversalID  string `json:"tax_reversal_id,omitempty"`
}
