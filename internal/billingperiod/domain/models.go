package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusPastDue   Status = "past_due"
)

var ErrNotFound = errors.New("billing_period_not_found")

// BillingPeriod represents one invoiced interval of a subscription.
type BillingPeriod struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID `gorm:"column:org_id;not null;index" json:"org_id"`
	SubscriptionID snowflake.ID `gorm:"column:subscription_id;not null;index" json:"subscription_id"`
	PeriodStart    time.Time    `gorm:"column:period_start;not null" json:"period_start"`
	PeriodEnd      time.Time    `gorm:"column:period_end;not null" json:"period_end"`
	Status         Status       `gorm:"type:text;not null;default:'active'" json:"status"`
	Livemode       bool         `gorm:"not null;default:false" json:"livemode"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (BillingPeriod) TableName() string { return "billing_periods" }

// BillingPeriodItem is a static charge on the period.
type BillingPeriodItem struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	BillingPeriodID snowflake.ID `gorm:"column:billing_period_id;not null;index" json:"billing_period_id"`
	Name            string       `gorm:"type:text;not null" json:"name"`
	UnitPrice       int64        `gorm:"column:unit_price;not null" json:"unit_price"`
	Quantity        int64        `gorm:"not null;default:1" json:"quantity"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (BillingPeriodItem) TableName() string { return "billing_period_items" }

// UsageOverage is the billable usage balance of one meter for a period.
// The charge is Balance / UsageEventsPerUnit * UnitPrice.
type UsageOverage struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	BillingPeriodID    snowflake.ID `gorm:"column:billing_period_id;not null;index" json:"billing_period_id"`
	UsageMeterID       snowflake.ID `gorm:"column:usage_meter_id;not null" json:"usage_meter_id"`
	Balance            int64        `gorm:"not null" json:"balance"`
	UsageEventsPerUnit int64        `gorm:"column:usage_events_per_unit;not null;default:1" json:"usage_events_per_unit"`
	UnitPrice          int64        `gorm:"column:unit_price;not null" json:"unit_price"`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (UsageOverage) TableName() string { return "billing_period_usage_overages" }
