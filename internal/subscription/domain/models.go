// Package domain contains persistence models for subscriptions.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
)

var ErrNotFound = errors.New("subscription_not_found")

// Subscription captures a customer's billing agreement on a single price.
type Subscription struct {
	ID         snowflake.ID       `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID       `gorm:"column:org_id;not null;index" json:"org_id"`
	CustomerID snowflake.ID       `gorm:"column:customer_id;not null;index" json:"customer_id"`
	PriceID    snowflake.ID       `gorm:"column:price_id;not null" json:"price_id"`
	Status     SubscriptionStatus `gorm:"type:text;not null" json:"status"`
	Livemode   bool               `gorm:"not null;default:false" json:"livemode"`
	CreatedAt  time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }
