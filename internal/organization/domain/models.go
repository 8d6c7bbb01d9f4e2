// Package domain contains persistence models for the org service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ContractType is the Stripe Connect contract an organization operates under.
type ContractType string

const (
	ContractTypePlatform         ContractType = "platform"
	ContractTypeMerchantOfRecord ContractType = "merchant_of_record"
)

// Organization represents a tenant.
type Organization struct {
	ID                           snowflake.ID `gorm:"primaryKey" json:"id"`
	Name                         string       `gorm:"type:text;not null" json:"name"`
	Slug                         string       `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	FeePercentage                string       `gorm:"type:text;not null;default:'0.65'" json:"fee_percentage"`
	StripeConnectContractType    ContractType `gorm:"type:text;not null;default:'platform'" json:"stripe_connect_contract_type"`
	MonthlyBillingVolumeFreeTier int64        `gorm:"not null;default:0" json:"monthly_billing_volume_free_tier"`
	UpfrontProcessingCredits     int64        `gorm:"not null;default:0" json:"upfront_processing_credits"`
	CountryID                    snowflake.ID `gorm:"not null;index" json:"country_id"`
	CreatedAt                    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt                    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

func (o Organization) IsMerchantOfRecord() bool {
	return o.StripeConnectContractType == ContractTypeMerchantOfRecord
}
