package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateOrganizationRequest) (*OrganizationResponse, error)
	GetByID(ctx context.Context, id string) (*OrganizationResponse, error)
}

type CreateOrganizationRequest struct {
	Name                         string       `json:"name"`
	CountryCode                  string       `json:"country_code"`
	FeePercentage                string       `json:"fee_percentage"`
	StripeConnectContractType    ContractType `json:"stripe_connect_contract_type"`
	MonthlyBillingVolumeFreeTier int64        `json:"monthly_billing_volume_free_tier"`
	UpfrontProcessingCredits     int64        `json:"upfront_processing_credits"`
}

type OrganizationResponse struct {
	ID                           string       `json:"id"`
	Name                         string       `json:"name"`
	Slug                         string       `json:"slug"`
	CountryCode                  string       `json:"country_code"`
	FeePercentage                string       `json:"fee_percentage"`
	StripeConnectContractType    ContractType `json:"stripe_connect_contract_type"`
	MonthlyBillingVolumeFreeTier int64        `json:"monthly_billing_volume_free_tier"`
	UpfrontProcessingCredits     int64        `json:"upfront_processing_credits"`
	CreatedAt                    time.Time    `json:"created_at"`
}

var (
	ErrNotFound             = errors.New("organization_not_found")
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidCountry       = errors.New("invalid_country")
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidFeePercentage = errors.New("invalid_fee_percentage")
	ErrInvalidContractType  = errors.New("invalid_contract_type")
	ErrInvalidFreeTier      = errors.New("invalid_free_tier")
)
