package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/organization/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateOrganization(ctx context.Context, org domain.Organization) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO organizations (
			id, name, slug, fee_percentage, stripe_connect_contract_type,
			monthly_billing_volume_free_tier, upfront_processing_credits, country_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		org.ID,
		org.Name,
		org.Slug,
		org.FeePercentage,
		org.StripeConnectContractType,
		org.MonthlyBillingVolumeFreeTier,
		org.UpfrontProcessingCredits,
		org.CountryID,
		org.CreatedAt,
		org.UpdatedAt,
	).Error
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, name, slug, fee_percentage, stripe_connect_contract_type,
			monthly_billing_volume_free_tier, upfront_processing_credits, country_id,
			created_at, updated_at
		 FROM organizations
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == 0 {
		return nil, nil
	}
	return &org, nil
}
