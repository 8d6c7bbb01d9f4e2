package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, calc *FeeCalculation) error
	// FindByID returns nil, nil when the calculation does not exist.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FeeCalculation, error)
	UpdateFinalization(ctx context.Context, db *gorm.DB, id snowflake.ID, flowgladFeePercentage, internalNotes string, finalizedAt time.Time) error
	SetTaxTransaction(ctx context.Context, db *gorm.DB, id snowflake.ID, transactionID string) error

	SelectLatestByCheckoutSession(ctx context.Context, db *gorm.DB, checkoutSessionID snowflake.ID) (*FeeCalculation, error)
	SelectLatestByBillingPeriod(ctx context.Context, db *gorm.DB, billingPeriodID snowflake.ID) (*FeeCalculation, error)
	// ListByOrg returns up to limit rows with id below beforeID, newest first.
	ListByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID, beforeID *snowflake.ID, limit int) ([]FeeCalculation, error)
}
