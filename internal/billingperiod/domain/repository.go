package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, period *BillingPeriod) error
	InsertItems(ctx context.Context, db *gorm.DB, items []BillingPeriodItem) error
	InsertUsageOverages(ctx context.Context, db *gorm.DB, overages []UsageOverage) error

	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*BillingPeriod, error)
	ListItems(ctx context.Context, db *gorm.DB, billingPeriodID snowflake.ID) ([]BillingPeriodItem, error)
	ListUsageOverages(ctx context.Context, db *gorm.DB, billingPeriodID snowflake.ID) ([]UsageOverage, error)
}
